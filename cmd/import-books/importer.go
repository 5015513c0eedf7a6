package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/5w1tchy/reading-list/internal/api/apperr"
	bookapi "github.com/5w1tchy/reading-list/internal/api/handlers/books"
	"github.com/5w1tchy/reading-list/internal/store/books"
)

type summary struct {
	Imported int
	Rejected int
}

// importCSV creates one book per valid row. A nil store validates only.
// Row problems are reported to out and counted; read and store failures
// abort the import.
func importCSV(ctx context.Context, r io.Reader, store books.Store, out io.Writer) (summary, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var sum summary
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return sum, nil
		}
		if err != nil {
			return sum, fmt.Errorf("read csv: %w", err)
		}
		if line == 1 && isHeader(rec) {
			continue
		}
		if len(rec) < 2 || len(rec) > 3 {
			fmt.Fprintf(out, "line %d: REJECTED - want 2 or 3 columns, got %d\n", line, len(rec))
			sum.Rejected++
			continue
		}

		var desc *string
		if len(rec) == 3 && rec[2] != "" {
			desc = &rec[2]
		}
		nb, err := bookapi.NewBookFrom(rec[0], rec[1], desc)
		if err != nil {
			fmt.Fprintf(out, "line %d: REJECTED - %s\n", line, detail(err))
			sum.Rejected++
			continue
		}

		if store == nil {
			fmt.Fprintf(out, "line %d: OK %s by %s\n", line, nb.Title, nb.Author)
			sum.Imported++
			continue
		}
		b, err := store.Create(ctx, nb)
		if err != nil {
			return sum, fmt.Errorf("line %d: %w", line, err)
		}
		fmt.Fprintf(out, "line %d: SUCCESS (ID: %d) %s by %s\n", line, b.ID, b.Title, b.Author)
		sum.Imported++
	}
}

func isHeader(rec []string) bool {
	return len(rec) >= 2 &&
		strings.EqualFold(strings.TrimSpace(rec[0]), "title") &&
		strings.EqualFold(strings.TrimSpace(rec[1]), "author")
}

func detail(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Detail
	}
	return err.Error()
}
