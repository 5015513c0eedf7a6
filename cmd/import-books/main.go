package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/5w1tchy/reading-list/internal/config"
	"github.com/5w1tchy/reading-list/internal/store/books"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		file    string
		backend string
		dsn     string
		dryRun  bool
		schema  bool
	)

	cmd := &cobra.Command{
		Use:   "import-books --file books.csv",
		Short: "Bulk-load books from a CSV file",
		Long: `Reads rows of title,author[,description] and creates one book per row.
Rows are validated with the same rules as the HTTP API. A leading
"title,author" header row is skipped.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			var store books.Store
			if !dryRun {
				if backend == config.BackendSQLite && dsn == "" {
					dsn = config.DefaultSQLiteDSN
				}
				store, err = books.Open(cmd.Context(), backend, dsn, schema)
				if err != nil {
					return err
				}
				defer store.Close()
			}

			sum, err := importCSV(cmd.Context(), f, store, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nImport complete!\nImported: %d\nRejected: %d\n", sum.Imported, sum.Rejected)
			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), "(dry run: nothing was written)")
			}
			if sum.Rejected > 0 {
				return fmt.Errorf("%d row(s) rejected", sum.Rejected)
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&file, "file", "f", "", "CSV file to import")
	fl.StringVar(&backend, "backend", envOr("STORAGE_BACKEND", config.BackendSQLite), "storage backend: sqlite or postgres")
	fl.StringVar(&dsn, "dsn", os.Getenv("DATABASE_URL"), "database URL or sqlite path")
	fl.BoolVar(&dryRun, "dry-run", false, "validate rows without writing")
	fl.BoolVar(&schema, "ensure-schema", true, "create the books table if it does not exist")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
