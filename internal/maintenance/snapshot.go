// Package maintenance holds background jobs that run next to the API.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/5w1tchy/reading-list/internal/models"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const snapshotPrefix = "snapshots/"

type Lister interface {
	List(ctx context.Context) ([]models.Book, error)
}

type Uploader interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) error
}

type snapshot struct {
	TakenAt time.Time     `json:"taken_at"`
	Count   int           `json:"count"`
	Books   []models.Book `json:"books"`
}

// SnapshotKey names the object for a snapshot taken at t.
func SnapshotKey(t time.Time) string {
	return snapshotPrefix + t.UTC().Format("20060102T150405Z") + ".json"
}

// SnapshotOnce uploads the whole reading list as one JSON document and
// returns the object key.
func SnapshotOnce(ctx context.Context, src Lister, dst Uploader, now time.Time) (string, error) {
	books, err := src.List(ctx)
	if err != nil {
		return "", fmt.Errorf("snapshot: list books: %w", err)
	}
	if books == nil {
		books = []models.Book{}
	}
	body, err := json.Marshal(snapshot{TakenAt: now.UTC(), Count: len(books), Books: books})
	if err != nil {
		return "", fmt.Errorf("snapshot: encode: %w", err)
	}
	key := SnapshotKey(now)
	if err := dst.PutObject(ctx, key, "application/json", body); err != nil {
		return "", err
	}
	return key, nil
}

// NextRun is the first hour:minute in loc strictly after now.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	now = now.In(loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// StartSnapshots runs SnapshotOnce daily at hour:minute in tzName until ctx
// is done. Failures are logged and retried at the next slot.
func StartSnapshots(ctx context.Context, src Lister, dst Uploader, hour, minute int, tzName string, logger *slog.Logger) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("job", "snapshot")

	go func() {
		for {
			next := NextRun(time.Now(), hour, minute, loc)
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				key, err := SnapshotOnce(ctx, src, dst, time.Now())
				if err != nil {
					logger.Error("snapshot failed", "err", err)
					continue
				}
				logger.Info("snapshot uploaded", "key", key)
			}
		}
	}()
}
