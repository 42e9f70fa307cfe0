package repository

import (
	"context"
	"iter"
	"strings"

	"github.com/OlaWak/heartpi/internal/models"
)

// RecordStore is the append-only user table holding credential rows and reading rows.
// Usernames compare case-insensitively, passwords case-sensitively.
// Implementations assume a single writer process.
type RecordStore interface {
	// Exists reports whether a credential row for username exists.
	Exists(ctx context.Context, username string) (bool, error)

	// Verify reports whether username/password match a credential row.
	Verify(ctx context.Context, username, password string) (bool, error)

	// AddCredential appends a credential row; returns models.ErrDuplicateUser if username exists.
	AddCredential(ctx context.Context, username, password string) error

	// AddReading appends one heart-rate sample for username.
	AddReading(ctx context.Context, username string, timestamp int64, heartRate float64) error

	// ReadingsFor yields username's samples in insertion order.
	// The sequence is lazy and may be ranged over more than once.
	ReadingsFor(ctx context.Context, username string) iter.Seq2[models.ReadingPoint, error]

	// Usernames lists registered usernames in registration order.
	Usernames(ctx context.Context) ([]string, error)

	Close() error
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func sameUser(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

var (
	_ RecordStore = (*CSVRecordStore)(nil)
	_ RecordStore = (*MemoryRecordStore)(nil)
	_ RecordStore = (*PostgresRecordStore)(nil)
)
