package repository

import (
	"context"
	"database/sql"
	"errors"
	"iter"
	"strings"

	"github.com/OlaWak/heartpi/internal/models"

	"go.uber.org/zap"
)

// PostgresSchema creates the two tables backing PostgresRecordStore.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS heartpi_credentials (
	id           BIGSERIAL PRIMARY KEY,
	username_key TEXT NOT NULL UNIQUE,
	username     TEXT NOT NULL,
	password     TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS heartpi_readings (
	id           BIGSERIAL PRIMARY KEY,
	username_key TEXT NOT NULL,
	username     TEXT NOT NULL,
	ts           BIGINT NOT NULL,
	heart_rate   DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_heartpi_readings_user ON heartpi_readings (username_key, id);
`

// PostgresRecordStore stores the two row shapes in separate tables; insertion order is the id sequence.
type PostgresRecordStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresRecordStore(db *sql.DB, logger *zap.Logger) *PostgresRecordStore {
	return &PostgresRecordStore{db: db, logger: logger}
}

// EnsureSchema creates the tables if they do not exist.
func (s *PostgresRecordStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, PostgresSchema); err != nil {
		return s.failure("migrate", "heartpi_credentials", err)
	}
	return nil
}

func (s *PostgresRecordStore) Exists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM heartpi_credentials WHERE username_key = $1)`,
		normalizeUsername(username),
	).Scan(&exists)
	if err != nil {
		return false, s.failure("query", "heartpi_credentials", err)
	}
	return exists, nil
}

func (s *PostgresRecordStore) Verify(ctx context.Context, username, password string) (bool, error) {
	var stored string
	err := s.db.QueryRowContext(ctx,
		`SELECT password FROM heartpi_credentials WHERE username_key = $1`,
		normalizeUsername(username),
	).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, s.failure("query", "heartpi_credentials", err)
	}
	return stored == password, nil
}

func (s *PostgresRecordStore) AddCredential(ctx context.Context, username, password string) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO heartpi_credentials (username_key, username, password)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (username_key) DO NOTHING`,
		normalizeUsername(username),
		strings.TrimSpace(username),
		password,
	)
	if err != nil {
		return s.failure("insert", "heartpi_credentials", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.failure("insert", "heartpi_credentials", err)
	}
	if n == 0 {
		return models.ErrDuplicateUser
	}
	return nil
}

func (s *PostgresRecordStore) AddReading(ctx context.Context, username string, timestamp int64, heartRate float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO heartpi_readings (username_key, username, ts, heart_rate) VALUES ($1, $2, $3, $4)`,
		normalizeUsername(username),
		strings.TrimSpace(username),
		timestamp,
		heartRate,
	)
	if err != nil {
		return s.failure("insert", "heartpi_readings", err)
	}
	return nil
}

func (s *PostgresRecordStore) ReadingsFor(ctx context.Context, username string) iter.Seq2[models.ReadingPoint, error] {
	return func(yield func(models.ReadingPoint, error) bool) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT ts, heart_rate FROM heartpi_readings WHERE username_key = $1 ORDER BY id`,
			normalizeUsername(username),
		)
		if err != nil {
			yield(models.ReadingPoint{}, s.failure("query", "heartpi_readings", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var p models.ReadingPoint
			if err := rows.Scan(&p.Timestamp, &p.HeartRate); err != nil {
				yield(models.ReadingPoint{}, s.failure("scan", "heartpi_readings", err))
				return
			}
			if !yield(p, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(models.ReadingPoint{}, s.failure("query", "heartpi_readings", err))
		}
	}
}

func (s *PostgresRecordStore) Usernames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT username FROM heartpi_credentials ORDER BY id`)
	if err != nil {
		return nil, s.failure("query", "heartpi_credentials", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, s.failure("scan", "heartpi_credentials", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, s.failure("query", "heartpi_credentials", err)
	}
	return out, nil
}

func (s *PostgresRecordStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresRecordStore) failure(op, table string, err error) error {
	s.logger.Error("Record store query failed",
		zap.String("op", op),
		zap.String("table", table),
		zap.Error(err),
	)
	return models.NewStorageError(op, table, err)
}
