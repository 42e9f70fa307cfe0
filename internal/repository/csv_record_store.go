package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"iter"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/OlaWak/heartpi/internal/models"

	"go.uber.org/zap"
)

// CredentialHeader is written once, ahead of the first row of a new store file.
var CredentialHeader = []string{"Username", "Password"}

// CSVRecordStore keeps both row shapes in one comma-separated file (userdata.csv).
// Rows are told apart by field count: 2 = credential, 3 = reading.
// Fields are RFC 4180 quoted, so a comma inside a password does not change the row arity.
type CSVRecordStore struct {
	path   string
	logger *zap.Logger

	mu   sync.Mutex // serialises appends
	file *os.File
}

// OpenCSVRecordStore opens (creating if needed) the store file for appending.
func OpenCSVRecordStore(path string, logger *zap.Logger) (*CSVRecordStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.Error("Failed to open record store",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, models.NewStorageError("open", path, err)
	}
	return &CSVRecordStore{path: path, logger: logger, file: f}, nil
}

func (s *CSVRecordStore) Path() string { return s.path }

func (s *CSVRecordStore) Exists(ctx context.Context, username string) (bool, error) {
	for rec, err := range s.Records(ctx) {
		if err != nil {
			return false, err
		}
		if rec.Kind == models.RecordCredential && sameUser(rec.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (s *CSVRecordStore) Verify(ctx context.Context, username, password string) (bool, error) {
	for rec, err := range s.Records(ctx) {
		if err != nil {
			return false, err
		}
		if rec.Kind == models.RecordCredential && sameUser(rec.Username, username) && rec.Password == password {
			return true, nil
		}
	}
	return false, nil
}

func (s *CSVRecordStore) AddCredential(ctx context.Context, username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.Exists(ctx, username)
	if err != nil {
		return err
	}
	if exists {
		return models.ErrDuplicateUser
	}
	return s.appendRow([]string{strings.TrimSpace(username), password})
}

func (s *CSVRecordStore) AddReading(ctx context.Context, username string, timestamp int64, heartRate float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendRow([]string{
		strings.TrimSpace(username),
		strconv.FormatInt(timestamp, 10),
		formatFloat(heartRate),
	})
}

func (s *CSVRecordStore) ReadingsFor(ctx context.Context, username string) iter.Seq2[models.ReadingPoint, error] {
	return func(yield func(models.ReadingPoint, error) bool) {
		for rec, err := range s.Records(ctx) {
			if err != nil {
				yield(models.ReadingPoint{}, err)
				return
			}
			if rec.Kind != models.RecordReading || !sameUser(rec.Username, username) {
				continue
			}
			if !yield(models.ReadingPoint{Timestamp: rec.Timestamp, HeartRate: rec.HeartRate}, nil) {
				return
			}
		}
	}
}

func (s *CSVRecordStore) Usernames(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	var out []string
	for rec, err := range s.Records(ctx) {
		if err != nil {
			return nil, err
		}
		if rec.Kind != models.RecordCredential {
			continue
		}
		key := normalizeUsername(rec.Username)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec.Username)
	}
	return out, nil
}

// Records yields every classified row of the file. Each range re-opens the file,
// so the sequence is restartable. A missing file yields nothing.
// Rows of unknown arity or with unparsable numbers are logged and skipped.
func (s *CSVRecordStore) Records(ctx context.Context) iter.Seq2[models.Record, error] {
	return func(yield func(models.Record, error) bool) {
		f, err := os.Open(s.path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return
			}
			yield(models.Record{}, s.readFailure(err))
			return
		}
		defer f.Close()

		r := csv.NewReader(f)
		r.FieldsPerRecord = -1
		r.LazyQuotes = true

		first := true
		for {
			if err := ctx.Err(); err != nil {
				yield(models.Record{}, err)
				return
			}
			fields, err := r.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				var pe *csv.ParseError
				if errors.As(err, &pe) {
					s.logger.Warn("Skipping unparsable record row",
						zap.String("path", s.path),
						zap.Int("line", pe.Line),
						zap.Error(err),
					)
					first = false
					continue
				}
				yield(models.Record{}, s.readFailure(err))
				return
			}
			if first {
				first = false
				if isCredentialHeader(fields) {
					continue
				}
			}

			line, _ := r.FieldPos(0)
			rec, ok := s.classify(fields, line)
			if !ok {
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (s *CSVRecordStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	if err != nil {
		return models.NewStorageError("close", s.path, err)
	}
	return nil
}

func (s *CSVRecordStore) classify(fields []string, line int) (models.Record, bool) {
	fields[0] = strings.TrimSpace(fields[0])
	switch len(fields) {
	case 2:
		// passwords are kept byte for byte
		return models.Record{Kind: models.RecordCredential, Username: fields[0], Password: fields[1]}, true
	case 3:
		fields[1] = strings.TrimSpace(fields[1])
		fields[2] = strings.TrimSpace(fields[2])
		ts, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			s.logger.Warn("Skipping reading row with bad timestamp",
				zap.String("path", s.path),
				zap.Int("line", line),
				zap.String("value", fields[1]),
			)
			return models.Record{}, false
		}
		hr, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			s.logger.Warn("Skipping reading row with bad heart rate",
				zap.String("path", s.path),
				zap.Int("line", line),
				zap.String("value", fields[2]),
			)
			return models.Record{}, false
		}
		return models.Record{Kind: models.RecordReading, Username: fields[0], Timestamp: ts, HeartRate: hr}, true
	default:
		s.logger.Warn("Skipping record row with unexpected field count",
			zap.String("path", s.path),
			zap.Int("line", line),
			zap.Int("fields", len(fields)),
		)
		return models.Record{}, false
	}
}

// appendRow writes one row (plus the header on an empty file), then flushes and fsyncs.
// Caller holds s.mu.
func (s *CSVRecordStore) appendRow(fields []string) error {
	if s.file == nil {
		return s.writeFailure(os.ErrClosed)
	}
	info, err := s.file.Stat()
	if err != nil {
		return s.writeFailure(err)
	}

	w := csv.NewWriter(s.file)
	if info.Size() == 0 {
		if err := w.Write(CredentialHeader); err != nil {
			return s.writeFailure(err)
		}
	}
	if err := w.Write(fields); err != nil {
		return s.writeFailure(err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return s.writeFailure(err)
	}
	if err := s.file.Sync(); err != nil {
		return s.writeFailure(err)
	}
	return nil
}

func (s *CSVRecordStore) readFailure(err error) error {
	s.logger.Error("Failed to read record store",
		zap.String("path", s.path),
		zap.Error(err),
	)
	return models.NewStorageError("read", s.path, err)
}

func (s *CSVRecordStore) writeFailure(err error) error {
	s.logger.Error("Failed to write record store",
		zap.String("path", s.path),
		zap.Error(err),
	)
	return models.NewStorageError("write", s.path, err)
}

func isCredentialHeader(fields []string) bool {
	if len(fields) != len(CredentialHeader) {
		return false
	}
	for i, h := range CredentialHeader {
		if !strings.EqualFold(strings.TrimSpace(fields[i]), h) {
			return false
		}
	}
	return true
}
