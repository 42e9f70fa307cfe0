package repository

import (
	"context"
	"iter"
	"strings"
	"sync"

	"github.com/OlaWak/heartpi/internal/models"
)

// MemoryRecordStore is the in-memory RecordStore used by tests and STORE_BACKEND=memory.
type MemoryRecordStore struct {
	mu   sync.RWMutex
	rows []models.Record
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{}
}

func (s *MemoryRecordStore) Exists(_ context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.existsLocked(username), nil
}

func (s *MemoryRecordStore) Verify(_ context.Context, username, password string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rows {
		if r.Kind == models.RecordCredential && sameUser(r.Username, username) && r.Password == password {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryRecordStore) AddCredential(_ context.Context, username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsLocked(username) {
		return models.ErrDuplicateUser
	}
	s.rows = append(s.rows, models.Record{
		Kind:     models.RecordCredential,
		Username: strings.TrimSpace(username),
		Password: password,
	})
	return nil
}

func (s *MemoryRecordStore) AddReading(ctx context.Context, username string, timestamp int64, heartRate float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, models.Record{
		Kind:      models.RecordReading,
		Username:  strings.TrimSpace(username),
		Timestamp: timestamp,
		HeartRate: heartRate,
	})
	return nil
}

// ReadingsFor iterates over a snapshot taken when ranging starts.
func (s *MemoryRecordStore) ReadingsFor(ctx context.Context, username string) iter.Seq2[models.ReadingPoint, error] {
	return func(yield func(models.ReadingPoint, error) bool) {
		for _, r := range s.Rows() {
			if err := ctx.Err(); err != nil {
				yield(models.ReadingPoint{}, err)
				return
			}
			if r.Kind != models.RecordReading || !sameUser(r.Username, username) {
				continue
			}
			if !yield(models.ReadingPoint{Timestamp: r.Timestamp, HeartRate: r.HeartRate}, nil) {
				return
			}
		}
	}
}

func (s *MemoryRecordStore) Usernames(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, r := range s.rows {
		if r.Kind == models.RecordCredential {
			out = append(out, r.Username)
		}
	}
	return out, nil
}

// Rows returns a copy of every row in insertion order.
func (s *MemoryRecordStore) Rows() []models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Record, len(s.rows))
	copy(out, s.rows)
	return out
}

func (s *MemoryRecordStore) Close() error { return nil }

func (s *MemoryRecordStore) existsLocked(username string) bool {
	for _, r := range s.rows {
		if r.Kind == models.RecordCredential && sameUser(r.Username, username) {
			return true
		}
	}
	return false
}
