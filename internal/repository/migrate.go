package repository

import (
	"context"
	"errors"
	"iter"

	"github.com/OlaWak/heartpi/internal/models"

	"go.uber.org/zap"
)

// MigrationStats counts what CopyRecords did.
type MigrationStats struct {
	Credentials         int `json:"credentials"`
	Readings            int `json:"readings"`
	DuplicateCredential int `json:"duplicate_credentials"`
}

// CopyRecords replays src into dst in order. Credentials already present in dst are
// skipped and counted; any other error stops the copy.
func CopyRecords(ctx context.Context, src iter.Seq2[models.Record, error], dst RecordStore, logger *zap.Logger) (MigrationStats, error) {
	var st MigrationStats
	for rec, err := range src {
		if err != nil {
			return st, err
		}
		switch rec.Kind {
		case models.RecordCredential:
			err := dst.AddCredential(ctx, rec.Username, rec.Password)
			if errors.Is(err, models.ErrDuplicateUser) {
				logger.Warn("Skipping duplicate credential", zap.String("username", rec.Username))
				st.DuplicateCredential++
				continue
			}
			if err != nil {
				return st, err
			}
			st.Credentials++
		case models.RecordReading:
			if err := dst.AddReading(ctx, rec.Username, rec.Timestamp, rec.HeartRate); err != nil {
				return st, err
			}
			st.Readings++
		}
	}
	return st, nil
}
