package repository

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/OlaWak/heartpi/internal/models"

	"go.uber.org/zap"
)

// ReadingLogHeader heads the full-reading log file (kept apart from userdata.csv).
var ReadingLogHeader = []string{"Timestamp", "HeartRate", "SysBP", "DiaBP", "Cholesterol", "ECG"}

// ReadingLogTimeFormat is the local-time stamp written in the first column.
const ReadingLogTimeFormat = "06-01-02 15:04:05"

// ReadingLog appends one line per assessment with all five simulated values.
type ReadingLog struct {
	path   string
	logger *zap.Logger

	mu   sync.Mutex
	file *os.File
}

// OpenReadingLog opens path for appending and writes the header if the file is empty.
func OpenReadingLog(path string, logger *zap.Logger) (*ReadingLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.Error("Failed to open the reading log", zap.String("path", path), zap.Error(err))
		return nil, models.NewStorageError("open", path, err)
	}
	l := &ReadingLog{path: path, logger: logger, file: f}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, models.NewStorageError("stat", path, err)
	}
	if info.Size() == 0 {
		if err := l.write(ReadingLogHeader); err != nil {
			f.Close()
			return nil, err
		}
	}
	return l, nil
}

// Log appends r stamped with at.
func (l *ReadingLog) Log(at time.Time, r models.Readings) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.write([]string{
		at.Local().Format(ReadingLogTimeFormat),
		formatFloat(r.HeartRate),
		formatFloat(r.SystolicBP),
		formatFloat(r.DiastolicBP),
		formatFloat(r.Cholesterol),
		formatFloat(r.ECG),
	})
}

func (l *ReadingLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *ReadingLog) write(fields []string) error {
	if l.file == nil {
		l.logger.Error("The reading log is not open", zap.String("path", l.path))
		return models.NewStorageError("write", l.path, os.ErrClosed)
	}
	w := csv.NewWriter(l.file)
	if err := w.Write(fields); err != nil {
		return l.fail(err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return l.fail(err)
	}
	if err := l.file.Sync(); err != nil {
		return l.fail(err)
	}
	return nil
}

func (l *ReadingLog) fail(err error) error {
	l.logger.Error("Failed to write the reading log", zap.String("path", l.path), zap.Error(err))
	return models.NewStorageError("write", l.path, err)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
