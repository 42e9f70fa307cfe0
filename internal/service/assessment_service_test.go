package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OlaWak/heartpi/internal/models"
	"github.com/OlaWak/heartpi/internal/repository"
	"github.com/OlaWak/heartpi/internal/simulator"
	"github.com/OlaWak/heartpi/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Unix(1700000000, 0)

func highRiskAnswers() models.SurveyAnswers {
	return models.SurveyAnswers{
		AgeGroup:          6,
		Gender:            models.GenderMale,
		SleepHours:        1,
		ExerciseFrequency: 1,
		DietType:          models.DietWestern,
		Smoker:            true,
		FamilyHistory: models.FamilyHistory{
			HeartDisease:      true,
			Diabetes:          true,
			HighCholesterol:   true,
			HighBloodPressure: true,
		},
	}
}

func lowRiskAnswers() models.SurveyAnswers {
	return models.SurveyAnswers{
		AgeGroup:          1,
		Gender:            models.GenderFemale,
		SleepHours:        3,
		ExerciseFrequency: 4,
		DietType:          models.DietBalanced,
	}
}

func newTestAssessmentService(t *testing.T, records repository.RecordStore, opts AssessmentOptions) AssessmentService {
	t.Helper()
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	sim := simulator.New(simulator.NewSeededSource(42, 7))
	return NewAssessmentService(records, sim, opts, zap.NewNop())
}

func collect(t *testing.T, records repository.RecordStore, username string) []models.ReadingPoint {
	t.Helper()
	var out []models.ReadingPoint
	for p, err := range records.ReadingsFor(context.Background(), username) {
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func TestAssessmentService_EndToEndHighRisk(t *testing.T) {
	svc := newTestAssessmentService(t, repository.NewMemoryRecordStore(), AssessmentOptions{})

	res, err := svc.Assess(context.Background(), highRiskAnswers())
	require.NoError(t, err)

	assert.Equal(t, 25, res.Score)
	assert.Equal(t, models.TierHigh, res.Tier)
	assert.Equal(t, "High risk of heart disease.", res.Message)
	assert.GreaterOrEqual(t, res.Readings.HeartRate, 95.0)
	assert.LessOrEqual(t, res.Readings.HeartRate, 120.0)
	assert.NotEmpty(t, res.AssessmentID)
	assert.Equal(t, fixedNow.Unix(), res.Timestamp)
}

func TestAssessmentService_AssessDoesNotPersist(t *testing.T) {
	records := repository.NewMemoryRecordStore()
	svc := newTestAssessmentService(t, records, AssessmentOptions{})

	_, err := svc.Assess(context.Background(), lowRiskAnswers())
	require.NoError(t, err)
	assert.Empty(t, records.Rows())
}

func TestAssessmentService_SubmitWritesTwentyRows(t *testing.T) {
	records := repository.NewMemoryRecordStore()
	svc := newTestAssessmentService(t, records, AssessmentOptions{})

	res, err := svc.Submit(context.Background(), "bob", highRiskAnswers())
	require.NoError(t, err)
	assert.Equal(t, 20, res.RowsWritten)

	rows := collect(t, records, "bob")
	require.Len(t, rows, 20)

	assert.Equal(t, res.Readings.HeartRate, rows[0].HeartRate)
	assert.Equal(t, fixedNow.Unix(), rows[0].Timestamp)
	for i, p := range rows[1:] {
		assert.Equal(t, fixedNow.Unix()+int64(i+1), p.Timestamp)
		assert.InDelta(t, res.Readings.HeartRate, p.HeartRate, 5.0)
	}
}

func TestAssessmentService_SubmitFollowUpOptions(t *testing.T) {
	t.Run("custom count", func(t *testing.T) {
		records := repository.NewMemoryRecordStore()
		svc := newTestAssessmentService(t, records, AssessmentOptions{FollowUpSamples: 4, FollowUpSpread: 1})

		res, err := svc.Submit(context.Background(), "bob", lowRiskAnswers())
		require.NoError(t, err)
		rows := collect(t, records, "bob")
		require.Len(t, rows, 5)
		for _, p := range rows[1:] {
			assert.InDelta(t, res.Readings.HeartRate, p.HeartRate, 1.0)
		}
	})
	t.Run("none", func(t *testing.T) {
		records := repository.NewMemoryRecordStore()
		svc := newTestAssessmentService(t, records, AssessmentOptions{NoFollowUps: true})

		_, err := svc.Submit(context.Background(), "bob", lowRiskAnswers())
		require.NoError(t, err)
		assert.Len(t, collect(t, records, "bob"), 1)
	})
}

func TestAssessmentService_SubmitRejectsInvalidAnswers(t *testing.T) {
	records := repository.NewMemoryRecordStore()
	svc := newTestAssessmentService(t, records, AssessmentOptions{})

	bad := highRiskAnswers()
	bad.DietType = 9
	res, err := svc.Submit(context.Background(), "bob", bad)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Empty(t, records.Rows())
}

// failingStore accepts okWrites readings and then fails every write.
type failingStore struct {
	*repository.MemoryRecordStore
	okWrites int
}

func (f *failingStore) AddReading(ctx context.Context, username string, ts int64, hr float64) error {
	if f.okWrites <= 0 {
		return models.NewStorageError("write", "userdata.csv", os.ErrPermission)
	}
	f.okWrites--
	return f.MemoryRecordStore.AddReading(ctx, username, ts, hr)
}

func TestAssessmentService_SubmitKeepsResultWhenStorageFails(t *testing.T) {
	records := &failingStore{MemoryRecordStore: repository.NewMemoryRecordStore(), okWrites: 3}
	svc := newTestAssessmentService(t, records, AssessmentOptions{})

	res, err := svc.Submit(context.Background(), "bob", highRiskAnswers())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrStorageIO)
	assert.ErrorIs(t, err, os.ErrPermission)

	require.NotNil(t, res)
	assert.Equal(t, models.TierHigh, res.Tier)
	assert.Equal(t, 25, res.Score)
	assert.Equal(t, 3, res.RowsWritten)
}

func TestAssessmentService_ReadingLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heart_log.csv")
	rl, err := repository.OpenReadingLog(path, zap.NewNop())
	require.NoError(t, err)
	defer rl.Close()

	svc := newTestAssessmentService(t, repository.NewMemoryRecordStore(), AssessmentOptions{ReadingLog: rl})
	_, err = svc.Submit(context.Background(), "bob", lowRiskAnswers())
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "Timestamp,HeartRate,SysBP,DiaBP,Cholesterol,ECG\n")
	assert.Contains(t, string(b), fixedNow.Local().Format(repository.ReadingLogTimeFormat)+",")
}

type recordingPublisher struct {
	events []any
	err    error
}

func (p *recordingPublisher) PublishJSON(_ context.Context, data any) (string, error) {
	p.events = append(p.events, data)
	return "1-0", p.err
}

func TestAssessmentService_CacheAndPublish(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()

	pub := &recordingPublisher{}
	svc := newTestAssessmentService(t, repository.NewMemoryRecordStore(), AssessmentOptions{
		Cache:     store.NewRedisKV(rc),
		CacheTTL:  time.Hour,
		Publisher: pub,
	})
	ctx := context.Background()

	latest, err := svc.Latest(ctx, "Bob")
	require.NoError(t, err)
	assert.Nil(t, latest)

	res, err := svc.Submit(ctx, "Bob", highRiskAnswers())
	require.NoError(t, err)

	assert.True(t, mr.Exists("heartpi:latest:bob"))
	assert.Equal(t, time.Hour, mr.TTL("heartpi:latest:bob"))

	latest, err = svc.Latest(ctx, "BOB")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, res.AssessmentID, latest.AssessmentID)
	assert.Equal(t, models.TierHigh, latest.Tier)
	assert.Equal(t, res.Readings, latest.Readings)

	require.Len(t, pub.events, 1)
	assert.Equal(t, res, pub.events[0])
}

func TestAssessmentService_SideChannelFailuresDoNotFailSubmit(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()
	mr.Close()

	records := repository.NewMemoryRecordStore()
	svc := newTestAssessmentService(t, records, AssessmentOptions{
		Cache:     store.NewRedisKV(rc),
		Publisher: &recordingPublisher{err: errors.New("stream unavailable")},
	})

	res, err := svc.Submit(context.Background(), "bob", lowRiskAnswers())
	require.NoError(t, err)
	assert.Equal(t, 20, res.RowsWritten)
}

func TestAssessmentService_SeededRunsAreReproducible(t *testing.T) {
	run := func() *AssessmentResult {
		svc := newTestAssessmentService(t, repository.NewMemoryRecordStore(), AssessmentOptions{})
		res, err := svc.Submit(context.Background(), "bob", highRiskAnswers())
		require.NoError(t, err)
		return res
	}
	a, b := run(), run()
	assert.Equal(t, a.Readings, b.Readings)
	assert.NotEqual(t, a.AssessmentID, b.AssessmentID)
}
