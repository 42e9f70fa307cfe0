package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/OlaWak/heartpi/internal/models"
	"github.com/OlaWak/heartpi/internal/repository"
	"github.com/OlaWak/heartpi/internal/risk"
	"github.com/OlaWak/heartpi/internal/simulator"
	"github.com/OlaWak/heartpi/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const latestKeyPrefix = "heartpi:latest:"

// AssessmentResult is the outcome of one survey.
type AssessmentResult struct {
	AssessmentID string          `json:"assessment_id"`
	Username     string          `json:"username,omitempty"`
	Score        int             `json:"score"`
	Tier         models.RiskTier `json:"tier"`
	Message      string          `json:"message"`
	Readings     models.Readings `json:"readings"`
	Timestamp    int64           `json:"timestamp"`
	RowsWritten  int             `json:"rows_written"`
}

// ReadingLogger records the full simulated reading set of each submission.
type ReadingLogger interface {
	Log(at time.Time, r models.Readings) error
}

// EventPublisher receives one event per persisted assessment.
type EventPublisher interface {
	PublishJSON(ctx context.Context, data any) (string, error)
}

// AssessmentOptions optional collaborators and tuning; zero values fall back to defaults.
type AssessmentOptions struct {
	FollowUpSamples int     // default 19; set NoFollowUps to write only the primary reading
	FollowUpSpread  float64 // default 5 bpm
	NoFollowUps     bool
	ReadingLog      ReadingLogger
	Publisher       EventPublisher
	Cache           store.KV
	CacheTTL        time.Duration
	Now             func() time.Time
}

// AssessmentService scores surveys and persists the simulated readings.
type AssessmentService interface {
	// Assess scores answers and simulates readings without touching storage.
	Assess(ctx context.Context, answers models.SurveyAnswers) (*AssessmentResult, error)

	// Submit runs Assess and appends one reading row at now plus the follow-up rows at now+1..now+N.
	// When only persistence fails the result is returned together with the storage error.
	Submit(ctx context.Context, username string, answers models.SurveyAnswers) (*AssessmentResult, error)

	// Latest returns the cached last assessment for username, or nil when none is cached.
	Latest(ctx context.Context, username string) (*AssessmentResult, error)
}

type assessmentService struct {
	records repository.RecordStore
	sim     *simulator.Simulator
	opts    AssessmentOptions
	logger  *zap.Logger
}

func NewAssessmentService(records repository.RecordStore, sim *simulator.Simulator, opts AssessmentOptions, logger *zap.Logger) AssessmentService {
	if opts.FollowUpSamples <= 0 && !opts.NoFollowUps {
		opts.FollowUpSamples = 19
	}
	if opts.NoFollowUps {
		opts.FollowUpSamples = 0
	}
	if opts.FollowUpSpread <= 0 {
		opts.FollowUpSpread = 5
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if sim == nil {
		sim = simulator.New(nil)
	}
	return &assessmentService{records: records, sim: sim, opts: opts, logger: logger}
}

func (s *assessmentService) Assess(_ context.Context, answers models.SurveyAnswers) (*AssessmentResult, error) {
	ev, err := risk.Evaluate(answers)
	if err != nil {
		return nil, err
	}
	return &AssessmentResult{
		AssessmentID: uuid.NewString(),
		Score:        ev.Score,
		Tier:         ev.Tier,
		Message:      ev.Tier.Message(),
		Readings:     s.sim.Simulate(ev.Tier),
		Timestamp:    s.opts.Now().Unix(),
	}, nil
}

func (s *assessmentService) Submit(ctx context.Context, username string, answers models.SurveyAnswers) (*AssessmentResult, error) {
	// 1. score and simulate
	res, err := s.Assess(ctx, answers)
	if err != nil {
		return nil, err
	}
	res.Username = username
	now := res.Timestamp

	// 2. primary reading, then follow-ups around it
	hr := res.Readings.HeartRate
	if err := s.records.AddReading(ctx, username, now, hr); err != nil {
		return res, s.persistFailed(res, err)
	}
	res.RowsWritten++
	for i := 1; i <= s.opts.FollowUpSamples; i++ {
		if err := s.records.AddReading(ctx, username, now+int64(i), s.sim.Around(hr, s.opts.FollowUpSpread)); err != nil {
			return res, s.persistFailed(res, err)
		}
		res.RowsWritten++
	}

	// 3. full reading set to the reading log
	var logErr error
	if s.opts.ReadingLog != nil {
		logErr = s.opts.ReadingLog.Log(time.Unix(now, 0), res.Readings)
	}

	// 4. cache and event stream are best effort
	s.cacheLatest(ctx, res)
	s.publish(ctx, res)

	s.logger.Info("Assessment submitted",
		zap.String("assessment_id", res.AssessmentID),
		zap.String("username", username),
		zap.Int("score", res.Score),
		zap.String("tier", res.Tier.String()),
		zap.Int("rows_written", res.RowsWritten),
	)
	if logErr != nil {
		return res, logErr
	}
	return res, nil
}

func (s *assessmentService) Latest(ctx context.Context, username string) (*AssessmentResult, error) {
	if s.opts.Cache == nil {
		return nil, nil
	}
	raw, err := s.opts.Cache.Get(ctx, latestKey(username))
	if errors.Is(err, store.ErrMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var res AssessmentResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		s.logger.Warn("Discarding unreadable cached assessment", zap.String("username", username), zap.Error(err))
		return nil, nil
	}
	return &res, nil
}

func (s *assessmentService) persistFailed(res *AssessmentResult, err error) error {
	s.logger.Error("Assessment computed but readings not persisted",
		zap.String("assessment_id", res.AssessmentID),
		zap.String("username", res.Username),
		zap.Int("rows_written", res.RowsWritten),
		zap.Error(err),
	)
	return err
}

func (s *assessmentService) cacheLatest(ctx context.Context, res *AssessmentResult) {
	if s.opts.Cache == nil {
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.opts.Cache.Set(ctx, latestKey(res.Username), string(b), s.opts.CacheTTL); err != nil {
		s.logger.Warn("Failed to cache latest assessment", zap.String("username", res.Username), zap.Error(err))
	}
}

func (s *assessmentService) publish(ctx context.Context, res *AssessmentResult) {
	if s.opts.Publisher == nil {
		return
	}
	if _, err := s.opts.Publisher.PublishJSON(ctx, res); err != nil {
		s.logger.Warn("Failed to publish assessment event", zap.String("assessment_id", res.AssessmentID), zap.Error(err))
	}
}

func latestKey(username string) string {
	return latestKeyPrefix + normalizeKey(username)
}
