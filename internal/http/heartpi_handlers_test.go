package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/OlaWak/heartpi/internal/models"
	"github.com/OlaWak/heartpi/internal/notify"
	"github.com/OlaWak/heartpi/internal/repository"
	"github.com/OlaWak/heartpi/internal/service"
	"github.com/OlaWak/heartpi/internal/simulator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type fakeMailer struct {
	sent []notify.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg notify.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type testEnv struct {
	records repository.RecordStore
	mailer  *fakeMailer
	router  *Router
}

func newTestEnv(t *testing.T, records repository.RecordStore) *testEnv {
	t.Helper()
	if records == nil {
		records = repository.NewMemoryRecordStore()
	}
	logger := zap.NewNop()
	mailer := &fakeMailer{}

	accounts := service.NewAccountService(records, logger)
	assessments := service.NewAssessmentService(records, simulator.New(simulator.NewSeededSource(1, 2)), service.AssessmentOptions{
		Now: func() time.Time { return time.Unix(1700000000, 0) },
	}, logger)
	history := service.NewHistoryService(records, assessments, logger)
	caregiver := service.NewCaregiverService(history, mailer, time.UTC, logger)

	h := NewHeartPiHandler(accounts, assessments, history, caregiver, time.UTC, logger)
	r := NewRouter(logger)
	r.RegisterHeartPiRoutes(h)
	return &testEnv{records: records, mailer: mailer, router: r}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) Result[map[string]any] {
	t.Helper()
	var res Result[map[string]any]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

var highSurvey = map[string]any{
	"age_group":          6,
	"gender":             "male",
	"sleep_hours":        1,
	"exercise_frequency": 1,
	"diet_type":          4,
	"smoker":             true,
	"family_history": map[string]bool{
		"heart_disease":       true,
		"diabetes":            true,
		"high_cholesterol":    true,
		"high_blood_pressure": true,
	},
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/v1/accounts/register", map[string]string{"username": "alice", "password": "abc123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, ResultSuccess, decodeResult(t, w).Code)

	w = env.do(t, http.MethodPost, "/api/v1/accounts/register", map[string]string{"username": "ALICE", "password": "xyz789"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, ResultError, decodeResult(t, w).Code)

	w = env.do(t, http.MethodPost, "/api/v1/accounts/register", map[string]string{"username": "bob", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/accounts/login", map[string]string{"username": "Alice", "password": "abc123"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/accounts/login", map[string]string{"username": "alice", "password": "wrong1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/accounts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"alice"}, decodeResult(t, w).Result["usernames"])
}

func TestMalformedBodyAndMethod(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/register", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/accounts/register", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, http.MethodPost, w.Header().Get("Allow"))
}

func TestPreviewAssessment(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/v1/assessments/preview", map[string]any{"survey": highSurvey})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decodeResult(t, w).Result
	assert.Equal(t, float64(25), res["score"])
	assert.Equal(t, "High", res["tier"])
	assert.Equal(t, "High risk of heart disease.", res["message"])
	readings := res["readings"].(map[string]any)
	assert.GreaterOrEqual(t, readings["heart_rate"].(float64), 95.0)
	assert.LessOrEqual(t, readings["heart_rate"].(float64), 120.0)
	assert.NotEmpty(t, res["tips"])

	assert.Empty(t, env.records.(*repository.MemoryRecordStore).Rows())
}

func TestPreviewAssessment_InvalidSurvey(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/v1/assessments/preview", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	bad := map[string]any{"age_group": 7, "gender": "male", "sleep_hours": 1, "exercise_frequency": 1, "diet_type": 1}
	w = env.do(t, http.MethodPost, "/api/v1/assessments/preview", map[string]any{"survey": bad})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeResult(t, w).Message, "age_group")
}

func TestSubmitAssessmentAndHistory(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.records.AddCredential(context.Background(), "bob", "pass123"))

	w := env.do(t, http.MethodPost, "/api/v1/assessments", map[string]any{"username": "bob", "password": "wrong99", "survey": highSurvey})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/assessments", map[string]any{"username": "bob", "password": "pass123", "survey": highSurvey})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sub := decodeResult(t, w).Result
	assert.Equal(t, float64(20), sub["rows_written"])

	w = env.do(t, http.MethodPost, "/api/v1/history", map[string]string{"username": "BOB", "password": "pass123"})
	require.Equal(t, http.StatusOK, w.Code)
	hist := decodeResult(t, w).Result
	assert.Equal(t, float64(20), hist["count"])
	assert.Len(t, hist["readings"], 20)
	assert.Equal(t, sub["readings"].(map[string]any)["heart_rate"], hist["readings"].([]any)[0].(map[string]any)["heart_rate"])

	w = env.do(t, http.MethodPost, "/api/v1/history?readings=false", map[string]string{"username": "bob", "password": "pass123"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decodeResult(t, w).Result["readings"])
}

type brokenStore struct {
	*repository.MemoryRecordStore
}

func (brokenStore) AddReading(context.Context, string, int64, float64) error {
	return models.NewStorageError("write", "/var/lib/heartpi/userdata.csv", os.ErrPermission)
}

func TestSubmitAssessment_StorageFailureKeepsResult(t *testing.T) {
	env := newTestEnv(t, brokenStore{repository.NewMemoryRecordStore()})
	require.NoError(t, env.records.AddCredential(context.Background(), "bob", "pass123"))

	w := env.do(t, http.MethodPost, "/api/v1/assessments", map[string]any{"username": "bob", "password": "pass123", "survey": highSurvey})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	res := decodeResult(t, w)
	assert.Equal(t, ResultError, res.Code)
	assert.Equal(t, "storage unavailable", res.Message)
	assert.NotContains(t, w.Body.String(), "/var/lib/heartpi")
	assert.Equal(t, "High", res.Result["tier"])
	assert.Equal(t, float64(0), res.Result["rows_written"])
}

func TestExportHistory(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, env.records.AddCredential(ctx, "bob", "pass123"))
	require.NoError(t, env.records.AddReading(ctx, "bob", 1700000000, 72))

	w := env.do(t, http.MethodPost, "/api/v1/history/export", map[string]string{"username": "bob", "password": "pass123"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "heartpi_bob_")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Readings")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestSendAlert(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, env.records.AddCredential(ctx, "bob", "pass123"))
	require.NoError(t, env.records.AddReading(ctx, "bob", 1700000000, 110))

	w := env.do(t, http.MethodPost, "/api/v1/alerts", map[string]string{"username": "bob", "password": "pass123", "recipient": "carer@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, env.mailer.sent, 1)
	assert.True(t, strings.HasPrefix(env.mailer.sent[0].Subject, "🚨 HIGH RISK DETECTED"))

	w = env.do(t, http.MethodPost, "/api/v1/alerts", map[string]string{"username": "bob", "password": "pass123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/alerts", map[string]string{"username": "bob", "password": "pass123", "recipient": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.mailer.err = assert.AnError
	w = env.do(t, http.MethodPost, "/api/v1/alerts", map[string]string{"username": "bob", "password": "pass123", "recipient": "carer@example.com"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestTipsAndHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/api/v1/tips?tier=moderate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decodeResult(t, w).Result
	assert.Equal(t, "Moderate", res["tier"])
	assert.NotEmpty(t, res["tips"])

	w = env.do(t, http.MethodGet, "/api/v1/tips?tier=extreme", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
