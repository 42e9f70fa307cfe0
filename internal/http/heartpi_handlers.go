package httpapi

import (
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/OlaWak/heartpi/internal/export"
	"github.com/OlaWak/heartpi/internal/models"
	"github.com/OlaWak/heartpi/internal/service"

	"go.uber.org/zap"
)

// HeartPiHandler serves the HeartPi REST API.
type HeartPiHandler struct {
	accounts    service.AccountService
	assessments service.AssessmentService
	history     service.HistoryService
	caregiver   service.CaregiverService
	loc         *time.Location
	now         func() time.Time
	logger      *zap.Logger
}

func NewHeartPiHandler(
	accounts service.AccountService,
	assessments service.AssessmentService,
	history service.HistoryService,
	caregiver service.CaregiverService,
	loc *time.Location,
	logger *zap.Logger,
) *HeartPiHandler {
	if loc == nil {
		loc = time.Local
	}
	return &HeartPiHandler{
		accounts:    accounts,
		assessments: assessments,
		history:     history,
		caregiver:   caregiver,
		loc:         loc,
		now:         time.Now,
		logger:      logger,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type assessmentRequest struct {
	credentialsRequest
	Survey *models.SurveyAnswers `json:"survey"`
}

type alertRequest struct {
	credentialsRequest
	Recipient string `json:"recipient"`
}

type assessmentResponse struct {
	*service.AssessmentResult
	Tips []service.Tip `json:"tips"`
}

// decode writes a 400 and returns false on malformed JSON.
func (h *HeartPiHandler) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := readBodyJSON(r, maxBodyBytes, out); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return false
	}
	return true
}

// authenticate runs Login and writes the error response on failure.
func (h *HeartPiHandler) authenticate(w http.ResponseWriter, r *http.Request, c credentialsRequest) bool {
	if err := h.accounts.Login(r.Context(), c.Username, c.Password); err != nil {
		writeError(w, err)
		return false
	}
	return true
}

func (h *HeartPiHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	names, err := h.accounts.Usernames(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"usernames": names}))
}

func (h *HeartPiHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.accounts.Register(r.Context(), req.Username, req.Password); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"username": strings.TrimSpace(req.Username)}))
}

func (h *HeartPiHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.authenticate(w, r, req) {
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"username": strings.TrimSpace(req.Username)}))
}

func (h *HeartPiHandler) PreviewAssessment(w http.ResponseWriter, r *http.Request) {
	var req assessmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Survey == nil {
		writeError(w, models.NewValidationError("survey", "required"))
		return
	}
	res, err := h.assessments.Assess(r.Context(), *req.Survey)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(assessmentResponse{AssessmentResult: res, Tips: service.TipsFor(res.Tier)}))
}

func (h *HeartPiHandler) SubmitAssessment(w http.ResponseWriter, r *http.Request) {
	var req assessmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Survey == nil {
		writeError(w, models.NewValidationError("survey", "required"))
		return
	}
	if !h.authenticate(w, r, req.credentialsRequest) {
		return
	}

	res, err := h.assessments.Submit(r.Context(), strings.TrimSpace(req.Username), *req.Survey)
	if err != nil {
		if res != nil {
			// scored but not fully persisted
			writeJSON(w, statusFor(err), FailWith(messageFor(err), assessmentResponse{AssessmentResult: res, Tips: service.TipsFor(res.Tier)}))
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(assessmentResponse{AssessmentResult: res, Tips: service.TipsFor(res.Tier)}))
}

func (h *HeartPiHandler) History(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.authenticate(w, r, req) {
		return
	}
	summary, err := h.history.Summary(r.Context(), req.Username, r.URL.Query().Get("readings") != "false")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(summary))
}

func (h *HeartPiHandler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.authenticate(w, r, req) {
		return
	}
	summary, err := h.history.Summary(r.Context(), req.Username, true)
	if err != nil {
		writeError(w, err)
		return
	}
	b, err := export.GenerateHistoryWorkbook(summary, h.loc)
	if err != nil {
		h.logger.Error("Failed to generate history workbook", zap.String("username", summary.Username), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to generate export"))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": export.FileName(summary.Username, h.now().In(h.loc)),
	}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *HeartPiHandler) SendAlert(w http.ResponseWriter, r *http.Request) {
	var req alertRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Recipient) == "" {
		writeError(w, models.NewValidationError("recipient", "required"))
		return
	}
	if !h.authenticate(w, r, req.credentialsRequest) {
		return
	}
	msg, err := h.caregiver.SendAlert(r.Context(), req.Username, req.Recipient)
	if err != nil {
		if errors.Is(err, service.ErrAlertNotSent) {
			writeJSON(w, http.StatusBadGateway, Fail("failed to send the alert email"))
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"recipient": msg.To, "subject": msg.Subject}))
}

func (h *HeartPiHandler) Tips(w http.ResponseWriter, r *http.Request) {
	tier := models.TierLow
	if q := r.URL.Query().Get("tier"); q != "" {
		t, err := models.ParseRiskTier(q)
		if err != nil {
			writeError(w, err)
			return
		}
		tier = t
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"tier": tier, "tips": service.TipsFor(tier)}))
}
