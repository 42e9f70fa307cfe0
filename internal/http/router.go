package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router wraps http.ServeMux.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// method rejects requests whose method is not m.
func method(m string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != m {
			w.Header().Set("Allow", m)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}

// RegisterHeartPiRoutes mounts the account, assessment, history, alert and tips endpoints.
func (r *Router) RegisterHeartPiRoutes(h *HeartPiHandler) {
	r.Handle("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Ok("ok"))
	})

	// accounts
	r.Handle("/api/v1/accounts", method(http.MethodGet, h.ListAccounts))
	r.Handle("/api/v1/accounts/register", method(http.MethodPost, h.Register))
	r.Handle("/api/v1/accounts/login", method(http.MethodPost, h.Login))

	// assessments
	r.Handle("/api/v1/assessments", method(http.MethodPost, h.SubmitAssessment))
	r.Handle("/api/v1/assessments/preview", method(http.MethodPost, h.PreviewAssessment))

	// history and caregiver alerts
	r.Handle("/api/v1/history", method(http.MethodPost, h.History))
	r.Handle("/api/v1/history/export", method(http.MethodPost, h.ExportHistory))
	r.Handle("/api/v1/alerts", method(http.MethodPost, h.SendAlert))

	r.Handle("/api/v1/tips", method(http.MethodGet, h.Tips))
}
