package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/OlaWak/heartpi/internal/models"
	"github.com/OlaWak/heartpi/internal/service"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrDuplicateUser):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrAlertNotSent):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// messageFor hides storage internals from clients.
func messageFor(err error) string {
	if errors.Is(err, models.ErrStorageIO) {
		return "storage unavailable"
	}
	return err.Error()
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), Fail(messageFor(err)))
}
