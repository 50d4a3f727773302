package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/godweb/backend/internal/auth"
	"github.com/godweb/backend/internal/services"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps a service error to an HTTP status. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidMethod),
		errors.Is(err, services.ErrInvalidDirection),
		errors.Is(err, auth.ErrInvalidProfile):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNoInventory),
		errors.Is(err, services.ErrAlreadyProcessed),
		errors.Is(err, services.ErrInUse),
		errors.Is(err, auth.ErrDuplicateAccount):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondErr writes err as a JSON error. Internal failures are logged with op
// and reported without detail.
func respondErr(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		loggerOr(log).Error(op, "error", err)
		writeError(w, status, "internal error")
		return
	}
	if errors.Is(err, services.ErrInUse) {
		writeError(w, status, "resource is still referenced")
		return
	}
	writeError(w, status, err.Error())
}

func pathID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// limitParam reads ?limit=, clamped to (0, maxLimit].
func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

func loggerOr(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
