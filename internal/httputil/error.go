package httputil

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
)

type errorResponse struct {
	Error string `json:"error"`
}

// StatusFor maps a domain error onto its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, bracket.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, bracket.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, bracket.ErrLockTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, bracket.ErrRebuildRejected),
		errors.Is(err, bracket.ErrResultConflict),
		errors.Is(err, bracket.ErrAlreadyRegistered),
		errors.Is(err, bracket.ErrRegistrationOpen),
		errors.Is(err, bracket.ErrRegistrationClosed):
		return http.StatusConflict
	case errors.Is(err, bracket.ErrInsufficientParticipants),
		errors.Is(err, bracket.ErrMatchNotReady),
		errors.Is(err, bracket.ErrInvalidWinner),
		errors.Is(err, bracket.ErrCapacityExceeded),
		errors.Is(err, bracket.ErrInvalidRegistration),
		errors.Is(err, bracket.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err with the status StatusFor picks. Unmapped errors are
// logged and hidden behind a generic message.
func Error(w http.ResponseWriter, msg string, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		InternalServerError(w, msg, err)
		return
	}
	slog.Warn("request rejected", "message", msg, "status", status, "error", err)
	writeError(w, status, err.Error())
}

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, "Internal Server Error")
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	writeError(w, http.StatusBadRequest, msg)
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	writeError(w, http.StatusNotFound, msg)
}

func Unauthorized(w http.ResponseWriter, msg string, err error) {
	slog.Warn("unauthorized", "message", msg, "error", err)
	writeError(w, http.StatusUnauthorized, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	if err := WriteJSON(w, status, errorResponse{Error: msg}); err != nil {
		slog.Error("failed to write error response", "error", err)
	}
}
