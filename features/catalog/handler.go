package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"coursepilot/backend/internal/middleware"
	"coursepilot/backend/internal/retrieval"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var course retrieval.Course
	if err := json.NewDecoder(r.Body).Decode(&course); err != nil {
		h.writeError(ctx, w, "BAD_REQUEST", "invalid JSON body", http.StatusBadRequest)
		return
	}

	if err := h.service.Upsert(ctx, course); err != nil {
		if errors.Is(err, ErrInvalidCourse) {
			h.writeError(ctx, w, "BAD_REQUEST", err.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(ctx, "failed to upsert course", "code", course.Code, "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": course.Code}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := r.PathValue("code")

	if err := h.service.Delete(ctx, code); err != nil {
		if errors.Is(err, ErrInvalidCourse) {
			h.writeError(ctx, w, "BAD_REQUEST", err.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(ctx, "failed to delete course", "code", code, "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": "course deleted"}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
