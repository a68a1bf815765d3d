package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"coursepilot/backend/features/chat"
)

type CourseCounter interface {
	Count(ctx context.Context) (int, error)
}

type Handler struct {
	chats   chat.Repository
	courses CourseCounter
}

func NewHandler(chats chat.Repository, courses CourseCounter) *Handler {
	return &Handler{chats: chats, courses: courses}
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	outcomes, err := h.chats.CountByOutcome(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count chats", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	courseCount, err := h.courses.Count(ctx)
	if err != nil {
		// Catalog size is best-effort; the chat counts are still useful.
		slog.WarnContext(ctx, "failed to count courses", "error", err)
		courseCount = -1
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": map[string]interface{}{
			"chats":   outcomes,
			"courses": courseCount,
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
