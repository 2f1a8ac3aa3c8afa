package httpapi

import (
	"fmt"
	"net/http"

	"github.com/riskibarqy/touchline/internal/usecase"
)

type openViewerRequest struct {
	MatchID    string `json:"match_id" validate:"required"`
	ShareToken string `json:"share_token" validate:"required"`
}

// OpenViewer subscribes this device to someone else's live match.
func (h *Handler) OpenViewer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.OpenViewer")
	defer span.End()

	var req openViewerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	session, err := h.viewers.Open(ctx, req.MatchID, req.ShareToken)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusAccepted, session.View())
}

func (h *Handler) CloseViewer(w http.ResponseWriter, r *http.Request) {
	_, span := startSpan(r.Context(), "httpapi.Handler.CloseViewer")
	defer span.End()

	h.viewers.Close()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetViewerTimeline(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetViewerTimeline")
	defer span.End()

	session, ok := h.viewers.Current()
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: no live match is being viewed", usecase.ErrNotFound))
		return
	}
	if err := session.Err(); err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, session.View())
}
