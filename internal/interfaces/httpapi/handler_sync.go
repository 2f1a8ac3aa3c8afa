package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/riskibarqy/touchline/internal/usecase"
)

var errSyncDisabled = fmt.Errorf("%w: sync is not configured", usecase.ErrDependencyUnavailable)

func (h *Handler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSyncStatus")
	defer span.End()

	if h.sync == nil {
		writeError(ctx, w, errSyncDisabled)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, h.sync.Status())
}

// RunSync runs one push and pull cycle and reports the resulting status.
// Failures are part of the status, not an HTTP error, except when the device
// is offline.
func (h *Handler) RunSync(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunSync")
	defer span.End()

	if h.sync == nil {
		writeError(ctx, w, errSyncDisabled)
		return
	}

	if err := h.sync.Run(ctx); err != nil {
		h.logger.WarnContext(ctx, "manual sync failed", "error", err)
		if errors.Is(err, usecase.ErrTransientNetwork) {
			writeError(ctx, w, err)
			return
		}
	}
	writeSuccess(ctx, w, http.StatusOK, h.sync.Status())
}

func (h *Handler) ConnectivityRestored(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ConnectivityRestored")
	defer span.End()

	if h.sync == nil {
		writeError(ctx, w, errSyncDisabled)
		return
	}
	h.sync.ConnectivityRestored()
	w.WriteHeader(http.StatusAccepted)
}
