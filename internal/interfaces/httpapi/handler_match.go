package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/touchline/internal/domain/matchstate"
	"github.com/riskibarqy/touchline/internal/domain/period"
	"github.com/riskibarqy/touchline/internal/usecase"
)

type kickoffRequest struct {
	PeriodType period.Type `json:"period_type" validate:"omitempty,oneof=REGULAR EXTRA_TIME PENALTY_SHOOTOUT"`
}

func (h *Handler) GetClock(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetClock")
	defer span.End()

	matchID, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	snap, err := h.clock.Snapshot(ctx, matchID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, snap)
}

func (h *Handler) Kickoff(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Kickoff")
	defer span.End()

	matchID, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	var req kickoffRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	snap, err := h.clock.Kickoff(ctx, matchID, req.PeriodType)
	h.writeClockResult(w, r.WithContext(ctx), "kickoff", matchID, snap, err)
}

func (h *Handler) EndPeriod(w http.ResponseWriter, r *http.Request) {
	h.clockTransition(w, r, "end period", h.clock.EndPeriod)
}

func (h *Handler) PauseClock(w http.ResponseWriter, r *http.Request) {
	h.clockTransition(w, r, "pause", h.clock.Pause)
}

func (h *Handler) ResumeClock(w http.ResponseWriter, r *http.Request) {
	h.clockTransition(w, r, "resume", h.clock.Resume)
}

func (h *Handler) CompleteMatch(w http.ResponseWriter, r *http.Request) {
	h.clockTransition(w, r, "complete", h.clock.Complete)
}

func (h *Handler) clockTransition(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	apply func(ctx context.Context, matchID string) (usecase.ClockSnapshot, error),
) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ClockTransition")
	defer span.End()

	matchID, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	snap, err := apply(ctx, matchID)
	h.writeClockResult(w, r.WithContext(ctx), op, matchID, snap, err)
}

func (h *Handler) writeClockResult(w http.ResponseWriter, r *http.Request, op, matchID string, snap usecase.ClockSnapshot, err error) {
	ctx := r.Context()
	if err != nil {
		h.logger.WarnContext(ctx, "clock transition failed", "op", op, "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, snap)
}

// StreamClock serves the match clock as server-sent events, one frame per
// tick while the match is live. The stream ends when the clock stops.
func (h *Handler) StreamClock(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StreamClock")
	defer span.End()

	matchID, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	snap, err := h.clock.Snapshot(ctx, matchID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	send := func(s usecase.ClockSnapshot) bool {
		payload, err := sonic.Marshal(s)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "event: clock\ndata: %s\n\n", payload); err != nil {
			return false
		}
		return rc.Flush() == nil
	}

	if !send(snap) || snap.Status != matchstate.StatusLive {
		return
	}

	ticks := make(chan usecase.ClockSnapshot, 1)
	ticker, err := h.clock.Watch(ctx, matchID, h.ticker, h.tickEvery, func(s usecase.ClockSnapshot) {
		select {
		case ticks <- s:
		default:
		}
	})
	if err != nil {
		// Paused between the snapshot and the watch.
		return
	}
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Done():
			if final, err := h.clock.Snapshot(ctx, matchID); err == nil {
				send(final)
			}
			return
		case s := <-ticks:
			if !send(s) {
				return
			}
		}
	}
}

func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetTimeline")
	defer span.End()

	matchID, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	view, err := h.feed.LocalTimeline(ctx, matchID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, view)
}
