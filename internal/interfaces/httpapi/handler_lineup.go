package httpapi

import (
	"fmt"
	"net/http"

	"github.com/riskibarqy/touchline/internal/domain/lineup"
	"github.com/riskibarqy/touchline/internal/usecase"
)

type saveLineupRequest struct {
	Formation string        `json:"formation" validate:"omitempty,max=16"`
	Slots     []lineup.Slot `json:"slots" validate:"max=30"`
}

func (h *Handler) GetDefaultLineup(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetDefaultLineup")
	defer span.End()

	teamID, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items, err := usecase.List[lineup.DefaultLineup](ctx, h.data, usecase.ListFilter{ParentID: teamID})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if len(items) == 0 {
		writeError(ctx, w, fmt.Errorf("%w: no default lineup for team %s", usecase.ErrNotFound, teamID))
		return
	}

	writeSuccess(ctx, w, http.StatusOK, items[0])
}

func (h *Handler) SaveDefaultLineup(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SaveDefaultLineup")
	defer span.End()

	teamID, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	var req saveLineupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := usecase.SaveDefaultLineup(ctx, h.data, usecase.SaveDefaultLineupInput{
		TeamID:    teamID,
		Formation: req.Formation,
		Slots:     req.Slots,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "save default lineup failed", "team_id", teamID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, item)
}

func (h *Handler) ListCurrentSeasons(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListCurrentSeasons")
	defer span.End()

	items, err := usecase.CurrentSeasons(ctx, h.data)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) SetCurrentSeason(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SetCurrentSeason")
	defer span.End()

	seasonID, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := usecase.SetCurrentSeason(ctx, h.data, seasonID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, item)
}
