package httpapi

import (
	"fmt"
	"net/http"

	"github.com/riskibarqy/touchline/internal/usecase"
)

type signInRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
}

type identityDTO struct {
	UserID        string `json:"user_id"`
	Authenticated bool   `json:"authenticated"`
}

func (h *Handler) GetIdentity(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetIdentity")
	defer span.End()

	ident, err := h.session.Resolve(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "resolve identity failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, identityDTO{UserID: ident.UserID, Authenticated: ident.Authenticated})
}

// SignIn stores the access token and kicks a sync run so the account's
// records arrive without waiting for the interval.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SignIn")
	defer span.End()

	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	h.session.SetToken(req.AccessToken)
	ident, err := h.session.Resolve(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if !ident.Authenticated {
		h.session.SetToken("")
		writeError(ctx, w, fmt.Errorf("%w: access token could not be verified", usecase.ErrUnauthorized))
		return
	}

	if h.sync != nil {
		h.sync.ConnectivityRestored()
	}
	h.logger.InfoContext(ctx, "signed in", "user_id", ident.UserID)
	writeSuccess(ctx, w, http.StatusOK, identityDTO{UserID: ident.UserID, Authenticated: true})
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SignOut")
	defer span.End()

	if err := h.session.SignOut(ctx); err != nil {
		h.logger.ErrorContext(ctx, "sign out failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
