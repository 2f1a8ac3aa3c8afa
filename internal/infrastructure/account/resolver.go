// Package account resolves who is using this device: a verified account when
// a token is present and accepted, otherwise the device guest.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/riskibarqy/touchline/internal/infrastructure/account/anubis"
	"github.com/riskibarqy/touchline/internal/infrastructure/account/guest"
	"github.com/riskibarqy/touchline/internal/platform/logging"
	"github.com/riskibarqy/touchline/internal/usecase"
)

type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (anubis.Principal, error)
}

// Resolver implements usecase.IdentityResolver.
type Resolver struct {
	verifier TokenVerifier
	guests   *guest.Store
	logger   *logging.Logger

	mu    sync.RWMutex
	token string
}

func NewResolver(verifier TokenVerifier, guests *guest.Store, token string, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{
		verifier: verifier,
		guests:   guests,
		logger:   logger.Named("identity"),
		token:    strings.TrimSpace(token),
	}
}

// SetToken signs the device in with an access token.
func (r *Resolver) SetToken(token string) {
	r.mu.Lock()
	r.token = strings.TrimSpace(token)
	r.mu.Unlock()
}

// SignOut drops the token and the remembered account. Later writes are owned
// by the device guest.
func (r *Resolver) SignOut(ctx context.Context) error {
	r.mu.Lock()
	token := r.token
	r.token = ""
	r.mu.Unlock()

	if f, ok := r.verifier.(interface {
		Forget(ctx context.Context, token string)
	}); ok && token != "" {
		f.Forget(ctx, token)
	}
	if err := r.guests.Forget(); err != nil {
		return fmt.Errorf("forget account: %w", err)
	}
	return nil
}

func (r *Resolver) Resolve(ctx context.Context) (usecase.Identity, error) {
	r.mu.RLock()
	token := r.token
	r.mu.RUnlock()

	if token == "" || r.verifier == nil {
		return r.guest()
	}

	tokenHash := anubis.HashToken(token)
	principal, err := r.verifier.VerifyAccessToken(ctx, token)
	switch {
	case err == nil:
		if err := r.guests.RememberUser(principal.UserID, tokenHash); err != nil {
			r.logger.WarnContext(ctx, "remember verified account failed", "error", err)
		}
		return usecase.Identity{UserID: principal.UserID, Authenticated: true, Token: token}, nil
	case errors.Is(err, usecase.ErrUnauthorized):
		r.logger.WarnContext(ctx, "access token rejected, continuing as guest", "error", err)
		return r.guest()
	}

	if userID, ok := r.guests.LastUser(tokenHash); ok {
		r.logger.DebugContext(ctx, "account service unreachable, using last verified account", "user_id", userID, "error", err)
		return usecase.Identity{UserID: userID, Authenticated: true, Token: token}, nil
	}
	r.logger.WarnContext(ctx, "account service unreachable and token never verified, continuing as guest", "error", err)
	return r.guest()
}

func (r *Resolver) guest() (usecase.Identity, error) {
	id, err := r.guests.GuestID()
	if err != nil {
		return usecase.Identity{}, fmt.Errorf("resolve guest identity: %w", err)
	}
	return usecase.Identity{UserID: id}, nil
}
