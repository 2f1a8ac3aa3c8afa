package usecase

import (
	"errors"
	"fmt"

	"github.com/riskibarqy/touchline/internal/domain/quota"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrInvalidTransition     = errors.New("invalid match state transition")

	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrSyncConflictDeferred marks a pulled row skipped because the local
	// copy is unsynced. It is logged, never returned to callers.
	ErrSyncConflictDeferred = errors.New("sync conflict deferred to local edit")
	ErrRemoteRejected       = errors.New("remote rejected record")
	ErrTransientNetwork     = errors.New("transient network failure")
	ErrStreamExpired        = errors.New("live stream credential expired")
)

// QuotaExceededError is returned by the write path before any mutation when a
// tier limit would be crossed.
type QuotaExceededError struct {
	Tier     quota.Tier
	Resource quota.Resource
	Limit    int
	Reason   string
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s: %s", ErrQuotaExceeded, e.Reason)
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}
