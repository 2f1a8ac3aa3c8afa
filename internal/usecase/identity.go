package usecase

import "context"

// Identity is the resolved caller. UserID is opaque: an authenticated user id
// or a stable per-device guest id.
type Identity struct {
	UserID        string
	Authenticated bool
	Token         string
}

type IdentityResolver interface {
	Resolve(ctx context.Context) (Identity, error)
}

// StaticIdentity resolves to a fixed identity.
type StaticIdentity Identity

func (s StaticIdentity) Resolve(context.Context) (Identity, error) {
	return Identity(s), nil
}
