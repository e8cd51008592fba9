package auth

import (
	"context"
	"errors"
)

var (
	ErrUnauthorized = errors.New("auth: unauthorized")
	ErrForbidden    = errors.New("auth: forbidden")
)

// Capability is a resolved, trusted assertion of caller identity and
// privilege. It is produced once at the boundary and threaded through
// core operations as a plain parameter.
type Capability struct {
	UserID string
	Admin  bool
}

// Zero reports whether no caller identity was resolved.
func (c Capability) Zero() bool {
	return c.UserID == "" && !c.Admin
}

// CanActFor reports whether the caller may operate on data owned by
// userID: admins always, others only on their own.
func (c Capability) CanActFor(userID string) bool {
	if c.Admin {
		return true
	}
	return c.UserID != "" && c.UserID == userID
}

// Require returns ErrUnauthorized for an unresolved capability and
// ErrForbidden when the caller may not act for ownerID.
func (c Capability) Require(ownerID string) error {
	if c.Zero() {
		return ErrUnauthorized
	}
	if !c.CanActFor(ownerID) {
		return ErrForbidden
	}
	return nil
}

// RequireAdmin returns ErrUnauthorized for an unresolved capability and
// ErrForbidden for a non-admin caller.
func (c Capability) RequireAdmin() error {
	if c.Zero() {
		return ErrUnauthorized
	}
	if !c.Admin {
		return ErrForbidden
	}
	return nil
}

// Resolver turns an opaque caller credential into a Capability.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (Capability, error)
}
