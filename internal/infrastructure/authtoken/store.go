package authtoken

import (
	"context"
	"sync"

	"github.com/froome/fulfillment/internal/auth"
	"github.com/google/uuid"
)

// Store issues opaque bearer tokens and resolves them back into
// capabilities. Token format and signing are deliberately out of the
// core's hands; this keeps the capability contract narrow.
type Store struct {
	mu     sync.RWMutex
	tokens map[string]auth.Capability
}

func NewStore() *Store {
	return &Store{tokens: make(map[string]auth.Capability)}
}

// Issue mints a new token for the given capability.
func (s *Store) Issue(ctx context.Context, cap auth.Capability) (string, error) {
	_ = ctx

	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = cap
	s.mu.Unlock()
	return token, nil
}

// Resolve implements auth.Resolver.
func (s *Store) Resolve(ctx context.Context, credential string) (auth.Capability, error) {
	_ = ctx
	if credential == "" {
		return auth.Capability{}, auth.ErrUnauthorized
	}

	s.mu.RLock()
	cap, ok := s.tokens[credential]
	s.mu.RUnlock()
	if !ok {
		return auth.Capability{}, auth.ErrUnauthorized
	}
	return cap, nil
}

// Revoke drops a token. Revoking an unknown token is a no-op.
func (s *Store) Revoke(ctx context.Context, credential string) {
	_ = ctx

	s.mu.Lock()
	delete(s.tokens, credential)
	s.mu.Unlock()
}

// RevokeUser drops every token held by the given user, used when the
// user is deleted.
func (s *Store) RevokeUser(ctx context.Context, userID string) {
	_ = ctx

	s.mu.Lock()
	for token, cap := range s.tokens {
		if cap.UserID == userID {
			delete(s.tokens, token)
		}
	}
	s.mu.Unlock()
}

var _ auth.Resolver = (*Store)(nil)
