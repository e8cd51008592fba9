package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	domain "github.com/froome/fulfillment/internal/domain/user"
)

type UserRepository struct {
	mu      sync.RWMutex
	users   map[string]*domain.User
	byEmail map[string]string
	byName  map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:   make(map[string]*domain.User),
		byEmail: make(map[string]string),
		byName:  make(map[string]string),
	}
}

func (r *UserRepository) Insert(ctx context.Context, u *domain.User) error {
	_ = ctx
	if u == nil || u.ID == "" {
		return fmt.Errorf("user repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[normalize(u.Email)]; exists {
		return domain.ErrEmailInUse
	}
	if _, exists := r.byName[normalize(u.Username)]; exists {
		return domain.ErrUsernameInUse
	}
	r.users[u.ID] = u.Clone()
	r.byEmail[normalize(u.Email)] = u.ID
	r.byName[normalize(u.Username)] = u.ID
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u.Clone(), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[normalize(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.users[id].Clone(), nil
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	_ = ctx

	r.mu.RLock()
	all := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, u.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return page(all, offset, limit), nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), nil
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	_ = ctx
	if u == nil || u.ID == "" {
		return fmt.Errorf("user repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[u.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if id, taken := r.byEmail[normalize(u.Email)]; taken && id != u.ID {
		return domain.ErrEmailInUse
	}
	if id, taken := r.byName[normalize(u.Username)]; taken && id != u.ID {
		return domain.ErrUsernameInUse
	}
	delete(r.byEmail, normalize(stored.Email))
	delete(r.byName, normalize(stored.Username))
	r.users[u.ID] = u.Clone()
	r.byEmail[normalize(u.Email)] = u.ID
	r.byName[normalize(u.Username)] = u.ID
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(r.users, id)
	delete(r.byEmail, normalize(u.Email))
	delete(r.byName, normalize(u.Username))
	return nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
