package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/froome/fulfillment/internal/application"
	"github.com/froome/fulfillment/internal/auth"
	domain "github.com/froome/fulfillment/internal/domain/user"
	"github.com/froome/fulfillment/internal/observability"
	"github.com/froome/fulfillment/internal/observability/logctx"
)

// PasswordHasher is the credential collaborator; hashing mechanics stay
// outside the core.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

type IDGenerator interface {
	NewID() string
}

type Service struct {
	users  domain.Repository
	hasher PasswordHasher
	idGen  IDGenerator
	tel    observability.Telemetry
	log    observability.Logger
}

func NewService(users domain.Repository, hasher PasswordHasher, idGen IDGenerator, tel observability.Telemetry) *Service {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	return &Service{
		users:  users,
		hasher: hasher,
		idGen:  idGen,
		tel:    tel,
		log:    tel.Logger().With(observability.F("service", "user_service")),
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Address  string
	Admin    bool
}

// Register creates a new account; email and username must be unique.
func (s *Service) Register(ctx context.Context, input RegisterInput) (_ *domain.User, err error) {
	start := time.Now()
	defer func() { application.Observe(s.tel, "user.register", start, err) }()

	if input.Password == "" {
		return nil, errors.New("user: password is required")
	}
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user: hash password: %w", err)
	}

	u, err := domain.New(s.idGen.NewID(), input.Username, input.Email, input.Address, hash, input.Admin)
	if err != nil {
		return nil, err
	}
	if err = s.users.Insert(ctx, u); err != nil {
		return nil, err
	}

	logctx.FromOr(ctx, s.log).Info("user_registered",
		observability.F("user_id", u.ID),
		observability.F("admin", u.Admin),
	)
	return u, nil
}

// Authenticate checks the credentials and returns the account. The
// boundary turns the result into a capability credential.
func (s *Service) Authenticate(ctx context.Context, email, password string) (_ *domain.User, err error) {
	start := time.Now()
	defer func() { application.Observe(s.tel, "user.authenticate", start, err) }()

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, auth.ErrUnauthorized
		}
		return nil, err
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, auth.ErrUnauthorized
	}
	return u, nil
}

// Get returns the account for its owner or an admin.
func (s *Service) Get(ctx context.Context, cap auth.Capability, id string) (*domain.User, error) {
	if err := cap.Require(id); err != nil {
		return nil, err
	}
	return s.users.Get(ctx, id)
}

type UpdateInput struct {
	Username string
	Email    string
	Password string
	Address  string
}

// Update rewrites profile fields; the admin flag is untouched.
func (s *Service) Update(ctx context.Context, cap auth.Capability, id string, input UpdateInput) (_ *domain.User, err error) {
	start := time.Now()
	defer func() { application.Observe(s.tel, "user.update", start, err) }()

	if err = cap.Require(id); err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Username != "" {
		u.Username = input.Username
	}
	if input.Email != "" {
		u.Email = input.Email
	}
	if input.Address != "" {
		u.Address = input.Address
	}
	if input.Password != "" {
		hash, hashErr := s.hasher.Hash(input.Password)
		if hashErr != nil {
			return nil, fmt.Errorf("user: hash password: %w", hashErr)
		}
		u.PasswordHash = hash
	}
	u.UpdatedAt = time.Now().UTC()

	if err = s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	logctx.FromOr(ctx, s.log).Info("user_updated", observability.F("user_id", id))
	return u, nil
}

// List pages through all accounts; admin only.
func (s *Service) List(ctx context.Context, cap auth.Capability, page, size int) ([]*domain.User, error) {
	if err := cap.RequireAdmin(); err != nil {
		return nil, err
	}
	offset, limit := application.PageBounds(page, size)
	return s.users.List(ctx, offset, limit)
}

// Count returns the number of accounts; admin only.
func (s *Service) Count(ctx context.Context, cap auth.Capability) (int, error) {
	if err := cap.RequireAdmin(); err != nil {
		return 0, err
	}
	return s.users.Count(ctx)
}
