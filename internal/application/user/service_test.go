package user_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appuser "github.com/froome/fulfillment/internal/application/user"
	"github.com/froome/fulfillment/internal/auth"
	domuser "github.com/froome/fulfillment/internal/domain/user"
	"github.com/froome/fulfillment/internal/infrastructure/id"
	"github.com/froome/fulfillment/internal/infrastructure/memory"
)

// stubHasher keeps registration tests fast and deterministic.
type stubHasher struct{}

func (stubHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }
func (stubHasher) Verify(hash, password string) bool    { return hash == "hashed:"+password }

func newUserService() *appuser.Service {
	return appuser.NewService(memory.NewUserRepository(), stubHasher{}, id.NewUUIDGenerator(), nil)
}

func register(t *testing.T, svc *appuser.Service, username, email string) *domuser.User {
	t.Helper()
	u, err := svc.Register(context.Background(), appuser.RegisterInput{
		Username: username,
		Email:    email,
		Password: "secret",
	})
	require.NoError(t, err)
	return u
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newUserService()
	u := register(t, svc, "alice", "alice@example.com")
	assert.False(t, u.Admin)
	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, "secret", u.PasswordHash)

	got, err := svc.Authenticate(ctx, "alice@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "alice@example.com", "wrong")
	require.ErrorIs(t, err, auth.ErrUnauthorized)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "secret")
	require.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestRegisterUniqueness(t *testing.T) {
	ctx := context.Background()
	svc := newUserService()
	register(t, svc, "alice", "alice@example.com")

	_, err := svc.Register(ctx, appuser.RegisterInput{
		Username: "alice2", Email: "Alice@Example.com", Password: "x",
	})
	require.ErrorIs(t, err, domuser.ErrEmailInUse)

	_, err = svc.Register(ctx, appuser.RegisterInput{
		Username: "alice", Email: "other@example.com", Password: "x",
	})
	require.ErrorIs(t, err, domuser.ErrUsernameInUse)
}

func TestRegisterRequiresPassword(t *testing.T) {
	svc := newUserService()
	_, err := svc.Register(context.Background(), appuser.RegisterInput{
		Username: "alice", Email: "alice@example.com",
	})
	require.Error(t, err)
}

func TestGetAndUpdateAccessControl(t *testing.T) {
	ctx := context.Background()
	svc := newUserService()
	u := register(t, svc, "alice", "alice@example.com")

	_, err := svc.Get(ctx, auth.Capability{UserID: "someone-else"}, u.ID)
	require.ErrorIs(t, err, auth.ErrForbidden)

	got, err := svc.Get(ctx, auth.Capability{Admin: true}, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	updated, err := svc.Update(ctx, auth.Capability{UserID: u.ID}, u.ID, appuser.UpdateInput{
		Address: "1 Main St",
	})
	require.NoError(t, err)
	assert.Equal(t, "1 Main St", updated.Address)
	assert.Equal(t, "alice", updated.Username)
	assert.False(t, updated.Admin)
}

func TestListAndCountAdminOnly(t *testing.T) {
	ctx := context.Background()
	svc := newUserService()
	register(t, svc, "alice", "alice@example.com")
	register(t, svc, "bob", "bob@example.com")

	_, err := svc.List(ctx, auth.Capability{UserID: "u"}, 0, 10)
	require.ErrorIs(t, err, auth.ErrForbidden)

	us, err := svc.List(ctx, auth.Capability{Admin: true}, 0, 10)
	require.NoError(t, err)
	assert.Len(t, us, 2)

	n, err := svc.Count(ctx, auth.Capability{Admin: true})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
