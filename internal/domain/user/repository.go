package user

import "context"

type Repository interface {
	// Insert stores the user, enforcing email and username uniqueness
	// with ErrEmailInUse / ErrUsernameInUse.
	Insert(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, offset, limit int) ([]*User, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
}
