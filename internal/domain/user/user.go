package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("user: not found")
	ErrEmailInUse    = errors.New("user: email already in use")
	ErrUsernameInUse = errors.New("user: username already in use")
)

type User struct {
	ID           string
	Username     string
	Email        string
	Address      string
	PasswordHash string
	Admin        bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func New(id, username, email, address, passwordHash string, admin bool) (*User, error) {
	if id == "" {
		return nil, errors.New("user: id is required")
	}
	if username == "" {
		return nil, errors.New("user: username is required")
	}
	if email == "" {
		return nil, errors.New("user: email is required")
	}
	if passwordHash == "" {
		return nil, errors.New("user: password hash is required")
	}
	now := time.Now().UTC()
	return &User{
		ID:           id,
		Username:     username,
		Email:        email,
		Address:      address,
		PasswordHash: passwordHash,
		Admin:        admin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}
