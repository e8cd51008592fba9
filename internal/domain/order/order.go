package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("order: not found")
	ErrItemNotFound  = errors.New("order: item not found")
	ErrConflict      = errors.New("order: conflict")
	ErrNotModifiable = errors.New("order: status does not permit item changes")

	// ErrInvalidTransition is the sentinel matched by TransitionError.
	ErrInvalidTransition = errors.New("order: invalid status transition")

	ErrInvalidQuantity = errors.New("order: quantity must be greater than zero")
)

type Order struct {
	ID        string
	UserID    string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates an order in the initial CREATED status.
func New(id, userID string) (*Order, error) {
	if id == "" {
		return nil, errors.New("order: id is required")
	}
	if userID == "" {
		return nil, errors.New("order: user id is required")
	}
	now := time.Now().UTC()
	return &Order{
		ID:        id,
		UserID:    userID,
		Status:    StatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	return &clone
}
