package order

import "fmt"

// Status enumerates the canonical order lifecycle.
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusPaid      Status = "PAID"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

var validNext = map[Status]map[Status]bool{
	StatusCreated:   {StatusPaid: true, StatusCancelled: true},
	StatusPaid:      {StatusCreated: true, StatusShipped: true},
	StatusShipped:   {StatusDelivered: true},
	StatusDelivered: {},
	StatusCancelled: {},
}

// CanTransition reports whether the state machine permits from -> to.
// PAID -> CREATED is the payment-void reversal and is reserved for the
// payment workflow; callers applying manual updates must exclude it.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Modifiable reports whether line items may still be added, updated or
// removed. Only pre-payment orders are open for changes.
func (s Status) Modifiable() bool {
	return s == StatusCreated
}

// ConsumesStock reports whether the order's items still hold reserved
// stock. Cancelled orders had their reservations returned already.
func (s Status) ConsumesStock() bool {
	return s != StatusCancelled
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// TransitionError reports a rejected status transition, naming both the
// current and the requested status.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order: invalid transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// NewTransitionError builds the typed rejection for a from -> to request.
func NewTransitionError(from, to Status) error {
	return &TransitionError{From: from, To: to}
}
