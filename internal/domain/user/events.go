package user

import "time"

// UserDeletedEvent is emitted after a cascade removed the user and all
// of their orders.
type UserDeletedEvent struct {
	UserID     string
	Orders     int
	OccurredAt time.Time
}

func (UserDeletedEvent) EventName() string { return "user.deleted" }

func NewUserDeletedEvent(userID string, orders int) UserDeletedEvent {
	return UserDeletedEvent{
		UserID:     userID,
		Orders:     orders,
		OccurredAt: time.Now().UTC(),
	}
}
