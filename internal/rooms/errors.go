package rooms

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind classifies a rejected lifecycle operation.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindGameNotFound
	KindFull
	KindNotWaiting
	KindCompleted
	KindNotMember
	KindAlreadyMember
	KindNotHost
	KindValidation
	KindNotificationNotFound
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "room not found"
	case KindGameNotFound:
		return "game not found"
	case KindFull:
		return "room is full"
	case KindNotWaiting:
		return "room is not accepting players"
	case KindCompleted:
		return "room is completed"
	case KindNotMember:
		return "not a member of the room"
	case KindAlreadyMember:
		return "already a member of the room"
	case KindNotHost:
		return "only the host can do that"
	case KindValidation:
		return "invalid input"
	case KindNotificationNotFound:
		return "notification not found"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a named precondition failure together with the ids involved.
// Any error that is not an *Error is an internal failure.
type Error struct {
	Kind     Kind
	RoomID   uuid.UUID
	RoomCode string
	UserID   uuid.UUID
	// Field names the offending input for KindValidation.
	Field string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Field)
	}
	if e.RoomCode != "" {
		msg = fmt.Sprintf("%s (room %s)", msg, e.RoomCode)
	} else if e.RoomID != uuid.Nil {
		msg = fmt.Sprintf("%s (room %s)", msg, e.RoomID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind carried by err, or 0 if err is not a lifecycle error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func invalid(field, reason string) *Error {
	return &Error{Kind: KindValidation, Field: field, Err: errors.New(reason)}
}
