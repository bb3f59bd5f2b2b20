package trip

import "fmt"

// Kind classifies a lifecycle failure so callers can translate it into the
// right status code without matching message text.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindForbidden
	KindAlreadyMember
	KindAlreadyPaid
	KindNotParticipant
	KindIncomplete
	KindNotEnded
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindAlreadyMember:
		return "already_member"
	case KindAlreadyPaid:
		return "already_paid"
	case KindNotParticipant:
		return "not_participant"
	case KindIncomplete:
		return "incomplete"
	case KindNotEnded:
		return "not_ended"
	}
	return "unknown"
}

// Error is the result every lifecycle operation returns on a business-rule
// failure. Message is user-facing; infrastructure failures are returned as
// plain wrapped errors instead.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}
