package ticketing

import (
	"errors"

	"github.com/denbot/den/pkg/collector"
	"github.com/denbot/den/pkg/entities"
)

// Kind classifies an operation failure so the presentation layer can choose
// the right tone. Every error returned by this package maps to exactly one
// kind.
type Kind int

const (
	// KindUnknown is an unclassified failure.
	KindUnknown Kind = iota

	// KindValidation is bad input, such as an unknown category.
	KindValidation

	// KindConflict is a state conflict, such as a duplicate open ticket.
	KindConflict

	// KindPermission is an elevated action attempted without privilege.
	KindPermission

	// KindExternal is a failed chat-platform call or a missing resource.
	KindExternal

	// KindPersistence is a failed store operation.
	KindPersistence

	// KindTimeout is an elapsed collector deadline.
	KindTimeout
)

// String implements the fmt.Stringer interface.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindPermission:
		return "permission"
	case KindExternal:
		return "external"
	case KindPersistence:
		return "persistence"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is a classified ticketing failure.
type Error struct {
	// Kind is the failure class.
	Kind Kind

	// Message is the human-readable reason.
	Message string

	// Ticket is the conflicting ticket, set on duplicate-open failures so
	// the caller can point the user at their existing channel.
	Ticket *entities.Ticket

	// cause is the wrapped underlying error, if any.
	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches two ticketing errors on kind and message, so the exported
// sentinels work with errors.Is even when a copy carries extra context.
func (e *Error) Is(target error) bool {
	t := new(Error)
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

var (
	// ErrTicketingDisabled is returned by Create when the guild has
	// ticketing switched off.
	ErrTicketingDisabled = &Error{Kind: KindValidation, Message: "ticketing is disabled for this guild"}

	// ErrDuplicateOpenTicket is returned by Create when the requester
	// already has an open ticket with a live channel.
	ErrDuplicateOpenTicket = &Error{Kind: KindConflict, Message: "requester already has an open ticket"}

	// ErrCategoryUnavailable is returned by Create when the category is
	// missing or disabled.
	ErrCategoryUnavailable = &Error{Kind: KindValidation, Message: "category is unavailable"}

	// ErrNotATicket is returned when the referenced channel does not back a
	// ticket.
	ErrNotATicket = &Error{Kind: KindValidation, Message: "channel does not back a ticket"}

	// ErrAlreadyClosed is returned by Close when the ticket is not open.
	ErrAlreadyClosed = &Error{Kind: KindConflict, Message: "ticket is already closed"}

	// ErrAlreadyOpen is returned by Reopen when the ticket is open.
	ErrAlreadyOpen = &Error{Kind: KindConflict, Message: "ticket is already open"}

	// ErrAlreadyArchived is returned by Archive when the ticket is archived.
	ErrAlreadyArchived = &Error{Kind: KindConflict, Message: "ticket is already archived"}

	// ErrLastCategory is returned when deleting a guild's only category.
	ErrLastCategory = &Error{Kind: KindConflict, Message: "cannot delete the last remaining category"}

	// ErrConfirmationRequired is returned when deleting a category that
	// still has tickets without a valid confirmation token.
	ErrConfirmationRequired = &Error{Kind: KindConflict, Message: "category deletion requires confirmation"}

	// ErrPermissionDenied is returned for elevated actions without
	// privilege.
	ErrPermissionDenied = &Error{Kind: KindPermission, Message: "permission denied"}

	// ErrCategoryNotFound is returned when the named category does not
	// exist.
	ErrCategoryNotFound = &Error{Kind: KindValidation, Message: "category not found"}
)

// externalError wraps a failed chat-platform call.
func externalError(msg string, cause error) *Error {
	return &Error{Kind: KindExternal, Message: msg, cause: cause}
}

// persistenceError wraps a failed store operation.
func persistenceError(msg string, cause error) *Error {
	return &Error{Kind: KindPersistence, Message: msg, cause: cause}
}

// KindOf classifies any error returned by this package or by the collector.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, collector.ErrTimedOut) {
		return KindTimeout
	}
	e := new(Error)
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
