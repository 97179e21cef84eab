package ticketing

import "context"

// PermissionState is the state of a principal's send permission on a ticket
// channel.
type PermissionState int

const (
	// PermissionAllow grants the principal access to the channel.
	PermissionAllow PermissionState = iota

	// PermissionDeny removes the principal's ability to send in the channel.
	PermissionDeny

	// PermissionInherit clears the explicit overwrite.
	PermissionInherit
)

// Grant is one principal's access to a ticket channel.
type Grant struct {
	// PrincipalID is a user or role ID.
	PrincipalID string

	// Role is whether the principal is a role rather than a user.
	Role bool

	// State is the granted permission state.
	State PermissionState
}

// ChannelManager performs the external channel operations a ticket drives.
// Implementations must tolerate resources deleted out-of-band: operations on
// a missing resource report ErrChannelGone rather than an opaque failure,
// and mutations that find the channel already in the target state succeed.
// The manager never touches the ticket store; compensation on failure is the
// state machine's job.
type ChannelManager interface {
	// CreateChannel creates a ticket channel visible only to the granted
	// principals (plus the bot itself) and returns its ID.
	CreateChannel(ctx context.Context, guildID, name, topic string, grants []Grant) (string, error)

	// RenameChannel renames a ticket channel.
	RenameChannel(ctx context.Context, channelID, name string) error

	// SetPermission applies a grant to an existing channel.
	SetPermission(ctx context.Context, channelID string, grant Grant) error

	// PostMessage posts a message to a channel and returns the message ID.
	PostMessage(ctx context.Context, channelID, content string) (string, error)

	// DeleteChannel deletes a channel. Deleting an already-deleted channel
	// is not an error.
	DeleteChannel(ctx context.Context, channelID string) error

	// ChannelExists reports whether the channel still resolves.
	ChannelExists(ctx context.Context, channelID string) (bool, error)
}

// Notifier delivers best-effort direct messages. Failures must never block
// the calling operation.
type Notifier interface {
	// NotifyUser sends a direct message to the user.
	NotifyUser(ctx context.Context, userID, content string) error
}
