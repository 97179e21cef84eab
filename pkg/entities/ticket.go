package entities

import (
	"fmt"

	"github.com/denbot/den/pkg/custom"
)

// Ticket is a support ticket. The document is never removed from the store,
// even when staff delete the backing channel; deleted tickets are closed
// with a fixed reason and kept as an audit trail.
type Ticket struct {
	// Number is the per-guild sequential ticket number. Numbers are strictly
	// increasing and never reused. The ticket channel is named after it, for
	// example "ticket-0004-bob".
	Number int `json:"number" bson:"number"`

	// GuildID is the ID of the guild that the ticket belongs to.
	GuildID string `json:"guild_id" bson:"guild_id"`

	// CategoryID is the ID of the category the ticket was opened under. The
	// category may have been deleted since; the reference is kept as-is.
	CategoryID string `json:"category_id" bson:"category_id"`

	// ChannelID is the ID of the backing ticket channel.
	ChannelID string `json:"channel_id" bson:"channel_id"`

	// RequesterID is the ID of the user that opened the ticket.
	RequesterID string `json:"requester_id" bson:"requester_id"`

	// RequesterName is the username of the user that opened the ticket.
	RequesterName string `json:"requester_name" bson:"requester_name"`

	// Status is the lifecycle status of the ticket.
	Status TicketStatus `json:"status" bson:"status"`

	// ClosedBy is the ID of the user that closed the ticket, if closed.
	// Reopening clears it, so it must always be written to the store.
	ClosedBy string `json:"closed_by" bson:"closed_by"`

	// CloseReason is the reason given on close, if any.
	CloseReason string `json:"close_reason" bson:"close_reason"`

	// ClosedAt is the time the ticket was last closed.
	ClosedAt *custom.Datetime `json:"closed_at" bson:"closed_at"`

	// CreatedAt is the time that the ticket was created.
	CreatedAt custom.Datetime `json:"created_at" bson:"created_at"`

	// UpdatedAt is the time of the last status change.
	UpdatedAt custom.Datetime `json:"updated_at" bson:"updated_at"`
}

// ChannelName returns the name used for the backing channel.
func (t *Ticket) ChannelName() string {
	return fmt.Sprintf("ticket-%04d-%s", t.Number, t.RequesterName)
}

// ClosedChannelName returns the name the backing channel takes while the
// ticket is closed.
func (t *Ticket) ClosedChannelName() string {
	return fmt.Sprintf("closed-%04d-%s", t.Number, t.RequesterName)
}
