package entities

import "github.com/denbot/den/pkg/custom"

// Category is a ticket category within a guild. The message template is
// embedded so it lives and dies with the category document.
type Category struct {
	// ID is the category identifier, unique within the guild.
	ID string `json:"id" bson:"id"`

	// GuildID is the ID of the guild the category belongs to.
	GuildID string `json:"guild_id" bson:"guild_id"`

	// Name is the display name of the category.
	Name string `json:"name" bson:"name"`

	// Description is an optional short description shown in the panel.
	// Patches may clear it, so it must always be written to the store.
	Description string `json:"description" bson:"description"`

	// Emoji is an optional display glyph.
	Emoji string `json:"emoji" bson:"emoji"`

	// SupportRoleID is the role responsible for tickets in this category,
	// if set.
	SupportRoleID string `json:"support_role_id" bson:"support_role_id"`

	// TicketCount is the number of tickets ever created in this category.
	// It only ever increases and is advisory, not used for uniqueness.
	TicketCount int `json:"ticket_count" bson:"ticket_count"`

	// Enabled is whether new tickets may be created in this category.
	Enabled bool `json:"enabled" bson:"enabled"`

	// Position orders categories in the panel.
	Position int `json:"position" bson:"position"`

	// Template is the per-category message template.
	Template MessageTemplate `json:"template" bson:"template"`

	// CreatedAt is the time the category was created.
	CreatedAt custom.Datetime `json:"created_at" bson:"created_at"`

	// UpdatedAt is the time of the last change.
	UpdatedAt custom.Datetime `json:"updated_at" bson:"updated_at"`
}

// MessageTemplate is the per-category welcome and close text.
type MessageTemplate struct {
	// WelcomeMessage is posted into the ticket channel on open. Empty means
	// the built-in default.
	WelcomeMessage string `json:"welcome_message,omitempty" bson:"welcome_message,omitempty"`

	// CloseMessage is posted into the ticket channel on close. Empty means
	// the built-in default.
	CloseMessage string `json:"close_message,omitempty" bson:"close_message,omitempty"`

	// IncludeSupportTeam is whether the support role is mentioned in the
	// welcome message.
	IncludeSupportTeam bool `json:"include_support_team" bson:"include_support_team"`
}
