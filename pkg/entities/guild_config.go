package entities

import "github.com/denbot/den/pkg/custom"

// GuildConfig is the ticketing configuration for a guild. The button and
// select-menu configurations are embedded so they live and die with the
// guild document.
type GuildConfig struct {
	// GuildID is the ID of the guild.
	GuildID string `json:"guild_id" bson:"guild_id"`

	// Enabled is whether new tickets may be created. Existing tickets are
	// unaffected by disabling.
	Enabled bool `json:"enabled" bson:"enabled"`

	// DefaultCategoryName is the name given to the category created on first
	// setup.
	DefaultCategoryName string `json:"default_category_name" bson:"default_category_name"`

	// Button is the open-ticket button configuration.
	Button ButtonConfig `json:"button" bson:"button"`

	// SelectMenu is the category select menu configuration.
	SelectMenu SelectMenuConfig `json:"select_menu" bson:"select_menu"`

	// CreatedAt is the time the guild was first set up.
	CreatedAt custom.Datetime `json:"created_at" bson:"created_at"`

	// UpdatedAt is the time of the last configuration change.
	UpdatedAt custom.Datetime `json:"updated_at" bson:"updated_at"`
}

// ButtonConfig is the appearance and placement of the open-ticket button.
type ButtonConfig struct {
	// Label is the button label.
	Label string `json:"label" bson:"label"`

	// Emoji is the emoji shown on the button, if any.
	Emoji string `json:"emoji,omitempty" bson:"emoji,omitempty"`

	// Style is the visual style of the button.
	Style ButtonStyle `json:"style" bson:"style"`

	// PanelChannelID is the channel the panel message lives in.
	PanelChannelID string `json:"panel_channel_id,omitempty" bson:"panel_channel_id,omitempty"`

	// PanelMessageID is the ID of the panel message carrying the button.
	PanelMessageID string `json:"panel_message_id,omitempty" bson:"panel_message_id,omitempty"`

	// LogChannelID is the channel ticket activity is logged to, if set.
	LogChannelID string `json:"log_channel_id,omitempty" bson:"log_channel_id,omitempty"`

	// EmbedTitle is the title of the panel embed, if set.
	EmbedTitle string `json:"embed_title,omitempty" bson:"embed_title,omitempty"`

	// EmbedDescription is the description of the panel embed, if set.
	EmbedDescription string `json:"embed_description,omitempty" bson:"embed_description,omitempty"`

	// EmbedColor is the color of the panel embed. Zero means the default.
	EmbedColor int `json:"embed_color,omitempty" bson:"embed_color,omitempty"`
}

// SelectMenuConfig is the appearance of the category select menu.
type SelectMenuConfig struct {
	// Placeholder is the text shown before a selection is made.
	Placeholder string `json:"placeholder" bson:"placeholder"`

	// PanelMessageID is the ID of the panel message carrying the menu.
	PanelMessageID string `json:"panel_message_id,omitempty" bson:"panel_message_id,omitempty"`

	// MinValues is the minimum number of selectable categories.
	MinValues int `json:"min_values" bson:"min_values"`

	// MaxValues is the maximum number of selectable categories.
	MaxValues int `json:"max_values" bson:"max_values"`

	// EmbedTitle is the title of the panel embed, if set.
	EmbedTitle string `json:"embed_title,omitempty" bson:"embed_title,omitempty"`

	// EmbedDescription is the description of the panel embed, if set.
	EmbedDescription string `json:"embed_description,omitempty" bson:"embed_description,omitempty"`

	// EmbedColor is the color of the panel embed. Zero means the default.
	EmbedColor int `json:"embed_color,omitempty" bson:"embed_color,omitempty"`
}
