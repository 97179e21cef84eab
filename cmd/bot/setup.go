package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/denbot/den/pkg/custom"
	"github.com/denbot/den/pkg/dataaccess"
	"github.com/denbot/den/pkg/entities"
	"github.com/denbot/den/pkg/logging"
	"github.com/denbot/den/pkg/messages"
	"github.com/denbot/den/pkg/ticketing"
)

func setupCmdController(a IApp, i *discordgo.InteractionCreate) (commandProcessor, error) {
	// Ensure the user is an administrator.
	if !isAdmin(i) {
		if err := respondEphemeral(a, i, messages.MissingAdminPermission); err != nil {
			return nil, fmt.Errorf("error responding to interaction: %w", err)
		}
		return nil, nil
	}

	// Extract the sub command.
	subCmd := i.ApplicationCommandData().Options[0].Name

	switch subCmd {
	case enableCmdName:
		return enableTicketing, nil
	case disableCmdName:
		return disableTicketing, nil
	default:
		return nil, fmt.Errorf("unknown sub command %s", subCmd)
	}
}

// defaultGuildConfig is the configuration a guild starts with on first setup.
func defaultGuildConfig(guildID string) *entities.GuildConfig {
	return &entities.GuildConfig{
		GuildID:             guildID,
		DefaultCategoryName: "General",
		Button: entities.ButtonConfig{
			Label:            "Open Ticket",
			Style:            entities.StylePrimary,
			EmbedTitle:       "How can we help?",
			EmbedDescription: "If you have any questions or inquiries, open a ticket to contact the staff.",
			EmbedColor:       0x5865F2,
		},
		SelectMenu: entities.SelectMenuConfig{
			Placeholder: "Select a category...",
			MinValues:   1,
			MaxValues:   1,
		},
		CreatedAt: custom.Now(),
	}
}

func enableTicketing(a IApp, i *discordgo.InteractionCreate) error {
	ctx := context.Background()

	opts := i.ApplicationCommandData().Options[0].Options
	var channel *discordgo.Channel
	var role *discordgo.Role
	for _, opt := range opts {
		switch opt.Name {
		case channelOptName:
			channel = opt.ChannelValue(a.Session())
		case roleOptName:
			role = opt.RoleValue(a.Session(), i.GuildID)
		}
	}
	if channel == nil || role == nil {
		return errors.New("missing channel or role option")
	}

	cfg, err := a.GuildConfigs().GetGuildConfig(ctx, i.GuildID)
	if err != nil {
		if !errors.Is(err, dataaccess.ErrNotFound) {
			return fmt.Errorf("error getting guild config: %w", err)
		}
		cfg = defaultGuildConfig(i.GuildID)
	}

	cfg.Enabled = true
	cfg.Button.PanelChannelID = channel.ID
	cfg.UpdatedAt = custom.Now()
	if err := a.GuildConfigs().SaveGuildConfig(ctx, cfg); err != nil {
		return fmt.Errorf("error saving guild config: %w", err)
	}

	// First setup creates the default category with the chosen support role.
	categories, err := a.Registry().List(ctx, i.GuildID)
	if err != nil {
		return fmt.Errorf("error listing categories: %w", err)
	}
	if len(categories) == 0 {
		if _, err := a.Registry().Create(ctx, i.GuildID, ticketing.CategoryParams{
			Name:          cfg.DefaultCategoryName,
			SupportRoleID: role.ID,
		}); err != nil {
			return fmt.Errorf("error creating default category: %w", err)
		}
	}

	if err := ensurePanel(a, ctx, cfg); err != nil {
		// The panel can be reposted later; enabling still succeeded.
		a.Log().Error("Error posting ticket panel",
			slog.String(logging.KeyGuild, i.GuildID),
			slog.String(logging.KeyError, err.Error()))
	}

	return respondEphemeral(a, i, fmt.Sprintf("Ticketing enabled, panel posted in <#%s>.", channel.ID))
}

func disableTicketing(a IApp, i *discordgo.InteractionCreate) error {
	ctx := context.Background()

	cfg, err := a.GuildConfigs().GetGuildConfig(ctx, i.GuildID)
	if err != nil {
		if errors.Is(err, dataaccess.ErrNotFound) {
			return respondEphemeral(a, i, messages.TicketingDisabled)
		}
		return fmt.Errorf("error getting guild config: %w", err)
	}

	cfg.Enabled = false
	cfg.UpdatedAt = custom.Now()
	if err := a.GuildConfigs().SaveGuildConfig(ctx, cfg); err != nil {
		return fmt.Errorf("error saving guild config: %w", err)
	}

	open, err := a.Tickets().OpenTickets(ctx, i.GuildID)
	if err != nil {
		return fmt.Errorf("error listing open tickets: %w", err)
	}
	return respondEphemeral(a, i, fmt.Sprintf("Ticketing disabled. %d open ticket(s) are unaffected.", len(open)))
}
