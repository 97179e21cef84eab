package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/denbot/den/pkg/custom"
	"github.com/denbot/den/pkg/entities"
	"github.com/denbot/den/pkg/logging"
)

// panelMessage builds the panel message for the guild. With one category the
// panel carries the open-ticket button; with more it carries the category
// select menu.
func panelMessage(cfg *entities.GuildConfig, categories []*entities.Category) *discordgo.MessageSend {
	embed := &discordgo.MessageEmbed{
		Title:       cfg.Button.EmbedTitle,
		Description: cfg.Button.EmbedDescription,
		Color:       cfg.Button.EmbedColor,
	}

	var component discordgo.MessageComponent
	if len(categories) > 1 {
		if cfg.SelectMenu.EmbedTitle != "" {
			embed.Title = cfg.SelectMenu.EmbedTitle
		}
		if cfg.SelectMenu.EmbedDescription != "" {
			embed.Description = cfg.SelectMenu.EmbedDescription
		}
		if cfg.SelectMenu.EmbedColor != 0 {
			embed.Color = cfg.SelectMenu.EmbedColor
		}

		opts := make([]discordgo.SelectMenuOption, 0, len(categories))
		for _, c := range categories {
			opt := discordgo.SelectMenuOption{
				Label:       c.Name,
				Value:       c.ID,
				Description: c.Description,
			}
			if c.Emoji != "" {
				opt.Emoji = discordgo.ComponentEmoji{Name: c.Emoji}
			}
			opts = append(opts, opt)
		}
		menu := discordgo.SelectMenu{
			MenuType:    discordgo.StringSelectMenu,
			CustomID:    CategorySelectID,
			Placeholder: cfg.SelectMenu.Placeholder,
			MaxValues:   cfg.SelectMenu.MaxValues,
			Options:     opts,
		}
		if cfg.SelectMenu.MinValues > 0 {
			menu.MinValues = &cfg.SelectMenu.MinValues
		}
		component = menu
	} else {
		button := discordgo.Button{
			Label:    cfg.Button.Label,
			Style:    buttonStyle(cfg.Button.Style),
			CustomID: OpenTicketButtonID,
		}
		if cfg.Button.Emoji != "" {
			button.Emoji = discordgo.ComponentEmoji{Name: cfg.Button.Emoji}
		}
		component = button
	}

	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{component},
			},
		},
	}
}

// ensurePanel posts a fresh panel message and removes the previous one, so
// the panel survives being deleted out-of-band and always reflects the
// current configuration.
func ensurePanel(a IApp, ctx context.Context, cfg *entities.GuildConfig) error {
	if cfg.Button.PanelChannelID == "" {
		return nil
	}

	categories, err := a.Registry().List(ctx, cfg.GuildID)
	if err != nil {
		return fmt.Errorf("error listing categories: %w", err)
	}
	enabled := make([]*entities.Category, 0, len(categories))
	for _, c := range categories {
		if c.Enabled {
			enabled = append(enabled, c)
		}
	}

	msg, err := a.Session().ChannelMessageSendComplex(cfg.Button.PanelChannelID, panelMessage(cfg, enabled))
	if err != nil {
		return fmt.Errorf("error sending panel message: %w", err)
	}

	// Remove the previous panel, if it still exists.
	if old := cfg.Button.PanelMessageID; old != "" && old != msg.ID {
		if err := a.Session().ChannelMessageDelete(cfg.Button.PanelChannelID, old); err != nil {
			a.Log().Warn("Error deleting previous panel message",
				slog.String(logging.KeyGuild, cfg.GuildID),
				slog.String(logging.KeyError, err.Error()))
		}
	}

	cfg.Button.PanelMessageID = msg.ID
	cfg.SelectMenu.PanelMessageID = msg.ID
	cfg.UpdatedAt = custom.Now()
	if err := a.GuildConfigs().SaveGuildConfig(ctx, cfg); err != nil {
		return fmt.Errorf("error saving guild config: %w", err)
	}
	return nil
}
