package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/denbot/den/pkg/collector"
	"github.com/denbot/den/pkg/entities"
	"github.com/denbot/den/pkg/logging"
	"github.com/denbot/den/pkg/messages"
	"github.com/denbot/den/pkg/ticketing"
	"github.com/denbot/den/pkg/wizard"
)

const (
	// OpenTicketButtonID is the ID for the open ticket button.
	OpenTicketButtonID = "open_ticket_button"

	// CategorySelectID is the ID for the category select menu.
	CategorySelectID = "ticket_category_select"

	// CloseTicketButtonID is the ID for the close ticket button.
	CloseTicketButtonID = "close_ticket_button"

	// ReopenTicketButtonID is the ID for the reopen ticket button.
	ReopenTicketButtonID = "reopen_ticket_button"

	// ArchiveTicketButtonID is the ID for the archive ticket button.
	ArchiveTicketButtonID = "archive_ticket_button"

	// DeleteTicketButtonID is the ID for the delete ticket button.
	DeleteTicketButtonID = "delete_ticket_button"

	// DeleteConfirmButtonID is the ID for the delete confirmation button.
	DeleteConfirmButtonID = "delete_ticket_confirm"

	// DeleteCancelButtonID is the ID for the delete cancellation button.
	DeleteCancelButtonID = "delete_ticket_cancel"

	// CloseReasonModalID is the ID for the close reason modal.
	CloseReasonModalID = "close_reason_modal"

	// closeReasonInputID is the ID of the reason field inside the modal.
	closeReasonInputID = "close_reason"
)

const (
	// CloseEmoji is the emoji for the close button. (Padlock)
	CloseEmoji = "\U0001F510"

	// ReopenEmoji is the emoji for the reopen button. (Open padlock)
	ReopenEmoji = "\U0001F513"

	// ArchiveEmoji is the emoji for the archive button. (File box)
	ArchiveEmoji = "\U0001F5C3"

	// DeleteEmoji is the emoji for the delete button. (Cross)
	DeleteEmoji = "❌"
)

// ticketControlsMessage carries the lifecycle buttons pinned in every ticket
// channel.
var ticketControlsMessage = &discordgo.MessageSend{
	Content: "Staff controls for this ticket.",
	Components: []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    fmt.Sprintf("%s Close", CloseEmoji),
					Style:    discordgo.SecondaryButton,
					CustomID: CloseTicketButtonID,
				},
				discordgo.Button{
					Label:    fmt.Sprintf("%s Reopen", ReopenEmoji),
					Style:    discordgo.SuccessButton,
					CustomID: ReopenTicketButtonID,
				},
				discordgo.Button{
					Label:    fmt.Sprintf("%s Archive", ArchiveEmoji),
					Style:    discordgo.SecondaryButton,
					CustomID: ArchiveTicketButtonID,
				},
				discordgo.Button{
					Label:    fmt.Sprintf("%s Delete", DeleteEmoji),
					Style:    discordgo.DangerButton,
					CustomID: DeleteTicketButtonID,
				},
			},
		},
	},
}

func ticketCmdController(a IApp, i *discordgo.InteractionCreate) (commandProcessor, error) {
	// Extract the sub command.
	subCmd := i.ApplicationCommandData().Options[0].Name

	switch subCmd {
	case closeCmdName:
		return closeTicketCmd, nil
	case reopenCmdName:
		return reopenTicketProcessor, nil
	case archiveCmdName:
		return archiveTicketProcessor, nil
	case deleteCmdName:
		return deleteTicketProcessor, nil
	default:
		return nil, fmt.Errorf("unknown sub command %s", subCmd)
	}
}

func configCmdController(a IApp, i *discordgo.InteractionCreate) (commandProcessor, error) {
	// Ensure the user is an administrator.
	if !isAdmin(i) {
		if err := respondEphemeral(a, i, messages.MissingAdminPermission); err != nil {
			return nil, fmt.Errorf("error responding to interaction: %w", err)
		}
		return nil, nil
	}
	return configProcessor, nil
}

// configProcessor runs the configuration wizard in the invoking channel.
func configProcessor(a IApp, i *discordgo.InteractionCreate) error {
	if err := respondEphemeral(a, i, "Starting the configuration wizard in this channel."); err != nil {
		return fmt.Errorf("error responding to interaction: %w", err)
	}

	userID := interactionUserID(i)
	go func() {
		ctx := context.Background()
		err := a.Wizard().Run(ctx, i.GuildID, userID, i.ChannelID)
		switch {
		case err == nil:
		case errors.Is(err, collector.ErrTimedOut):
			// The wizard already rendered the timeout notice.
		case errors.Is(err, wizard.ErrSessionActive), errors.Is(err, collector.ErrBusy):
			if _, serr := a.Session().ChannelMessageSend(i.ChannelID, "A configuration session is already running here."); serr != nil {
				a.Log().Error("Error sending session notice", slog.String(logging.KeyError, serr.Error()))
			}
			return
		default:
			a.Log().Error("Error running configuration wizard",
				slog.String(logging.KeyGuild, i.GuildID),
				slog.String(logging.KeyError, err.Error()))
			return
		}

		// Reflect configuration changes on the panel.
		cfg, err := a.GuildConfigs().GetGuildConfig(ctx, i.GuildID)
		if err != nil {
			a.Log().Error("Error getting guild config", slog.String(logging.KeyError, err.Error()))
			return
		}
		if err := ensurePanel(a, ctx, cfg); err != nil {
			a.Log().Error("Error refreshing panel",
				slog.String(logging.KeyGuild, i.GuildID),
				slog.String(logging.KeyError, err.Error()))
		}
	}()
	return nil
}

// openTicketProcessor handles the panel's open button. With multiple enabled
// categories the user picks one first.
func openTicketProcessor(a IApp, i *discordgo.InteractionCreate) error {
	ctx := context.Background()

	categories, err := a.Registry().List(ctx, i.GuildID)
	if err != nil {
		return fmt.Errorf("error listing categories: %w", err)
	}
	enabled := make([]*entities.Category, 0, len(categories))
	for _, c := range categories {
		if c.Enabled {
			enabled = append(enabled, c)
		}
	}

	switch len(enabled) {
	case 0:
		return respondEphemeral(a, i, messages.CategoryUnavailable)
	case 1:
		return createTicket(a, i, enabled[0].ID)
	}

	opts := make([]discordgo.SelectMenuOption, 0, len(enabled))
	for _, c := range enabled {
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

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "What is your ticket about?",
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.SelectMenu{
							MenuType:    discordgo.StringSelectMenu,
							CustomID:    CategorySelectID,
							Placeholder: "Select a category...",
							Options:     opts,
						},
					},
				},
			},
		},
	})
}

// categorySelectProcessor handles the category pick, from the panel or from
// the ephemeral follow-up.
func categorySelectProcessor(a IApp, i *discordgo.InteractionCreate) error {
	data := i.MessageComponentData()
	if len(data.Values) == 0 {
		return respondEphemeral(a, i, messages.CategoryUnavailable)
	}
	return createTicket(a, i, data.Values[0])
}

// createTicket is the function for creating a ticket.
func createTicket(a IApp, i *discordgo.InteractionCreate, categoryID string) error {
	out, err := a.Tickets().Create(context.Background(), i.GuildID, ticketing.Requester{
		ID:   interactionUserID(i),
		Name: interactionUsername(i),
	}, categoryID)
	if err != nil {
		return fmt.Errorf("error creating ticket: %w", err)
	}
	logWarnings(a, i.GuildID, "create", out)

	go func() {
		if err := setupTicketControls(a, out.Ticket.ChannelID); err != nil {
			a.Log().Error("Error setting up ticket controls",
				slog.String(logging.KeyGuild, i.GuildID),
				slog.String(logging.KeyError, err.Error()))
		}
	}()

	return respondEphemeral(a, i, fmt.Sprintf(messages.TicketCreated, out.Ticket.ChannelID))
}

// setupTicketControls posts and pins the lifecycle buttons in a fresh ticket
// channel.
func setupTicketControls(a IApp, channelID string) error {
	msg, err := a.Session().ChannelMessageSendComplex(channelID, ticketControlsMessage)
	if err != nil {
		return fmt.Errorf("error sending message: %w", err)
	}

	// Pin the message to the channel.
	if err := a.Session().ChannelMessagePin(channelID, msg.ID); err != nil {
		return fmt.Errorf("error pinning message: %w", err)
	}
	return nil
}

// canManageTicket reports whether the invoker may act on the ticket as
// staff: administrators always, otherwise members of the category's support
// role.
func canManageTicket(a IApp, ctx context.Context, i *discordgo.InteractionCreate, ticket *entities.Ticket) bool {
	if isAdmin(i) {
		return true
	}
	category, err := a.Registry().Get(ctx, i.GuildID, ticket.CategoryID)
	if err != nil {
		// The category may have been deleted from under the ticket.
		return false
	}
	return memberHasRole(i, category.SupportRoleID)
}

// closeTicketProcessor handles the close button by asking for a reason
// through a modal.
func closeTicketProcessor(a IApp, i *discordgo.InteractionCreate) error {
	ticket, err := a.Tickets().Lookup(context.Background(), i.GuildID, i.ChannelID)
	if err != nil {
		return fmt.Errorf("error getting ticket: %w", err)
	}
	if ticket.RequesterID != interactionUserID(i) && !canManageTicket(a, context.Background(), i, ticket) {
		return respondEphemeral(a, i, messages.MissingStaffPermission)
	}

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: CloseReasonModalID,
			Title:    "Close ticket",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    closeReasonInputID,
							Label:       "Reason",
							Style:       discordgo.TextInputParagraph,
							Placeholder: "Why is this ticket being closed?",
							Required:    false,
							MaxLength:   400,
						},
					},
				},
			},
		},
	})
}

// closeReasonModalProcessor closes the ticket with the submitted reason.
func closeReasonModalProcessor(a IApp, i *discordgo.InteractionCreate) error {
	ctx := context.Background()

	reason := ""
	for _, row := range i.ModalSubmitData().Components {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, c := range ar.Components {
			if input, ok := c.(*discordgo.TextInput); ok && input.CustomID == closeReasonInputID {
				reason = strings.TrimSpace(input.Value)
			}
		}
	}

	out, err := a.Tickets().Close(ctx, i.GuildID, i.ChannelID, interactionUserID(i), reason)
	if err != nil {
		return fmt.Errorf("error closing ticket: %w", err)
	}
	logWarnings(a, i.GuildID, "close", out)
	logTicketEvent(a, ctx, i.GuildID, ticketLogLine("closed", out.Ticket, interactionUserID(i)))

	return respondEphemeral(a, i, fmt.Sprintf("Ticket #%d closed.", out.Ticket.Number))
}

// closeTicketCmd closes the ticket with the reason given on the command.
func closeTicketCmd(a IApp, i *discordgo.InteractionCreate) error {
	ctx := context.Background()

	ticket, err := a.Tickets().Lookup(ctx, i.GuildID, i.ChannelID)
	if err != nil {
		return fmt.Errorf("error getting ticket: %w", err)
	}
	if ticket.RequesterID != interactionUserID(i) && !canManageTicket(a, ctx, i, ticket) {
		return respondEphemeral(a, i, messages.MissingStaffPermission)
	}

	reason := ""
	for _, opt := range i.ApplicationCommandData().Options[0].Options {
		if opt.Name == reasonOptName {
			reason = opt.StringValue()
		}
	}

	out, err := a.Tickets().Close(ctx, i.GuildID, i.ChannelID, interactionUserID(i), reason)
	if err != nil {
		return fmt.Errorf("error closing ticket: %w", err)
	}
	logWarnings(a, i.GuildID, "close", out)
	logTicketEvent(a, ctx, i.GuildID, ticketLogLine("closed", out.Ticket, interactionUserID(i)))

	return respondEphemeral(a, i, fmt.Sprintf("Ticket #%d closed.", out.Ticket.Number))
}

func reopenTicketProcessor(a IApp, i *discordgo.InteractionCreate) error {
	ctx := context.Background()

	ticket, err := a.Tickets().Lookup(ctx, i.GuildID, i.ChannelID)
	if err != nil {
		return fmt.Errorf("error getting ticket: %w", err)
	}
	if !canManageTicket(a, ctx, i, ticket) {
		return respondEphemeral(a, i, messages.MissingStaffPermission)
	}

	out, err := a.Tickets().Reopen(ctx, i.GuildID, i.ChannelID)
	if err != nil {
		return fmt.Errorf("error reopening ticket: %w", err)
	}
	logWarnings(a, i.GuildID, "reopen", out)
	logTicketEvent(a, ctx, i.GuildID, ticketLogLine("reopened", out.Ticket, interactionUserID(i)))

	return respondEphemeral(a, i, fmt.Sprintf("Ticket #%d reopened.", out.Ticket.Number))
}

func archiveTicketProcessor(a IApp, i *discordgo.InteractionCreate) error {
	ctx := context.Background()

	ticket, err := a.Tickets().Lookup(ctx, i.GuildID, i.ChannelID)
	if err != nil {
		return fmt.Errorf("error getting ticket: %w", err)
	}
	if !canManageTicket(a, ctx, i, ticket) {
		return respondEphemeral(a, i, messages.MissingStaffPermission)
	}

	out, err := a.Tickets().Archive(ctx, i.GuildID, i.ChannelID, interactionUserID(i))
	if err != nil {
		return fmt.Errorf("error archiving ticket: %w", err)
	}
	logWarnings(a, i.GuildID, "archive", out)
	logTicketEvent(a, ctx, i.GuildID, ticketLogLine("archived", out.Ticket, interactionUserID(i)))

	return respondEphemeral(a, i, fmt.Sprintf("Ticket #%d archived.", out.Ticket.Number))
}

// deleteTicketProcessor asks for confirmation, then deletes the ticket once
// the invoker confirms within the deadline.
func deleteTicketProcessor(a IApp, i *discordgo.InteractionCreate) error {
	ctx := context.Background()

	if !isAdmin(i) {
		return respondEphemeral(a, i, messages.MissingAdminPermission)
	}

	ticket, err := a.Tickets().Lookup(ctx, i.GuildID, i.ChannelID)
	if err != nil {
		return fmt.Errorf("error getting ticket: %w", err)
	}

	err = a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("Delete ticket #%d? The channel will be removed; the ticket stays on record.", ticket.Number),
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Label:    "Delete",
							Style:    discordgo.DangerButton,
							CustomID: DeleteConfirmButtonID,
						},
						discordgo.Button{
							Label:    "Cancel",
							Style:    discordgo.SecondaryButton,
							CustomID: DeleteCancelButtonID,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("error responding to interaction: %w", err)
	}

	userID := interactionUserID(i)
	go func() {
		choice, err := a.Confirms().Await(context.Background(), i.ChannelID, userID, nil, wizard.ConfirmDeadline)
		if err != nil {
			if errors.Is(err, collector.ErrTimedOut) {
				followupEphemeral(a, i, messages.WizardTimedOut)
				return
			}
			a.Log().Error("Error collecting delete confirmation",
				slog.String(logging.KeyGuild, i.GuildID),
				slog.String(logging.KeyError, err.Error()))
			return
		}
		if !choice.Confirmed {
			followupEphemeral(a, i, messages.WizardCancelled)
			return
		}

		out, err := a.Tickets().Delete(context.Background(), i.GuildID, i.ChannelID, userID, true)
		if err != nil {
			a.Log().Error("Error deleting ticket",
				slog.String(logging.KeyGuild, i.GuildID),
				slog.String(logging.KeyError, err.Error()))
			followupEphemeral(a, i, messages.ErrUserErrorProcessing)
			return
		}
		logWarnings(a, i.GuildID, "delete", out)
		logTicketEvent(a, context.Background(), i.GuildID, ticketLogLine("deleted", out.Ticket, userID))
		followupEphemeral(a, i, fmt.Sprintf("Ticket #%d deleted. The channel will be removed shortly.", out.Ticket.Number))
	}()
	return nil
}

// followupEphemeral sends an ephemeral follow-up to an already-answered
// interaction.
func followupEphemeral(a IApp, i *discordgo.InteractionCreate, content string) {
	if _, err := a.Session().FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	}); err != nil {
		a.Log().Error("Error sending follow-up", slog.String(logging.KeyError, err.Error()))
	}
}

// ticketLogLine renders the log-channel line for a lifecycle event.
func ticketLogLine(event string, ticket *entities.Ticket, actorID string) string {
	return fmt.Sprintf("Ticket #%d (%s) %s by <@%s>.", ticket.Number, ticket.RequesterName, event, actorID)
}

// logTicketEvent posts the event to the guild's log channel, when one is
// configured.
func logTicketEvent(a IApp, ctx context.Context, guildID, line string) {
	cfg, err := a.GuildConfigs().GetGuildConfig(ctx, guildID)
	if err != nil {
		a.Log().Warn("Error getting guild config for log channel",
			slog.String(logging.KeyGuild, guildID),
			slog.String(logging.KeyError, err.Error()))
		return
	}
	if cfg.Button.LogChannelID == "" {
		return
	}
	if _, err := a.Session().ChannelMessageSend(cfg.Button.LogChannelID, line); err != nil {
		a.Log().Warn("Error posting to log channel",
			slog.String(logging.KeyGuild, guildID),
			slog.String(logging.KeyError, err.Error()))
	}
}

// logWarnings records the non-essential side effects an operation could not
// complete.
func logWarnings(a IApp, guildID, op string, out *ticketing.Outcome) {
	if !out.Partial() {
		return
	}
	a.Log().Warn("Ticket operation completed with warnings",
		slog.String(logging.KeyGuild, guildID),
		slog.String("operation", op),
		slog.String("warnings", strings.Join(out.Warnings, "; ")))
}
