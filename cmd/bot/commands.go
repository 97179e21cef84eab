package main

import (
	"github.com/Jacobbrewer1/discordgo"
)

const (
	// setupCmdName is the command for enabling and disabling ticketing.
	setupCmdName = "setup"

	// enableCmdName is the sub command for enabling ticketing.
	enableCmdName = "enable"

	// disableCmdName is the sub command for disabling ticketing.
	disableCmdName = "disable"

	// channelOptName is the channel option of the enable sub command.
	channelOptName = "channel"

	// roleOptName is the support role option of the enable sub command.
	roleOptName = "role"

	// configCmdName is the command for the configuration wizard.
	configCmdName = "config"

	// ticketCmdName is the command for controlling tickets.
	ticketCmdName = "ticket"

	// closeCmdName is the sub command for closing a ticket.
	closeCmdName = "close"

	// reasonOptName is the close reason option.
	reasonOptName = "reason"

	// reopenCmdName is the sub command for reopening a ticket.
	reopenCmdName = "reopen"

	// archiveCmdName is the sub command for archiving a ticket.
	archiveCmdName = "archive"

	// deleteCmdName is the sub command for deleting a ticket.
	deleteCmdName = "delete"
)

var (
	// setupCmd is the command for enabling and disabling ticketing.
	setupCmd = &discordgo.ApplicationCommand{
		Name:        setupCmdName,
		Type:        discordgo.ChatApplicationCommand,
		Description: "This is the command for enabling and disabling ticketing.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        enableCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This enables ticketing and posts the panel in the channel you specify.",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        channelOptName,
						Type:        discordgo.ApplicationCommandOptionChannel,
						Description: "This is the channel the ticket panel will be posted in.",
						Required:    true,
					},
					{
						Name:        roleOptName,
						Type:        discordgo.ApplicationCommandOptionRole,
						Description: "This is the role you want to handle tickets.",
						Required:    true,
					},
				},
			},
			{
				Name:        disableCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This disables new ticket creation for your server.",
			},
		},
	}

	// configCmd is the command for the configuration wizard.
	configCmd = &discordgo.ApplicationCommand{
		Name:        configCmdName,
		Type:        discordgo.ChatApplicationCommand,
		Description: "This walks you through the ticketing configuration.",
	}

	// ticketCmd is the command for controlling tickets.
	ticketCmd = &discordgo.ApplicationCommand{
		Name:        ticketCmdName,
		Type:        discordgo.ChatApplicationCommand,
		Description: "This is the command for controlling tickets.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        closeCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This closes the ticket for the channel that the command was executed in.",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        reasonOptName,
						Type:        discordgo.ApplicationCommandOptionString,
						Description: "This is the reason the ticket is being closed.",
						Required:    false,
					},
				},
			},
			{
				Name:        reopenCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This reopens the ticket for the channel that the command was executed in.",
			},
			{
				Name:        archiveCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This archives the ticket for the channel that the command was executed in.",
			},
			{
				Name:        deleteCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This deletes the ticket for the channel that the command was executed in.",
			},
		},
	}
)

// slashCommands returns every slash command the bot registers.
func slashCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{setupCmd, configCmd, ticketCmd}
}
