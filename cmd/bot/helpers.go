package main

import (
	"github.com/Jacobbrewer1/discordgo"
	"github.com/denbot/den/pkg/entities"
)

func respondEphemeral(a IApp, i *discordgo.InteractionCreate, content string) error {
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// interactionUserID returns the invoking user, whichever of the guild member
// or DM user the payload carries.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// interactionUsername returns the invoking user's username.
func interactionUsername(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.Username
	}
	if i.User != nil {
		return i.User.Username
	}
	return ""
}

// isAdmin reports whether the invoking member has administrator permissions.
func isAdmin(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator == discordgo.PermissionAdministrator
}

// memberHasRole reports whether the invoking member carries the role.
func memberHasRole(i *discordgo.InteractionCreate, roleID string) bool {
	if i.Member == nil || roleID == "" {
		return false
	}
	for _, r := range i.Member.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// buttonStyle maps a configured style onto the platform's button styles.
func buttonStyle(style entities.ButtonStyle) discordgo.ButtonStyle {
	switch style {
	case entities.StyleSecondary:
		return discordgo.SecondaryButton
	case entities.StyleSuccess:
		return discordgo.SuccessButton
	case entities.StyleDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}
