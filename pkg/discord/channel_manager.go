// Package discord adapts the chat platform SDK to the interfaces the
// ticketing core consumes. Nothing outside this package and cmd/bot touches
// the SDK.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/denbot/den/pkg/logging"
	"github.com/denbot/den/pkg/ticketing"
)

// parentCategoryName is the name of the channel category ticket channels
// are created under. It is created on demand when missing.
const parentCategoryName = "Tickets"

// ChannelManager performs ticket channel operations against Discord.
type ChannelManager struct {
	// l is the logger.
	l *slog.Logger

	// s is the discord session.
	s *discordgo.Session

	// mu guards parents.
	mu sync.Mutex

	// parents caches the resolved parent category channel per guild.
	parents map[string]string
}

// NewChannelManager creates a new Discord channel manager.
func NewChannelManager(l *slog.Logger, s *discordgo.Session) *ChannelManager {
	return &ChannelManager{
		l:       l.With(slog.String("component", "channel_manager")),
		s:       s,
		parents: make(map[string]string),
	}
}

var _ ticketing.ChannelManager = (*ChannelManager)(nil)

// isUnknownChannel reports whether the error is the platform saying the
// channel does not exist. The general error code is included because some
// 404s surface as it.
func isUnknownChannel(err error) bool {
	er := new(discordgo.RESTError)
	return errors.As(err, &er) &&
		(er.Message.Code == discordgo.ErrCodeUnknownChannel || er.Message.Code == discordgo.ErrCodeGeneralError)
}

// ensureParent resolves the guild's ticket parent category, creating it
// when it is missing or was deleted out-of-band.
func (m *ChannelManager) ensureParent(guildID string) (string, error) {
	m.mu.Lock()
	cached, ok := m.parents[guildID]
	m.mu.Unlock()

	if ok {
		if _, err := m.s.Channel(cached); err == nil {
			return cached, nil
		} else if !isUnknownChannel(err) {
			return "", fmt.Errorf("error getting parent category: %w", err)
		}
		// Deleted out-of-band; fall through and recreate.
	}

	m.l.Info("Ticket parent category missing, creating it", slog.String(logging.KeyGuild, guildID))
	parent, err := m.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name: parentCategoryName,
		Type: discordgo.ChannelTypeGuildCategory,
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			// Deny @everyone from seeing ticket channels.
			{
				ID:   guildID,
				Type: discordgo.PermissionOverwriteTypeRole,
				Deny: discordgo.PermissionAll,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("error creating parent category: %w", err)
	}

	m.mu.Lock()
	m.parents[guildID] = parent.ID
	m.mu.Unlock()
	return parent.ID, nil
}

// overwrites maps grants onto permission overwrites for channel creation.
func overwrites(guildID string, grants []ticketing.Grant) []*discordgo.PermissionOverwrite {
	out := []*discordgo.PermissionOverwrite{
		// Deny @everyone from seeing the ticket.
		{
			ID:   guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionAll,
		},
	}
	for _, g := range grants {
		t := discordgo.PermissionOverwriteTypeMember
		if g.Role {
			t = discordgo.PermissionOverwriteTypeRole
		}
		o := &discordgo.PermissionOverwrite{
			ID:   g.PrincipalID,
			Type: t,
		}
		switch g.State {
		case ticketing.PermissionAllow:
			o.Allow = discordgo.PermissionAllText
			o.Deny = discordgo.PermissionMentionEveryone
		case ticketing.PermissionDeny:
			o.Deny = discordgo.PermissionAllText
		case ticketing.PermissionInherit:
			continue
		}
		out = append(out, o)
	}
	return out
}

func (m *ChannelManager) CreateChannel(ctx context.Context, guildID, name, topic string, grants []ticketing.Grant) (string, error) {
	parentID, err := m.ensureParent(guildID)
	if err != nil {
		return "", err
	}

	channel, err := m.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                topic,
		ParentID:             parentID,
		PermissionOverwrites: overwrites(guildID, grants),
	})
	if err != nil {
		return "", fmt.Errorf("error creating channel: %w", err)
	}
	return channel.ID, nil
}

func (m *ChannelManager) RenameChannel(ctx context.Context, channelID, name string) error {
	if _, err := m.s.ChannelEditComplex(channelID, &discordgo.ChannelEdit{
		Name: name,
	}); err != nil {
		return fmt.Errorf("error renaming channel: %w", err)
	}
	return nil
}

func (m *ChannelManager) SetPermission(ctx context.Context, channelID string, grant ticketing.Grant) error {
	t := discordgo.PermissionOverwriteTypeMember
	if grant.Role {
		t = discordgo.PermissionOverwriteTypeRole
	}

	var err error
	switch grant.State {
	case ticketing.PermissionAllow:
		err = m.s.ChannelPermissionSet(channelID, grant.PrincipalID, t, discordgo.PermissionAllText, discordgo.PermissionMentionEveryone)
	case ticketing.PermissionDeny:
		err = m.s.ChannelPermissionSet(channelID, grant.PrincipalID, t, 0, discordgo.PermissionAllText)
	case ticketing.PermissionInherit:
		err = m.s.ChannelPermissionDelete(channelID, grant.PrincipalID)
	}
	if err != nil {
		return fmt.Errorf("error setting channel permission: %w", err)
	}
	return nil
}

func (m *ChannelManager) PostMessage(ctx context.Context, channelID, content string) (string, error) {
	msg, err := m.s.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", fmt.Errorf("error sending message: %w", err)
	}
	return msg.ID, nil
}

func (m *ChannelManager) DeleteChannel(ctx context.Context, channelID string) error {
	if _, err := m.s.ChannelDelete(channelID); err != nil {
		// Already deleted out-of-band is the target state.
		if isUnknownChannel(err) {
			return nil
		}
		return fmt.Errorf("error deleting channel: %w", err)
	}
	return nil
}

func (m *ChannelManager) ChannelExists(ctx context.Context, channelID string) (bool, error) {
	_, err := m.s.Channel(channelID)
	if err != nil {
		if isUnknownChannel(err) {
			return false, nil
		}
		return false, fmt.Errorf("error getting channel: %w", err)
	}
	return true, nil
}
