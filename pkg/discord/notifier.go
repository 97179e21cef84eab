package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/denbot/den/pkg/ticketing"
	"golang.org/x/time/rate"
)

// Notifier delivers direct messages to users. DMs are purely best-effort;
// users can disable them, so callers treat failures as warnings.
type Notifier struct {
	// l is the logger.
	l *slog.Logger

	// s is the discord session.
	s *discordgo.Session

	// limiter smooths DM bursts so a bulk operation cannot trip the
	// platform rate limit.
	limiter *rate.Limiter
}

// NewNotifier creates a new DM notifier.
func NewNotifier(l *slog.Logger, s *discordgo.Session) *Notifier {
	return &Notifier{
		l:       l.With(slog.String("component", "notifier")),
		s:       s,
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

var _ ticketing.Notifier = (*Notifier)(nil)

func (n *Notifier) NotifyUser(ctx context.Context, userID, content string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("error waiting for rate limit: %w", err)
	}

	dm, err := n.s.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("error creating DM channel: %w", err)
	}
	if _, err := n.s.ChannelMessageSend(dm.ID, content); err != nil {
		return fmt.Errorf("error sending DM: %w", err)
	}
	return nil
}
