package ticketing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/denbot/den/pkg/custom"
	"github.com/denbot/den/pkg/dataaccess"
	"github.com/denbot/den/pkg/entities"
	"github.com/denbot/den/pkg/logging"
	"github.com/denbot/den/pkg/messages"
	"github.com/denbot/den/pkg/ticketing/monitoring"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// closeReasonChannelMissing is recorded when a stale open ticket is
	// healed because its channel no longer resolves.
	closeReasonChannelMissing = "channel missing"

	// closeReasonDeleted is recorded when staff delete a ticket. The ticket
	// document deliberately survives as an audit trail; only the channel is
	// removed.
	closeReasonDeleted = "deleted by staff"

	// defaultDeleteDelay is how long channel deletion is deferred after a
	// delete is confirmed, so the confirming UI update lands before the
	// channel disappears.
	defaultDeleteDelay = 3 * time.Second
)

// Requester identifies the user opening a ticket.
type Requester struct {
	// ID is the user's ID.
	ID string

	// Name is the user's username, used in the channel name.
	Name string
}

// Service drives the ticket lifecycle: create, close, reopen, archive and
// delete. All state transitions are written to the store first; channel-side
// effects that fail afterwards are reported as warnings, never rolled back.
type Service struct {
	// l is the logger.
	l *slog.Logger

	// guilds is the guild configuration store.
	guilds dataaccess.GuildConfigDal

	// categories is the category store.
	categories dataaccess.CategoryDal

	// tickets is the ticket store.
	tickets dataaccess.TicketDal

	// channels performs the external channel operations.
	channels ChannelManager

	// notifier delivers best-effort direct messages.
	notifier Notifier

	// deleteDelay is the grace period before a deleted ticket's channel is
	// removed.
	deleteDelay time.Duration

	// schedule defers a function; replaced in tests to run synchronously.
	schedule func(d time.Duration, f func())

	// now returns the current time; replaced in tests.
	now func() time.Time
}

// NewService creates a new ticket lifecycle service.
func NewService(l *slog.Logger, guilds dataaccess.GuildConfigDal, categories dataaccess.CategoryDal, tickets dataaccess.TicketDal, channels ChannelManager, notifier Notifier) *Service {
	return &Service{
		l:           l.With(slog.String("component", "ticketing")),
		guilds:      guilds,
		categories:  categories,
		tickets:     tickets,
		channels:    channels,
		notifier:    notifier,
		deleteDelay: defaultDeleteDelay,
		schedule: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a new ticket for the requester in the given category.
func (s *Service) Create(ctx context.Context, guildID string, requester Requester, categoryID string) (*Outcome, error) {
	defer s.observe("create")()

	cfg, err := s.guilds.GetGuildConfig(ctx, guildID)
	if errors.Is(err, dataaccess.ErrNotFound) {
		return s.fail("create", ErrTicketingDisabled)
	} else if err != nil {
		return s.fail("create", persistenceError("getting guild config", err))
	}
	if !cfg.Enabled {
		return s.fail("create", ErrTicketingDisabled)
	}

	// One open ticket per requester per guild. A record only counts as open
	// if its channel still resolves; stale records are healed here instead
	// of blocking the requester forever.
	existing, err := s.tickets.GetOpenTicketByRequester(ctx, guildID, requester.ID)
	if err != nil && !errors.Is(err, dataaccess.ErrNotFound) {
		return s.fail("create", persistenceError("getting open ticket", err))
	}
	if existing != nil {
		live, err := s.channels.ChannelExists(ctx, existing.ChannelID)
		if err != nil {
			return s.fail("create", externalError("resolving existing ticket channel", err))
		}
		if live {
			dup := &Error{
				Kind:    KindConflict,
				Message: ErrDuplicateOpenTicket.Message,
				Ticket:  existing,
			}
			return s.fail("create", dup)
		}

		// The backing channel was deleted out-of-band; close the stale
		// record and carry on.
		now := custom.Datetime(s.now())
		existing.Status = entities.TicketClosed
		existing.CloseReason = closeReasonChannelMissing
		existing.ClosedAt = &now
		existing.UpdatedAt = now
		if err := s.tickets.SaveTicket(ctx, existing); err != nil {
			return s.fail("create", persistenceError("healing stale ticket", err))
		}
		s.l.Info("Healed stale open ticket",
			slog.String(logging.KeyGuild, guildID),
			slog.Int(logging.KeyTicket, existing.Number))
	}

	category, err := s.categories.GetCategory(ctx, guildID, categoryID)
	if errors.Is(err, dataaccess.ErrNotFound) {
		return s.fail("create", ErrCategoryUnavailable)
	} else if err != nil {
		return s.fail("create", persistenceError("getting category", err))
	}
	if !category.Enabled {
		return s.fail("create", ErrCategoryUnavailable)
	}

	number, err := s.tickets.NextTicketNumber(ctx, guildID)
	if err != nil {
		return s.fail("create", persistenceError("allocating ticket number", err))
	}

	now := custom.Datetime(s.now())
	ticket := &entities.Ticket{
		Number:        number,
		GuildID:       guildID,
		CategoryID:    categoryID,
		RequesterID:   requester.ID,
		RequesterName: requester.Name,
		Status:        entities.TicketOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	grants := []Grant{
		{PrincipalID: requester.ID, State: PermissionAllow},
	}
	if category.SupportRoleID != "" {
		grants = append(grants, Grant{PrincipalID: category.SupportRoleID, Role: true, State: PermissionAllow})
	}

	topic := fmt.Sprintf("Ticket opened by %s (%s)", requester.Name, category.Name)
	channelID, err := s.channels.CreateChannel(ctx, guildID, ticket.ChannelName(), topic, grants)
	if err != nil {
		return s.fail("create", externalError("creating ticket channel", err))
	}
	ticket.ChannelID = channelID

	if err := s.tickets.SaveTicket(ctx, ticket); err != nil {
		// The channel exists but the record does not; remove the orphan so
		// the requester is not locked out of future creates.
		if derr := s.channels.DeleteChannel(ctx, channelID); derr != nil {
			s.l.Error("Error deleting orphaned ticket channel",
				slog.String(logging.KeyGuild, guildID),
				slog.String(logging.KeyError, derr.Error()))
		}
		return s.fail("create", persistenceError("saving ticket", err))
	}

	outcome := &Outcome{Ticket: ticket}

	// The counter is advisory; a lost increment is logged, not fatal.
	if err := s.categories.IncrementTicketCount(ctx, guildID, categoryID); err != nil {
		s.l.Error("Error incrementing category ticket count",
			slog.String(logging.KeyGuild, guildID),
			slog.String(logging.KeyError, err.Error()))
		outcome.warn("category ticket count not updated")
	}

	if _, err := s.channels.PostMessage(ctx, channelID, s.welcomeMessage(category, requester)); err != nil {
		s.l.Error("Error posting welcome message",
			slog.String(logging.KeyGuild, guildID),
			slog.Int(logging.KeyTicket, ticket.Number),
			slog.String(logging.KeyError, err.Error()))
		outcome.warn("welcome message not posted")
	}

	s.record("create", outcome)
	return outcome, nil
}

// Close closes the ticket backing the given channel.
func (s *Service) Close(ctx context.Context, guildID, channelID, closedBy, reason string) (*Outcome, error) {
	defer s.observe("close")()

	ticket, err := s.ticketByChannel(ctx, guildID, channelID)
	if err != nil {
		return s.fail("close", err)
	}
	if ticket.Status != entities.TicketOpen {
		return s.fail("close", ErrAlreadyClosed)
	}

	now := custom.Datetime(s.now())
	ticket.Status = entities.TicketClosed
	ticket.ClosedBy = closedBy
	ticket.CloseReason = reason
	ticket.ClosedAt = &now
	ticket.UpdatedAt = now
	if err := s.tickets.SaveTicket(ctx, ticket); err != nil {
		return s.fail("close", persistenceError("saving ticket", err))
	}

	outcome := &Outcome{Ticket: ticket}

	// The status change above is authoritative; everything below is
	// best-effort.
	if err := s.channels.SetPermission(ctx, channelID, Grant{PrincipalID: ticket.RequesterID, State: PermissionDeny}); err != nil {
		s.l.Error("Error denying send permission on close",
			slog.String(logging.KeyGuild, guildID),
			slog.Int(logging.KeyTicket, ticket.Number),
			slog.String(logging.KeyError, err.Error()))
		outcome.warn("channel permissions not updated")
	}

	if _, err := s.channels.PostMessage(ctx, channelID, s.closeMessage(ctx, ticket)); err != nil {
		s.l.Error("Error posting close notice",
			slog.String(logging.KeyGuild, guildID),
			slog.Int(logging.KeyTicket, ticket.Number),
			slog.String(logging.KeyError, err.Error()))
		outcome.warn("close notice not posted")
	}

	if err := s.channels.RenameChannel(ctx, channelID, ticket.ClosedChannelName()); err != nil {
		s.l.Error("Error renaming channel on close",
			slog.String(logging.KeyGuild, guildID),
			slog.Int(logging.KeyTicket, ticket.Number),
			slog.String(logging.KeyError, err.Error()))
		outcome.warn("channel not renamed")
	}

	s.record("close", outcome)
	return outcome, nil
}

// Reopen restores a closed or archived ticket to open.
func (s *Service) Reopen(ctx context.Context, guildID, channelID string) (*Outcome, error) {
	defer s.observe("reopen")()

	ticket, err := s.ticketByChannel(ctx, guildID, channelID)
	if err != nil {
		return s.fail("reopen", err)
	}
	if ticket.Status == entities.TicketOpen {
		return s.fail("reopen", ErrAlreadyOpen)
	}

	now := custom.Datetime(s.now())
	ticket.Status = entities.TicketOpen
	ticket.ClosedBy = ""
	ticket.CloseReason = ""
	ticket.ClosedAt = nil
	ticket.UpdatedAt = now
	if err := s.tickets.SaveTicket(ctx, ticket); err != nil {
		return s.fail("reopen", persistenceError("saving ticket", err))
	}

	outcome := &Outcome{Ticket: ticket}

	if err := s.channels.RenameChannel(ctx, channelID, ticket.ChannelName()); err != nil {
		s.l.Error("Error renaming channel on reopen",
			slog.String(logging.KeyGuild, guildID),
			slog.Int(logging.KeyTicket, ticket.Number),
			slog.String(logging.KeyError, err.Error()))
		outcome.warn("channel not renamed")
	}

	if err := s.channels.SetPermission(ctx, channelID, Grant{PrincipalID: ticket.RequesterID, State: PermissionAllow}); err != nil {
		s.l.Error("Error restoring requester permission on reopen",
			slog.String(logging.KeyGuild, guildID),
			slog.Int(logging.KeyTicket, ticket.Number),
			slog.String(logging.KeyError, err.Error()))
		outcome.warn("requester permissions not restored")
	}

	// The category may have been deleted since the ticket was opened; the
	// support role grant is simply skipped then.
	category, err := s.categories.GetCategory(ctx, guildID, ticket.CategoryID)
	if err == nil && category.SupportRoleID != "" {
		if err := s.channels.SetPermission(ctx, channelID, Grant{PrincipalID: category.SupportRoleID, Role: true, State: PermissionAllow}); err != nil {
			s.l.Error("Error restoring support role permission on reopen",
				slog.String(logging.KeyGuild, guildID),
				slog.Int(logging.KeyTicket, ticket.Number),
				slog.String(logging.KeyError, err.Error()))
			outcome.warn("support role permissions not restored")
		}
	}

	s.record("reopen", outcome)
	return outcome, nil
}

// Archive marks the ticket archived. Archival is a classification only; no
// channel permissions change.
func (s *Service) Archive(ctx context.Context, guildID, channelID, archivedBy string) (*Outcome, error) {
	defer s.observe("archive")()

	ticket, err := s.ticketByChannel(ctx, guildID, channelID)
	if err != nil {
		return s.fail("archive", err)
	}
	if ticket.Status == entities.TicketArchived {
		return s.fail("archive", ErrAlreadyArchived)
	}

	now := custom.Datetime(s.now())
	ticket.Status = entities.TicketArchived
	if ticket.ClosedBy == "" {
		ticket.ClosedBy = archivedBy
	}
	if ticket.ClosedAt == nil {
		ticket.ClosedAt = &now
	}
	ticket.UpdatedAt = now
	if err := s.tickets.SaveTicket(ctx, ticket); err != nil {
		return s.fail("archive", persistenceError("saving ticket", err))
	}

	outcome := &Outcome{Ticket: ticket}
	s.record("archive", outcome)
	return outcome, nil
}

// Delete closes the ticket with a fixed reason and removes its backing
// channel after a short grace delay. The ticket document is retained as an
// audit trail; there is no true deletion. The elevated flag must be checked
// against the platform's permission model by the caller.
func (s *Service) Delete(ctx context.Context, guildID, channelID, requestedBy string, elevated bool) (*Outcome, error) {
	defer s.observe("delete")()

	if !elevated {
		return s.fail("delete", ErrPermissionDenied)
	}

	ticket, err := s.ticketByChannel(ctx, guildID, channelID)
	if err != nil {
		return s.fail("delete", err)
	}

	now := custom.Datetime(s.now())
	ticket.Status = entities.TicketClosed
	ticket.ClosedBy = requestedBy
	ticket.CloseReason = closeReasonDeleted
	ticket.ClosedAt = &now
	ticket.UpdatedAt = now
	if err := s.tickets.SaveTicket(ctx, ticket); err != nil {
		return s.fail("delete", persistenceError("saving ticket", err))
	}

	outcome := &Outcome{Ticket: ticket}

	if err := s.notifier.NotifyUser(ctx, ticket.RequesterID, fmt.Sprintf(messages.DeletedTicketNotice, ticket.Number)); err != nil {
		s.l.Warn("Error notifying requester of ticket deletion",
			slog.String(logging.KeyGuild, guildID),
			slog.Int(logging.KeyTicket, ticket.Number),
			slog.String(logging.KeyError, err.Error()))
		outcome.warn("requester not notified")
	}

	// Deletion is deferred so the confirmation UI update is not racing the
	// channel removal. Fire and forget; a failure here is logged, never
	// retried, and never rolls back the status change.
	number := ticket.Number
	s.schedule(s.deleteDelay, func() {
		if err := s.channels.DeleteChannel(context.Background(), channelID); err != nil {
			s.l.Error("Error deleting ticket channel",
				slog.String(logging.KeyGuild, guildID),
				slog.Int(logging.KeyTicket, number),
				slog.String(logging.KeyError, err.Error()))
		}
	})

	s.record("delete", outcome)
	return outcome, nil
}

// OpenTickets lists the guild's open tickets in number order.
func (s *Service) OpenTickets(ctx context.Context, guildID string) ([]*entities.Ticket, error) {
	tickets, err := s.tickets.ListOpenTickets(ctx, guildID)
	if err != nil {
		return nil, persistenceError("listing open tickets", err)
	}
	return tickets, nil
}

// Lookup returns the ticket backing a channel, or ErrNotATicket.
func (s *Service) Lookup(ctx context.Context, guildID, channelID string) (*entities.Ticket, error) {
	return s.ticketByChannel(ctx, guildID, channelID)
}

// ticketByChannel resolves the ticket backing a channel.
func (s *Service) ticketByChannel(ctx context.Context, guildID, channelID string) (*entities.Ticket, error) {
	ticket, err := s.tickets.GetTicketByChannel(ctx, guildID, channelID)
	if errors.Is(err, dataaccess.ErrNotFound) {
		return nil, ErrNotATicket
	} else if err != nil {
		return nil, persistenceError("getting ticket", err)
	}
	return ticket, nil
}

// welcomeMessage composes the message posted into a fresh ticket channel.
func (s *Service) welcomeMessage(category *entities.Category, requester Requester) string {
	text := category.Template.WelcomeMessage
	if text == "" {
		text = messages.DefaultWelcomeMessage
	}
	msg := fmt.Sprintf("<@%s> %s", requester.ID, text)
	if category.Template.IncludeSupportTeam && category.SupportRoleID != "" {
		msg = fmt.Sprintf("<@&%s>\n%s", category.SupportRoleID, msg)
	}
	return msg
}

// closeMessage composes the notice posted on close.
func (s *Service) closeMessage(ctx context.Context, ticket *entities.Ticket) string {
	text := messages.DefaultCloseMessage
	if category, err := s.categories.GetCategory(ctx, ticket.GuildID, ticket.CategoryID); err == nil && category.Template.CloseMessage != "" {
		text = category.Template.CloseMessage
	}
	if ticket.CloseReason != "" {
		return fmt.Sprintf("%s\nClosed by <@%s>: %s", text, ticket.ClosedBy, ticket.CloseReason)
	}
	return fmt.Sprintf("%s\nClosed by <@%s>.", text, ticket.ClosedBy)
}

// observe times an operation.
func (s *Service) observe(op string) func() {
	t := prometheus.NewTimer(monitoring.TicketOperationDuration.WithLabelValues(op))
	return func() { t.ObserveDuration() }
}

// record counts a successful operation.
func (s *Service) record(op string, o *Outcome) {
	result := "success"
	if o.Partial() {
		result = "partial"
	}
	monitoring.TicketOperations.WithLabelValues(op, result).Inc()
}

// fail counts and returns a failed operation.
func (s *Service) fail(op string, err error) (*Outcome, error) {
	monitoring.TicketOperations.WithLabelValues(op, KindOf(err).String()).Inc()
	return nil, err
}
