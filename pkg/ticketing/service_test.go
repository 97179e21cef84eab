package ticketing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/denbot/den/pkg/entities"
	"github.com/denbot/den/pkg/logging"
	"github.com/denbot/den/pkg/messages"
	"github.com/stretchr/testify/require"
)

const (
	testGuild    = "guild-1"
	testCategory = "cat-1"
	testRole     = "role-1"
)

type serviceFixture struct {
	svc      *Service
	guilds   *fakeGuildDal
	cats     *fakeCategoryDal
	tickets  *fakeTicketDal
	channels *fakeChannels
	notifier *fakeNotifier
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	l, err := logging.CommonLogger(logging.NewConfig(`tests`))
	require.NoError(t, err, "Failed to create logger")

	f := &serviceFixture{
		guilds:   newFakeGuildDal(),
		cats:     newFakeCategoryDal(),
		tickets:  newFakeTicketDal(),
		channels: newFakeChannels(),
		notifier: newFakeNotifier(),
	}
	f.svc = NewService(l, f.guilds, f.cats, f.tickets, f.channels, f.notifier)

	// Channel deletion runs synchronously under test.
	f.svc.schedule = func(_ time.Duration, fn func()) { fn() }

	require.NoError(t, f.guilds.SaveGuildConfig(context.Background(), &entities.GuildConfig{
		GuildID: testGuild,
		Enabled: true,
	}))
	require.NoError(t, f.cats.SaveCategory(context.Background(), &entities.Category{
		ID:            testCategory,
		GuildID:       testGuild,
		Name:          "General",
		SupportRoleID: testRole,
		Enabled:       true,
	}))
	return f
}

func requesterN(n int) Requester {
	return Requester{ID: fmt.Sprintf("user-%d", n), Name: fmt.Sprintf("user%d", n)}
}

func TestServiceCreate(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	out, err := f.svc.Create(ctx, testGuild, Requester{ID: "user-1", Name: "alice"}, testCategory)
	require.NoError(t, err)
	require.False(t, out.Partial())

	ticket := out.Ticket
	require.Equal(t, 1, ticket.Number)
	require.Equal(t, entities.TicketOpen, ticket.Status)
	require.Equal(t, "ticket-0001-alice", ticket.ChannelName())
	require.NotEmpty(t, ticket.ChannelID)

	// Requester and support role were both granted access on creation.
	require.Len(t, f.channels.perms, 2)
	require.Equal(t, Grant{PrincipalID: "user-1", State: PermissionAllow}, f.channels.perms[0].grant)
	require.Equal(t, Grant{PrincipalID: testRole, Role: true, State: PermissionAllow}, f.channels.perms[1].grant)

	// The welcome message mentions the requester.
	posts := f.channels.posts[ticket.ChannelID]
	require.Len(t, posts, 1)
	require.Equal(t, "<@user-1> "+messages.DefaultWelcomeMessage, posts[0])

	// The category counter advanced.
	cat, err := f.cats.GetCategory(ctx, testGuild, testCategory)
	require.NoError(t, err)
	require.Equal(t, 1, cat.TicketCount)
}

func TestServiceCreateTemplatedWelcome(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	cat, err := f.cats.GetCategory(ctx, testGuild, testCategory)
	require.NoError(t, err)
	cat.Template = entities.MessageTemplate{
		WelcomeMessage:     "Welcome aboard.",
		IncludeSupportTeam: true,
	}
	require.NoError(t, f.cats.SaveCategory(ctx, cat))

	out, err := f.svc.Create(ctx, testGuild, Requester{ID: "user-1", Name: "alice"}, testCategory)
	require.NoError(t, err)

	posts := f.channels.posts[out.Ticket.ChannelID]
	require.Len(t, posts, 1)
	require.Equal(t, "<@&role-1>\n<@user-1> Welcome aboard.", posts[0])
}

func TestServiceCreateDisabled(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	cfg, err := f.guilds.GetGuildConfig(ctx, testGuild)
	require.NoError(t, err)
	cfg.Enabled = false
	require.NoError(t, f.guilds.SaveGuildConfig(ctx, cfg))

	_, err = f.svc.Create(ctx, testGuild, requesterN(1), testCategory)
	require.ErrorIs(t, err, ErrTicketingDisabled)

	// A guild that was never set up behaves the same.
	_, err = f.svc.Create(ctx, "guild-unknown", requesterN(1), testCategory)
	require.ErrorIs(t, err, ErrTicketingDisabled)
}

func TestServiceCreateDuplicate(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, testGuild, Requester{ID: "user-1", Name: "alice"}, testCategory)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, testGuild, Requester{ID: "user-1", Name: "alice"}, testCategory)
	require.ErrorIs(t, err, ErrDuplicateOpenTicket)

	// The conflicting ticket rides along for the caller to point at.
	terr := new(Error)
	require.ErrorAs(t, err, &terr)
	require.NotNil(t, terr.Ticket)
	require.Equal(t, first.Ticket.Number, terr.Ticket.Number)
}

func TestServiceCreateHealsStaleTicket(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, testGuild, Requester{ID: "user-1", Name: "alice"}, testCategory)
	require.NoError(t, err)

	// The channel disappears out-of-band; the open record must not block the
	// requester forever.
	f.channels.drop(first.Ticket.ChannelID)

	second, err := f.svc.Create(ctx, testGuild, Requester{ID: "user-1", Name: "alice"}, testCategory)
	require.NoError(t, err)
	require.Equal(t, 2, second.Ticket.Number)

	healed, err := f.tickets.GetTicketByNumber(ctx, testGuild, first.Ticket.Number)
	require.NoError(t, err)
	require.Equal(t, entities.TicketClosed, healed.Status)
	require.Equal(t, "channel missing", healed.CloseReason)
	require.NotNil(t, healed.ClosedAt)
}

func TestServiceCreateCategoryUnavailable(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, testGuild, requesterN(1), "cat-unknown")
	require.ErrorIs(t, err, ErrCategoryUnavailable)

	cat, err := f.cats.GetCategory(ctx, testGuild, testCategory)
	require.NoError(t, err)
	cat.Enabled = false
	require.NoError(t, f.cats.SaveCategory(ctx, cat))

	_, err = f.svc.Create(ctx, testGuild, requesterN(1), testCategory)
	require.ErrorIs(t, err, ErrCategoryUnavailable)
}

func TestServiceCreateCompensatesOnSaveFailure(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.tickets.saveErr = fmt.Errorf("save failed")

	_, err := f.svc.Create(ctx, testGuild, requesterN(1), testCategory)
	require.Error(t, err)
	require.Equal(t, KindPersistence, KindOf(err))

	// The orphaned channel was removed so the requester is not locked out.
	require.Len(t, f.channels.deleted, 1)
	require.Empty(t, f.channels.channels)
}

func TestServiceCreateWarnsOnWelcomeFailure(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.channels.postErr = fmt.Errorf("post failed")

	out, err := f.svc.Create(ctx, testGuild, requesterN(1), testCategory)
	require.NoError(t, err)
	require.True(t, out.Partial())
	require.Contains(t, out.Warnings, "welcome message not posted")

	// The ticket itself is fully created.
	stored, err := f.tickets.GetTicketByNumber(ctx, testGuild, out.Ticket.Number)
	require.NoError(t, err)
	require.Equal(t, entities.TicketOpen, stored.Status)
}

func TestServiceCreateConcurrentNumbers(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	numbers := make(chan int, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := f.svc.Create(ctx, testGuild, requesterN(i), testCategory)
			if err != nil {
				errs <- err
				return
			}
			numbers <- out.Ticket.Number
		}(i)
	}
	wg.Wait()
	close(numbers)
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Every ticket got a distinct number in 1..n.
	seen := make(map[int]bool, n)
	for num := range numbers {
		require.False(t, seen[num], "number %d allocated twice", num)
		require.GreaterOrEqual(t, num, 1)
		require.LessOrEqual(t, num, n)
		seen[num] = true
	}
	require.Len(t, seen, n)
}

func TestServiceClose(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	out, err := f.svc.Create(ctx, testGuild, Requester{ID: "user-1", Name: "alice"}, testCategory)
	require.NoError(t, err)
	channelID := out.Ticket.ChannelID

	closed, err := f.svc.Close(ctx, testGuild, channelID, "staff-1", "resolved")
	require.NoError(t, err)
	require.False(t, closed.Partial())
	require.Equal(t, entities.TicketClosed, closed.Ticket.Status)
	require.Equal(t, "staff-1", closed.Ticket.ClosedBy)
	require.Equal(t, "resolved", closed.Ticket.CloseReason)
	require.NotNil(t, closed.Ticket.ClosedAt)

	// The requester lost send permission and the close notice was posted.
	last := f.channels.perms[len(f.channels.perms)-1]
	require.Equal(t, Grant{PrincipalID: "user-1", State: PermissionDeny}, last.grant)
	posts := f.channels.posts[channelID]
	require.Equal(t, messages.DefaultCloseMessage+"\nClosed by <@staff-1>: resolved", posts[len(posts)-1])
	require.Equal(t, "closed-0001-alice", f.channels.renames[channelID])

	// Closing again is rejected and changes nothing.
	_, err = f.svc.Close(ctx, testGuild, channelID, "staff-2", "again")
	require.ErrorIs(t, err, ErrAlreadyClosed)

	stored, err := f.tickets.GetTicketByNumber(ctx, testGuild, closed.Ticket.Number)
	require.NoError(t, err)
	require.Equal(t, "staff-1", stored.ClosedBy)
	require.Equal(t, "resolved", stored.CloseReason)
}

func TestServiceCloseWarnings(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	out, err := f.svc.Create(ctx, testGuild, requesterN(1), testCategory)
	require.NoError(t, err)

	f.channels.setPermErr = fmt.Errorf("perm failed")
	f.channels.postErr = fmt.Errorf("post failed")

	closed, err := f.svc.Close(ctx, testGuild, out.Ticket.ChannelID, "staff-1", "")
	require.NoError(t, err)
	require.True(t, closed.Partial())
	require.Equal(t, []string{"channel permissions not updated", "close notice not posted"}, closed.Warnings)

	// The status change is still authoritative.
	stored, err := f.tickets.GetTicketByNumber(ctx, testGuild, closed.Ticket.Number)
	require.NoError(t, err)
	require.Equal(t, entities.TicketClosed, stored.Status)
}

func TestServiceReopen(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	out, err := f.svc.Create(ctx, testGuild, Requester{ID: "user-1", Name: "alice"}, testCategory)
	require.NoError(t, err)
	channelID := out.Ticket.ChannelID

	_, err = f.svc.Reopen(ctx, testGuild, channelID)
	require.ErrorIs(t, err, ErrAlreadyOpen)

	_, err = f.svc.Close(ctx, testGuild, channelID, "staff-1", "resolved")
	require.NoError(t, err)

	reopened, err := f.svc.Reopen(ctx, testGuild, channelID)
	require.NoError(t, err)
	require.Equal(t, entities.TicketOpen, reopened.Ticket.Status)
	require.Empty(t, reopened.Ticket.ClosedBy)
	require.Empty(t, reopened.Ticket.CloseReason)
	require.Nil(t, reopened.Ticket.ClosedAt)

	// Requester and support role got their access back and the channel name
	// reverted.
	perms := f.channels.perms[len(f.channels.perms)-2:]
	require.Equal(t, Grant{PrincipalID: "user-1", State: PermissionAllow}, perms[0].grant)
	require.Equal(t, Grant{PrincipalID: testRole, Role: true, State: PermissionAllow}, perms[1].grant)
	require.Equal(t, "ticket-0001-alice", f.channels.renames[channelID])
}

func TestServiceReopenCategoryDeleted(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	out, err := f.svc.Create(ctx, testGuild, Requester{ID: "user-1", Name: "alice"}, testCategory)
	require.NoError(t, err)
	_, err = f.svc.Close(ctx, testGuild, out.Ticket.ChannelID, "staff-1", "")
	require.NoError(t, err)

	// The category disappears while the ticket is closed.
	require.NoError(t, f.cats.DeleteCategory(ctx, testGuild, testCategory))

	before := len(f.channels.perms)
	reopened, err := f.svc.Reopen(ctx, testGuild, out.Ticket.ChannelID)
	require.NoError(t, err)
	require.Equal(t, entities.TicketOpen, reopened.Ticket.Status)

	// Only the requester grant was restored; the support role grant is
	// skipped without a warning.
	require.Len(t, f.channels.perms, before+1)
	require.False(t, reopened.Partial())
}

func TestServiceArchive(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	out, err := f.svc.Create(ctx, testGuild, requesterN(1), testCategory)
	require.NoError(t, err)
	channelID := out.Ticket.ChannelID

	archived, err := f.svc.Archive(ctx, testGuild, channelID, "staff-1")
	require.NoError(t, err)
	require.Equal(t, entities.TicketArchived, archived.Ticket.Status)
	require.Equal(t, "staff-1", archived.Ticket.ClosedBy)
	require.NotNil(t, archived.Ticket.ClosedAt)

	_, err = f.svc.Archive(ctx, testGuild, channelID, "staff-1")
	require.ErrorIs(t, err, ErrAlreadyArchived)

	// An archived ticket can be reopened.
	reopened, err := f.svc.Reopen(ctx, testGuild, channelID)
	require.NoError(t, err)
	require.Equal(t, entities.TicketOpen, reopened.Ticket.Status)
}

func TestServiceLifecycleTimestamps(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	// Advance the clock one second per observation.
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	f.svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	out, err := f.svc.Create(ctx, testGuild, requesterN(1), testCategory)
	require.NoError(t, err)
	channelID := out.Ticket.ChannelID

	first, err := f.svc.Close(ctx, testGuild, channelID, "staff-1", "")
	require.NoError(t, err)
	firstClosed := first.Ticket.ClosedAt.Time()

	_, err = f.svc.Reopen(ctx, testGuild, channelID)
	require.NoError(t, err)

	second, err := f.svc.Close(ctx, testGuild, channelID, "staff-1", "")
	require.NoError(t, err)

	require.True(t, second.Ticket.ClosedAt.Time().After(firstClosed))
	require.True(t, second.Ticket.UpdatedAt.Time().After(first.Ticket.UpdatedAt.Time()))
}

func TestServiceDelete(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	out, err := f.svc.Create(ctx, testGuild, Requester{ID: "user-1", Name: "alice"}, testCategory)
	require.NoError(t, err)
	channelID := out.Ticket.ChannelID

	_, err = f.svc.Delete(ctx, testGuild, channelID, "user-1", false)
	require.ErrorIs(t, err, ErrPermissionDenied)

	deleted, err := f.svc.Delete(ctx, testGuild, channelID, "staff-1", true)
	require.NoError(t, err)
	require.Equal(t, entities.TicketClosed, deleted.Ticket.Status)
	require.Equal(t, "deleted by staff", deleted.Ticket.CloseReason)
	require.Equal(t, "staff-1", deleted.Ticket.ClosedBy)

	// The channel is gone but the ticket document survives as audit trail.
	require.Contains(t, f.channels.deleted, channelID)
	stored, err := f.tickets.GetTicketByNumber(ctx, testGuild, deleted.Ticket.Number)
	require.NoError(t, err)
	require.Equal(t, entities.TicketClosed, stored.Status)

	// The requester was told.
	notes := f.notifier.notes["user-1"]
	require.Len(t, notes, 1)
	require.Equal(t, fmt.Sprintf(messages.DeletedTicketNotice, deleted.Ticket.Number), notes[0])
}

func TestServiceDeleteNotifyFailure(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	out, err := f.svc.Create(ctx, testGuild, requesterN(1), testCategory)
	require.NoError(t, err)

	f.notifier.err = fmt.Errorf("dms closed")

	deleted, err := f.svc.Delete(ctx, testGuild, out.Ticket.ChannelID, "staff-1", true)
	require.NoError(t, err)
	require.True(t, deleted.Partial())
	require.Contains(t, deleted.Warnings, "requester not notified")
	require.Contains(t, f.channels.deleted, out.Ticket.ChannelID)
}

func TestServiceOpenTickets(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, testGuild, requesterN(1), testCategory)
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, testGuild, requesterN(2), testCategory)
	require.NoError(t, err)

	_, err = f.svc.Close(ctx, testGuild, first.Ticket.ChannelID, "staff-1", "")
	require.NoError(t, err)

	open, err := f.svc.OpenTickets(ctx, testGuild)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, second.Ticket.Number, open[0].Number)
}

func TestServiceLookup(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Lookup(ctx, testGuild, "chan-unknown")
	require.ErrorIs(t, err, ErrNotATicket)

	out, err := f.svc.Create(ctx, testGuild, requesterN(1), testCategory)
	require.NoError(t, err)

	ticket, err := f.svc.Lookup(ctx, testGuild, out.Ticket.ChannelID)
	require.NoError(t, err)
	require.Equal(t, out.Ticket.Number, ticket.Number)
}
