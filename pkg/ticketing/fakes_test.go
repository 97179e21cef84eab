package ticketing

import (
	"context"
	"fmt"
	"sync"

	"github.com/denbot/den/pkg/dataaccess"
	"github.com/denbot/den/pkg/entities"
)

// In-memory stands-ins for the data access layer and the chat platform.

type fakeGuildDal struct {
	mu   sync.Mutex
	cfgs map[string]*entities.GuildConfig
}

func newFakeGuildDal() *fakeGuildDal {
	return &fakeGuildDal{cfgs: make(map[string]*entities.GuildConfig)}
}

func (d *fakeGuildDal) SaveGuildConfig(_ context.Context, cfg *entities.GuildConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := *cfg
	d.cfgs[cfg.GuildID] = &c
	return nil
}

func (d *fakeGuildDal) GetGuildConfig(_ context.Context, guildID string) (*entities.GuildConfig, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cfg, ok := d.cfgs[guildID]
	if !ok {
		return nil, dataaccess.ErrNotFound
	}
	c := *cfg
	return &c, nil
}

func (d *fakeGuildDal) DeleteGuildConfig(_ context.Context, guildID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.cfgs, guildID)
	return nil
}

type fakeCategoryDal struct {
	mu   sync.Mutex
	cats map[string]*entities.Category

	saveErr      error
	incrementErr error
}

func newFakeCategoryDal() *fakeCategoryDal {
	return &fakeCategoryDal{cats: make(map[string]*entities.Category)}
}

func catKey(guildID, categoryID string) string {
	return guildID + "/" + categoryID
}

func (d *fakeCategoryDal) SaveCategory(_ context.Context, category *entities.Category) error {
	if d.saveErr != nil {
		return d.saveErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	c := *category
	d.cats[catKey(category.GuildID, category.ID)] = &c
	return nil
}

func (d *fakeCategoryDal) GetCategory(_ context.Context, guildID, categoryID string) (*entities.Category, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cat, ok := d.cats[catKey(guildID, categoryID)]
	if !ok {
		return nil, dataaccess.ErrNotFound
	}
	c := *cat
	return &c, nil
}

func (d *fakeCategoryDal) ListCategories(_ context.Context, guildID string) ([]*entities.Category, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*entities.Category, 0, len(d.cats))
	for _, cat := range d.cats {
		if cat.GuildID == guildID {
			c := *cat
			out = append(out, &c)
		}
	}
	return out, nil
}

func (d *fakeCategoryDal) CountCategories(_ context.Context, guildID string) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var n int64
	for _, cat := range d.cats {
		if cat.GuildID == guildID {
			n++
		}
	}
	return n, nil
}

func (d *fakeCategoryDal) DeleteCategory(_ context.Context, guildID, categoryID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.cats[catKey(guildID, categoryID)]; !ok {
		return dataaccess.ErrNotFound
	}
	delete(d.cats, catKey(guildID, categoryID))
	return nil
}

func (d *fakeCategoryDal) IncrementTicketCount(_ context.Context, guildID, categoryID string) error {
	if d.incrementErr != nil {
		return d.incrementErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	cat, ok := d.cats[catKey(guildID, categoryID)]
	if !ok {
		return dataaccess.ErrNotFound
	}
	cat.TicketCount++
	return nil
}

type fakeTicketDal struct {
	mu       sync.Mutex
	tickets  map[string]*entities.Ticket
	counters map[string]int

	saveErr error
}

func newFakeTicketDal() *fakeTicketDal {
	return &fakeTicketDal{
		tickets:  make(map[string]*entities.Ticket),
		counters: make(map[string]int),
	}
}

func ticketKey(guildID string, number int) string {
	return fmt.Sprintf("%s/%d", guildID, number)
}

func (d *fakeTicketDal) SaveTicket(_ context.Context, ticket *entities.Ticket) error {
	if d.saveErr != nil {
		return d.saveErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	t := *ticket
	d.tickets[ticketKey(ticket.GuildID, ticket.Number)] = &t
	return nil
}

func (d *fakeTicketDal) GetTicketByChannel(_ context.Context, guildID, channelID string) (*entities.Ticket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.tickets {
		if t.GuildID == guildID && t.ChannelID == channelID {
			c := *t
			return &c, nil
		}
	}
	return nil, dataaccess.ErrNotFound
}

func (d *fakeTicketDal) GetTicketByNumber(_ context.Context, guildID string, number int) (*entities.Ticket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tickets[ticketKey(guildID, number)]
	if !ok {
		return nil, dataaccess.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (d *fakeTicketDal) GetOpenTicketByRequester(_ context.Context, guildID, requesterID string) (*entities.Ticket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.tickets {
		if t.GuildID == guildID && t.RequesterID == requesterID && t.Status == entities.TicketOpen {
			c := *t
			return &c, nil
		}
	}
	return nil, dataaccess.ErrNotFound
}

func (d *fakeTicketDal) ListOpenTickets(_ context.Context, guildID string) ([]*entities.Ticket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*entities.Ticket, 0)
	for _, t := range d.tickets {
		if t.GuildID == guildID && t.Status == entities.TicketOpen {
			c := *t
			out = append(out, &c)
		}
	}
	return out, nil
}

func (d *fakeTicketDal) NextTicketNumber(_ context.Context, guildID string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counters[guildID]++
	return d.counters[guildID], nil
}

type permChange struct {
	channelID string
	grant     Grant
}

type fakeChannels struct {
	mu sync.Mutex

	nextID   int
	channels map[string]bool
	posts    map[string][]string
	perms    []permChange
	renames  map[string]string
	deleted  []string

	createErr  error
	postErr    error
	setPermErr error
}

func newFakeChannels() *fakeChannels {
	return &fakeChannels{
		channels: make(map[string]bool),
		posts:    make(map[string][]string),
		renames:  make(map[string]string),
	}
}

func (f *fakeChannels) CreateChannel(_ context.Context, guildID, name, topic string, grants []Grant) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("chan-%d", f.nextID)
	f.channels[id] = true
	for _, g := range grants {
		f.perms = append(f.perms, permChange{channelID: id, grant: g})
	}
	return id, nil
}

func (f *fakeChannels) RenameChannel(_ context.Context, channelID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renames[channelID] = name
	return nil
}

func (f *fakeChannels) SetPermission(_ context.Context, channelID string, grant Grant) error {
	if f.setPermErr != nil {
		return f.setPermErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.perms = append(f.perms, permChange{channelID: channelID, grant: grant})
	return nil
}

func (f *fakeChannels) PostMessage(_ context.Context, channelID, content string) (string, error) {
	if f.postErr != nil {
		return "", f.postErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[channelID] = append(f.posts[channelID], content)
	return fmt.Sprintf("msg-%d", len(f.posts[channelID])), nil
}

func (f *fakeChannels) DeleteChannel(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.channels, channelID)
	f.deleted = append(f.deleted, channelID)
	return nil
}

func (f *fakeChannels) ChannelExists(_ context.Context, channelID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channels[channelID], nil
}

// drop removes a channel without recording a delete, as if it was removed
// out-of-band.
func (f *fakeChannels) drop(channelID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.channels, channelID)
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes map[string][]string

	err error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{notes: make(map[string][]string)}
}

func (f *fakeNotifier) NotifyUser(_ context.Context, userID, content string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes[userID] = append(f.notes[userID], content)
	return nil
}
