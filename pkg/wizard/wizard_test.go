package wizard

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/denbot/den/pkg/collector"
	"github.com/denbot/den/pkg/dataaccess"
	"github.com/denbot/den/pkg/entities"
	"github.com/denbot/den/pkg/logging"
	"github.com/denbot/den/pkg/messages"
	"github.com/denbot/den/pkg/ticketing"
	"github.com/stretchr/testify/require"
)

const (
	testGuild   = "guild-1"
	testAdmin   = "admin-1"
	testSurface = "chan-1"
)

type fakeGuildDal struct {
	mu   sync.Mutex
	cfgs map[string]*entities.GuildConfig
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
}

func (d *fakeCategoryDal) SaveCategory(_ context.Context, category *entities.Category) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := *category
	d.cats[category.ID] = &c
	return nil
}

func (d *fakeCategoryDal) GetCategory(_ context.Context, guildID, categoryID string) (*entities.Category, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cat, ok := d.cats[categoryID]
	if !ok || cat.GuildID != guildID {
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
	if _, ok := d.cats[categoryID]; !ok {
		return dataaccess.ErrNotFound
	}
	delete(d.cats, categoryID)
	return nil
}

func (d *fakeCategoryDal) IncrementTicketCount(_ context.Context, guildID, categoryID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cat, ok := d.cats[categoryID]
	if !ok {
		return dataaccess.ErrNotFound
	}
	cat.TicketCount++
	return nil
}

type fakeTemplateDal struct {
	cats *fakeCategoryDal
}

func (d *fakeTemplateDal) GetTemplate(ctx context.Context, guildID, categoryID string) (*entities.MessageTemplate, error) {
	cat, err := d.cats.GetCategory(ctx, guildID, categoryID)
	if err != nil {
		return nil, err
	}
	tpl := cat.Template
	return &tpl, nil
}

func (d *fakeTemplateDal) SaveTemplate(ctx context.Context, guildID, categoryID string, tpl *entities.MessageTemplate) error {
	cat, err := d.cats.GetCategory(ctx, guildID, categoryID)
	if err != nil {
		return err
	}
	cat.Template = *tpl
	return d.cats.SaveCategory(ctx, cat)
}

// scriptedPrompter answers each prompt with the next scripted reply,
// submitting it once the wizard is waiting on the collector.
type scriptedPrompter struct {
	c *collector.Collector[Reply]

	mu      sync.Mutex
	replies []Reply
	prompts []string
	notices []string
}

func (p *scriptedPrompter) feed() {
	p.mu.Lock()
	if len(p.replies) == 0 {
		p.mu.Unlock()
		return
	}
	r := p.replies[0]
	p.replies = p.replies[1:]
	p.mu.Unlock()

	go func() {
		for !p.c.Submit(testSurface, r.PrincipalID, r) {
			time.Sleep(time.Millisecond)
		}
	}()
}

func (p *scriptedPrompter) record(kind, text string) {
	p.mu.Lock()
	p.prompts = append(p.prompts, kind+":"+text)
	p.mu.Unlock()
}

func (p *scriptedPrompter) Menu(_ context.Context, _ *Session, title string, _ []Option) error {
	p.record("menu", title)
	p.feed()
	return nil
}

func (p *scriptedPrompter) Text(_ context.Context, _ *Session, prompt string) error {
	p.record("text", prompt)
	p.feed()
	return nil
}

func (p *scriptedPrompter) Confirm(_ context.Context, _ *Session, question string) error {
	p.record("confirm", question)
	p.feed()
	return nil
}

func (p *scriptedPrompter) Info(_ context.Context, _ *Session, text string) error {
	p.mu.Lock()
	p.notices = append(p.notices, text)
	p.mu.Unlock()
	return nil
}

type wizardFixture struct {
	w        *Wizard
	prompter *scriptedPrompter
	guilds   *fakeGuildDal
	cats     *fakeCategoryDal
}

func newWizardFixture(t *testing.T, script ...string) *wizardFixture {
	t.Helper()

	l, err := logging.CommonLogger(logging.NewConfig(`tests`))
	require.NoError(t, err, "Failed to create logger")

	guilds := &fakeGuildDal{cfgs: map[string]*entities.GuildConfig{
		testGuild: {GuildID: testGuild, Enabled: true},
	}}
	cats := &fakeCategoryDal{cats: make(map[string]*entities.Category)}

	c := collector.New[Reply]()
	prompter := &scriptedPrompter{c: c}
	for _, v := range script {
		prompter.replies = append(prompter.replies, Reply{PrincipalID: testAdmin, Value: v})
	}

	registry := ticketing.NewRegistry(l, cats)
	templates := ticketing.NewTemplates(l, &fakeTemplateDal{cats: cats})
	return &wizardFixture{
		w:        New(l, guilds, registry, templates, prompter, c),
		prompter: prompter,
		guilds:   guilds,
		cats:     cats,
	}
}

func TestWizardDone(t *testing.T) {
	f := newWizardFixture(t, "done")

	err := f.w.Run(context.Background(), testGuild, testAdmin, testSurface)
	require.NoError(t, err)
	require.Equal(t, []string{messages.WizardCancelled}, f.prompter.notices)
}

func TestWizardEditsButtonLabel(t *testing.T) {
	f := newWizardFixture(t, "button", "label", "Contact us", "back", "done")

	err := f.w.Run(context.Background(), testGuild, testAdmin, testSurface)
	require.NoError(t, err)

	cfg, err := f.guilds.GetGuildConfig(context.Background(), testGuild)
	require.NoError(t, err)
	require.Equal(t, "Contact us", cfg.Button.Label)
}

func TestWizardCreatesCategory(t *testing.T) {
	f := newWizardFixture(t, "categories", "create", "Billing", "Payment issues", "back", "done")

	err := f.w.Run(context.Background(), testGuild, testAdmin, testSurface)
	require.NoError(t, err)

	categories, err := f.cats.ListCategories(context.Background(), testGuild)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	require.Equal(t, "Billing", categories[0].Name)
	require.Equal(t, "Payment issues", categories[0].Description)
	require.Contains(t, f.prompter.notices, `Category "Billing" created.`)
}

func TestWizardSetsLogChannel(t *testing.T) {
	f := newWizardFixture(t, "button", "log_channel", "log-chan-9", "back", "done")

	err := f.w.Run(context.Background(), testGuild, testAdmin, testSurface)
	require.NoError(t, err)

	cfg, err := f.guilds.GetGuildConfig(context.Background(), testGuild)
	require.NoError(t, err)
	require.Equal(t, "log-chan-9", cfg.Button.LogChannelID)
}

func TestWizardClearsLogChannel(t *testing.T) {
	f := newWizardFixture(t, "button", "log_channel", "none", "back", "done")
	f.guilds.cfgs[testGuild].Button.LogChannelID = "log-chan-9"

	err := f.w.Run(context.Background(), testGuild, testAdmin, testSurface)
	require.NoError(t, err)

	cfg, err := f.guilds.GetGuildConfig(context.Background(), testGuild)
	require.NoError(t, err)
	require.Empty(t, cfg.Button.LogChannelID)
}

func TestWizardMovesCategory(t *testing.T) {
	f := newWizardFixture(t)
	registry := ticketing.NewRegistry(mustLogger(t), f.cats)
	_, err := registry.Create(context.Background(), testGuild, ticketing.CategoryParams{Name: "General"})
	require.NoError(t, err)
	billing, err := registry.Create(context.Background(), testGuild, ticketing.CategoryParams{Name: "Billing"})
	require.NoError(t, err)

	f.prompter.replies = []Reply{
		{PrincipalID: testAdmin, Value: "categories"},
		{PrincipalID: testAdmin, Value: "move"},
		{PrincipalID: testAdmin, Value: billing.ID},
		{PrincipalID: testAdmin, Value: "0"},
		{PrincipalID: testAdmin, Value: "back"},
		{PrincipalID: testAdmin, Value: "done"},
	}

	err = f.w.Run(context.Background(), testGuild, testAdmin, testSurface)
	require.NoError(t, err)
	require.Contains(t, f.prompter.notices, `Category "Billing" moved to position 0.`)

	moved, err := f.cats.GetCategory(context.Background(), testGuild, billing.ID)
	require.NoError(t, err)
	require.Equal(t, 0, moved.Position)
}

func TestWizardDeleteLastCategoryRefused(t *testing.T) {
	f := newWizardFixture(t)
	cat, err := ticketing.NewRegistry(mustLogger(t), f.cats).Create(context.Background(), testGuild, ticketing.CategoryParams{Name: "General"})
	require.NoError(t, err)

	f.prompter.replies = []Reply{
		{PrincipalID: testAdmin, Value: "categories"},
		{PrincipalID: testAdmin, Value: "delete"},
		{PrincipalID: testAdmin, Value: cat.ID},
		{PrincipalID: testAdmin, Value: "back"},
		{PrincipalID: testAdmin, Value: "done"},
	}

	err = f.w.Run(context.Background(), testGuild, testAdmin, testSurface)
	require.NoError(t, err)
	require.Contains(t, f.prompter.notices, "Cannot delete the last remaining category.")

	// The category is still there.
	categories, err := f.cats.ListCategories(context.Background(), testGuild)
	require.NoError(t, err)
	require.Len(t, categories, 1)
}

func TestWizardCancelledText(t *testing.T) {
	f := newWizardFixture(t)
	f.prompter.replies = []Reply{
		{PrincipalID: testAdmin, Value: "categories"},
		{PrincipalID: testAdmin, Value: "create"},
		{PrincipalID: testAdmin, Value: "cancel", Cancelled: true},
		{PrincipalID: testAdmin, Value: "back"},
		{PrincipalID: testAdmin, Value: "done"},
	}

	err := f.w.Run(context.Background(), testGuild, testAdmin, testSurface)
	require.NoError(t, err)

	// Nothing was created from the cancelled step.
	categories, err := f.cats.ListCategories(context.Background(), testGuild)
	require.NoError(t, err)
	require.Empty(t, categories)
}

func TestWizardSessionLock(t *testing.T) {
	f := newWizardFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan error, 1)
	go func() {
		started <- f.w.Run(ctx, testGuild, testAdmin, testSurface)
	}()

	// Wait until the first session holds the lock.
	require.Eventually(t, func() bool {
		f.w.mu.Lock()
		defer f.w.mu.Unlock()
		_, ok := f.w.active[testGuild+":"+testAdmin]
		return ok
	}, time.Second, time.Millisecond)

	err := f.w.Run(ctx, testGuild, testAdmin, testSurface)
	require.ErrorIs(t, err, ErrSessionActive)

	// Another administrator is not blocked by this session.
	f.w.mu.Lock()
	_, otherActive := f.w.active[testGuild+":admin-2"]
	f.w.mu.Unlock()
	require.False(t, otherActive)

	cancel()
	require.Error(t, <-started)

	// The lock is released once the session ends.
	f.w.mu.Lock()
	_, stillActive := f.w.active[testGuild+":"+testAdmin]
	f.w.mu.Unlock()
	require.False(t, stillActive)
}

func mustLogger(t *testing.T) *slog.Logger {
	t.Helper()
	l, err := logging.CommonLogger(logging.NewConfig(`tests`))
	require.NoError(t, err, "Failed to create logger")
	return l
}
