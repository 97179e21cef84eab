// Package wizard implements the interactive configuration flows behind the
// /config command. Each flow is a finite sequence of prompts; after every
// prompt the session suspends on the collector until the administrator
// responds or the step deadline elapses. All writes are plain
// read-modify-write over the configuration stores; the wizard holds no step
// state outside the running session's stack.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/denbot/den/pkg/collector"
	"github.com/denbot/den/pkg/custom"
	"github.com/denbot/den/pkg/dataaccess"
	"github.com/denbot/den/pkg/entities"
	"github.com/denbot/den/pkg/logging"
	"github.com/denbot/den/pkg/messages"
	"github.com/denbot/den/pkg/ticketing"
)

const (
	// ConfirmDeadline is the wait for yes/no confirmations.
	ConfirmDeadline = 30 * time.Second

	// MenuDeadline is the wait for menu selections.
	MenuDeadline = 60 * time.Second

	// TextDeadline is the wait for modal text input.
	TextDeadline = 300 * time.Second
)

// ErrSessionActive is returned by Run when the same administrator already
// has a wizard session open for the guild.
var ErrSessionActive = errors.New("a configuration session is already active")

// Reply is one response from the administrator driving a session.
type Reply struct {
	// PrincipalID is the responding user.
	PrincipalID string

	// Value is the selected option value, confirmation answer ("yes"/"no"),
	// or submitted text.
	Value string

	// Cancelled is whether the administrator explicitly cancelled the step.
	Cancelled bool
}

// Option is one selectable menu entry.
type Option struct {
	Label       string
	Value       string
	Description string
}

// Session identifies a running wizard session. SurfaceID is the UI surface
// replies arrive on; the prompter keeps it current as it renders.
type Session struct {
	GuildID     string
	PrincipalID string
	SurfaceID   string
}

// Prompter renders wizard prompts. The wizard hands it plain data only; how
// prompts become platform UI is the prompter's concern, as is feeding the
// administrator's responses back through the collector.
type Prompter interface {
	// Menu renders a selection menu.
	Menu(ctx context.Context, s *Session, title string, options []Option) error

	// Text renders a free-text prompt.
	Text(ctx context.Context, s *Session, prompt string) error

	// Confirm renders a yes/no confirmation.
	Confirm(ctx context.Context, s *Session, question string) error

	// Info renders a terminal notice, such as a cancellation.
	Info(ctx context.Context, s *Session, text string) error
}

// Wizard runs the configuration flows.
type Wizard struct {
	// l is the logger.
	l *slog.Logger

	// guilds is the guild configuration store.
	guilds dataaccess.GuildConfigDal

	// registry is the category registry.
	registry *ticketing.Registry

	// templates is the message template service.
	templates *ticketing.Templates

	// prompter renders the prompts.
	prompter Prompter

	// collector delivers the administrator's responses.
	collector *collector.Collector[Reply]

	// mu guards active.
	mu sync.Mutex

	// active tracks running sessions by guild and principal.
	active map[string]struct{}
}

// New creates a new configuration wizard.
func New(l *slog.Logger, guilds dataaccess.GuildConfigDal, registry *ticketing.Registry, templates *ticketing.Templates, prompter Prompter, c *collector.Collector[Reply]) *Wizard {
	return &Wizard{
		l:         l.With(slog.String("component", "wizard")),
		guilds:    guilds,
		registry:  registry,
		templates: templates,
		prompter:  prompter,
		collector: c,
		active:    make(map[string]struct{}),
	}
}

// Collector returns the collector replies must be submitted to.
func (w *Wizard) Collector() *collector.Collector[Reply] {
	return w.collector
}

// Run drives one configuration session to completion. It returns nil on a
// normal finish or cancel, collector.ErrTimedOut when a step expires, and
// ErrSessionActive when the administrator already has a session open.
func (w *Wizard) Run(ctx context.Context, guildID, principalID, surfaceID string) error {
	key := guildID + ":" + principalID
	w.mu.Lock()
	if _, ok := w.active[key]; ok {
		w.mu.Unlock()
		return ErrSessionActive
	}
	w.active[key] = struct{}{}
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		delete(w.active, key)
		w.mu.Unlock()
	}()

	s := &Session{GuildID: guildID, PrincipalID: principalID, SurfaceID: surfaceID}

	for {
		if err := w.prompter.Menu(ctx, s, "Ticket configuration", []Option{
			{Label: "Open button", Value: "button", Description: "Label, emoji, style and panel embed"},
			{Label: "Categories", Value: "categories", Description: "Create, edit or delete ticket categories"},
			{Label: "Messages", Value: "messages", Description: "Per-category welcome and close text"},
			{Label: "Select menu", Value: "menu", Description: "Placeholder and panel embed"},
			{Label: "Done", Value: "done"},
		}); err != nil {
			return fmt.Errorf("error rendering root menu: %w", err)
		}

		reply, err := w.await(ctx, s, MenuDeadline)
		if err != nil {
			return err
		}
		if reply.Cancelled || reply.Value == "done" {
			return w.prompter.Info(ctx, s, messages.WizardCancelled)
		}

		switch reply.Value {
		case "button":
			err = w.runButtonFlow(ctx, s)
		case "categories":
			err = w.runCategoryFlow(ctx, s)
		case "messages":
			err = w.runTemplateFlow(ctx, s)
		case "menu":
			err = w.runSelectMenuFlow(ctx, s)
		default:
			continue
		}
		if err != nil {
			return err
		}
	}
}

// await suspends the session until the administrator responds. On timeout
// the wizard reverts the UI to a terminal cancelled state before returning,
// as the collector itself never touches the UI.
func (w *Wizard) await(ctx context.Context, s *Session, deadline time.Duration) (Reply, error) {
	reply, err := w.collector.Await(ctx, s.SurfaceID, s.PrincipalID, nil, deadline)
	if errors.Is(err, collector.ErrTimedOut) {
		if ierr := w.prompter.Info(ctx, s, messages.WizardTimedOut); ierr != nil {
			w.l.Error("Error rendering timeout notice",
				slog.String(logging.KeyGuild, s.GuildID),
				slog.String(logging.KeyError, ierr.Error()))
		}
	}
	return reply, err
}

// promptText renders a free-text prompt and waits for the answer. The
// second return is false when the step was cancelled.
func (w *Wizard) promptText(ctx context.Context, s *Session, prompt string) (string, bool, error) {
	if err := w.prompter.Text(ctx, s, prompt); err != nil {
		return "", false, fmt.Errorf("error rendering text prompt: %w", err)
	}
	reply, err := w.await(ctx, s, TextDeadline)
	if err != nil {
		return "", false, err
	}
	if reply.Cancelled {
		return "", false, nil
	}
	return reply.Value, true, nil
}

// promptMenu renders a menu and waits for the selection.
func (w *Wizard) promptMenu(ctx context.Context, s *Session, title string, options []Option) (string, bool, error) {
	if err := w.prompter.Menu(ctx, s, title, options); err != nil {
		return "", false, fmt.Errorf("error rendering menu: %w", err)
	}
	reply, err := w.await(ctx, s, MenuDeadline)
	if err != nil {
		return "", false, err
	}
	if reply.Cancelled || reply.Value == "back" {
		return "", false, nil
	}
	return reply.Value, true, nil
}

// promptConfirm renders a yes/no question and waits for the answer.
func (w *Wizard) promptConfirm(ctx context.Context, s *Session, question string) (bool, error) {
	if err := w.prompter.Confirm(ctx, s, question); err != nil {
		return false, fmt.Errorf("error rendering confirmation: %w", err)
	}
	reply, err := w.await(ctx, s, ConfirmDeadline)
	if err != nil {
		return false, err
	}
	return !reply.Cancelled && reply.Value == "yes", nil
}

// getGuildConfig loads the session's guild configuration.
func (w *Wizard) getGuildConfig(ctx context.Context, s *Session) (*entities.GuildConfig, error) {
	cfg, err := w.guilds.GetGuildConfig(ctx, s.GuildID)
	if err != nil {
		return nil, fmt.Errorf("error getting guild config: %w", err)
	}
	return cfg, nil
}

// saveGuildConfig persists the session's guild configuration.
func (w *Wizard) saveGuildConfig(ctx context.Context, s *Session, cfg *entities.GuildConfig) error {
	cfg.UpdatedAt = custom.Now()
	if err := w.guilds.SaveGuildConfig(ctx, cfg); err != nil {
		return fmt.Errorf("error saving guild config: %w", err)
	}
	return nil
}

// runButtonFlow edits the open-ticket button configuration.
func (w *Wizard) runButtonFlow(ctx context.Context, s *Session) error {
	for {
		field, ok, err := w.promptMenu(ctx, s, "Open button", []Option{
			{Label: "Label", Value: "label"},
			{Label: "Emoji", Value: "emoji"},
			{Label: "Style", Value: "style"},
			{Label: "Embed title", Value: "embed_title"},
			{Label: "Embed description", Value: "embed_description"},
			{Label: "Embed color", Value: "embed_color"},
			{Label: "Log channel", Value: "log_channel"},
			{Label: "Back", Value: "back"},
		})
		if err != nil || !ok {
			return err
		}

		if field == "style" {
			if err := w.editButtonStyle(ctx, s); err != nil {
				return err
			}
			continue
		}

		value, ok, err := w.promptText(ctx, s, "New value for "+field)
		if err != nil || !ok {
			return err
		}

		cfg, err := w.getGuildConfig(ctx, s)
		if err != nil {
			return err
		}
		switch field {
		case "label":
			cfg.Button.Label = value
		case "emoji":
			cfg.Button.Emoji = value
		case "embed_title":
			cfg.Button.EmbedTitle = value
		case "embed_description":
			cfg.Button.EmbedDescription = value
		case "embed_color":
			color, err := strconv.ParseInt(value, 0, 32)
			if err != nil {
				if ierr := w.prompter.Info(ctx, s, "That is not a valid color, keeping the current one."); ierr != nil {
					return fmt.Errorf("error rendering notice: %w", ierr)
				}
				continue
			}
			cfg.Button.EmbedColor = int(color)
		case "log_channel":
			if strings.EqualFold(value, "none") {
				cfg.Button.LogChannelID = ""
			} else {
				cfg.Button.LogChannelID = value
			}
		}
		if err := w.saveGuildConfig(ctx, s, cfg); err != nil {
			return err
		}
	}
}

// editButtonStyle picks one of the four button styles.
func (w *Wizard) editButtonStyle(ctx context.Context, s *Session) error {
	options := make([]Option, 0, 5)
	for _, style := range []entities.ButtonStyle{entities.StylePrimary, entities.StyleSecondary, entities.StyleSuccess, entities.StyleDanger} {
		options = append(options, Option{Label: style.String(), Value: style.String()})
	}
	options = append(options, Option{Label: "Back", Value: "back"})

	value, ok, err := w.promptMenu(ctx, s, "Button style", options)
	if err != nil || !ok {
		return err
	}

	style, err := entities.ParseButtonStyle(value)
	if err != nil {
		return fmt.Errorf("error parsing button style: %w", err)
	}

	cfg, err := w.getGuildConfig(ctx, s)
	if err != nil {
		return err
	}
	cfg.Button.Style = style
	return w.saveGuildConfig(ctx, s, cfg)
}

// runSelectMenuFlow edits the category select menu configuration.
func (w *Wizard) runSelectMenuFlow(ctx context.Context, s *Session) error {
	for {
		field, ok, err := w.promptMenu(ctx, s, "Select menu", []Option{
			{Label: "Placeholder", Value: "placeholder"},
			{Label: "Embed title", Value: "embed_title"},
			{Label: "Embed description", Value: "embed_description"},
			{Label: "Back", Value: "back"},
		})
		if err != nil || !ok {
			return err
		}

		value, ok, err := w.promptText(ctx, s, "New value for "+field)
		if err != nil || !ok {
			return err
		}

		cfg, err := w.getGuildConfig(ctx, s)
		if err != nil {
			return err
		}
		switch field {
		case "placeholder":
			cfg.SelectMenu.Placeholder = value
		case "embed_title":
			cfg.SelectMenu.EmbedTitle = value
		case "embed_description":
			cfg.SelectMenu.EmbedDescription = value
		}
		if err := w.saveGuildConfig(ctx, s, cfg); err != nil {
			return err
		}
	}
}

// runCategoryFlow creates, edits or deletes categories.
func (w *Wizard) runCategoryFlow(ctx context.Context, s *Session) error {
	for {
		action, ok, err := w.promptMenu(ctx, s, "Categories", []Option{
			{Label: "Create", Value: "create"},
			{Label: "Edit", Value: "edit"},
			{Label: "Move", Value: "move"},
			{Label: "Delete", Value: "delete"},
			{Label: "Back", Value: "back"},
		})
		if err != nil || !ok {
			return err
		}

		switch action {
		case "create":
			err = w.createCategory(ctx, s)
		case "edit":
			err = w.editCategory(ctx, s)
		case "move":
			err = w.moveCategory(ctx, s)
		case "delete":
			err = w.deleteCategory(ctx, s)
		}
		if err != nil {
			return err
		}
	}
}

// createCategory prompts for the fields of a new category.
func (w *Wizard) createCategory(ctx context.Context, s *Session) error {
	name, ok, err := w.promptText(ctx, s, "Category name")
	if err != nil || !ok {
		return err
	}
	description, ok, err := w.promptText(ctx, s, "Category description (optional)")
	if err != nil || !ok {
		return err
	}

	if _, err := w.registry.Create(ctx, s.GuildID, ticketing.CategoryParams{
		Name:        name,
		Description: description,
	}); err != nil {
		return fmt.Errorf("error creating category: %w", err)
	}
	return w.prompter.Info(ctx, s, fmt.Sprintf("Category %q created.", name))
}

// pickCategory renders a menu of the guild's categories.
func (w *Wizard) pickCategory(ctx context.Context, s *Session, title string) (*entities.Category, error) {
	categories, err := w.registry.List(ctx, s.GuildID)
	if err != nil {
		return nil, fmt.Errorf("error listing categories: %w", err)
	}

	options := make([]Option, 0, len(categories)+1)
	for _, c := range categories {
		options = append(options, Option{Label: c.Name, Value: c.ID, Description: c.Description})
	}
	options = append(options, Option{Label: "Back", Value: "back"})

	value, ok, err := w.promptMenu(ctx, s, title, options)
	if err != nil || !ok {
		return nil, err
	}
	category, err := w.registry.Get(ctx, s.GuildID, value)
	if err != nil {
		return nil, fmt.Errorf("error getting category: %w", err)
	}
	return category, nil
}

// editCategory edits one field of an existing category.
func (w *Wizard) editCategory(ctx context.Context, s *Session) error {
	category, err := w.pickCategory(ctx, s, "Edit which category?")
	if err != nil || category == nil {
		return err
	}

	field, ok, err := w.promptMenu(ctx, s, "Edit "+category.Name, []Option{
		{Label: "Name", Value: "name"},
		{Label: "Description", Value: "description"},
		{Label: "Emoji", Value: "emoji"},
		{Label: "Support role", Value: "support_role"},
		{Label: "Toggle enabled", Value: "enabled"},
		{Label: "Back", Value: "back"},
	})
	if err != nil || !ok {
		return err
	}

	patch := ticketing.CategoryPatch{}
	if field == "enabled" {
		enabled := !category.Enabled
		patch.Enabled = &enabled
	} else {
		value, ok, err := w.promptText(ctx, s, "New value for "+field)
		if err != nil || !ok {
			return err
		}
		switch field {
		case "name":
			patch.Name = &value
		case "description":
			patch.Description = &value
		case "emoji":
			patch.Emoji = &value
		case "support_role":
			patch.SupportRoleID = &value
		}
	}

	if _, err := w.registry.Update(ctx, s.GuildID, category.ID, patch); err != nil {
		return fmt.Errorf("error updating category: %w", err)
	}
	return w.prompter.Info(ctx, s, fmt.Sprintf("Category %q updated.", category.Name))
}

// moveCategory changes a category's position in the panel ordering.
func (w *Wizard) moveCategory(ctx context.Context, s *Session) error {
	category, err := w.pickCategory(ctx, s, "Move which category?")
	if err != nil || category == nil {
		return err
	}

	value, ok, err := w.promptText(ctx, s, "New position (0 is first)")
	if err != nil || !ok {
		return err
	}
	position, perr := strconv.Atoi(value)
	if perr != nil || position < 0 {
		return w.prompter.Info(ctx, s, "That is not a valid position, keeping the current one.")
	}

	if _, err := w.registry.Update(ctx, s.GuildID, category.ID, ticketing.CategoryPatch{Position: &position}); err != nil {
		return fmt.Errorf("error updating category: %w", err)
	}
	return w.prompter.Info(ctx, s, fmt.Sprintf("Category %q moved to position %d.", category.Name, position))
}

// deleteCategory deletes a category, walking through the confirmation when
// the category still has tickets.
func (w *Wizard) deleteCategory(ctx context.Context, s *Session) error {
	category, err := w.pickCategory(ctx, s, "Delete which category?")
	if err != nil || category == nil {
		return err
	}

	token := ""
	if category.TicketCount > 0 {
		confirmed, err := w.promptConfirm(ctx, s, fmt.Sprintf(
			"%q has %d ticket(s). They will keep their history but lose their category. Delete anyway?",
			category.Name, category.TicketCount))
		if err != nil {
			return err
		}
		if !confirmed {
			return w.prompter.Info(ctx, s, messages.WizardCancelled)
		}
		token = w.registry.ConfirmDelete(s.GuildID, category.ID)
	}

	if err := w.registry.Delete(ctx, s.GuildID, category.ID, token); err != nil {
		if errors.Is(err, ticketing.ErrLastCategory) {
			return w.prompter.Info(ctx, s, "Cannot delete the last remaining category.")
		}
		return fmt.Errorf("error deleting category: %w", err)
	}
	return w.prompter.Info(ctx, s, fmt.Sprintf("Category %q deleted.", category.Name))
}

// runTemplateFlow edits per-category message templates.
func (w *Wizard) runTemplateFlow(ctx context.Context, s *Session) error {
	category, err := w.pickCategory(ctx, s, "Messages for which category?")
	if err != nil || category == nil {
		return err
	}

	for {
		field, ok, err := w.promptMenu(ctx, s, "Messages for "+category.Name, []Option{
			{Label: "Welcome message", Value: "welcome"},
			{Label: "Close message", Value: "close"},
			{Label: "Toggle support team mention", Value: "include_support"},
			{Label: "Back", Value: "back"},
		})
		if err != nil || !ok {
			return err
		}

		patch := ticketing.TemplatePatch{}
		if field == "include_support" {
			tpl, err := w.templates.Get(ctx, s.GuildID, category.ID)
			if err != nil {
				return fmt.Errorf("error getting template: %w", err)
			}
			include := !tpl.IncludeSupportTeam
			patch.IncludeSupportTeam = &include
		} else {
			value, ok, err := w.promptText(ctx, s, "New "+field+" message")
			if err != nil || !ok {
				return err
			}
			switch field {
			case "welcome":
				patch.WelcomeMessage = &value
			case "close":
				patch.CloseMessage = &value
			}
		}

		if _, err := w.templates.Update(ctx, s.GuildID, category.ID, patch); err != nil {
			return fmt.Errorf("error updating template: %w", err)
		}
	}
}
