package ticketing

import (
	"context"
	"errors"
	"log/slog"

	"github.com/denbot/den/pkg/dataaccess"
	"github.com/denbot/den/pkg/entities"
)

// TemplatePatch is a partial update of a message template. Nil fields are
// left unchanged.
type TemplatePatch struct {
	WelcomeMessage     *string
	CloseMessage       *string
	IncludeSupportTeam *bool
}

// Templates manages per-category welcome and close text.
type Templates struct {
	// l is the logger.
	l *slog.Logger

	// dal is the template store.
	dal dataaccess.TemplateDal
}

// NewTemplates creates a new template service.
func NewTemplates(l *slog.Logger, dal dataaccess.TemplateDal) *Templates {
	return &Templates{
		l:   l.With(slog.String("component", "templates")),
		dal: dal,
	}
}

// Get returns the template of a category.
func (t *Templates) Get(ctx context.Context, guildID, categoryID string) (*entities.MessageTemplate, error) {
	tpl, err := t.dal.GetTemplate(ctx, guildID, categoryID)
	if errors.Is(err, dataaccess.ErrNotFound) {
		return nil, ErrCategoryNotFound
	} else if err != nil {
		return nil, persistenceError("getting template", err)
	}
	return tpl, nil
}

// Update applies a partial update to the template of a category.
func (t *Templates) Update(ctx context.Context, guildID, categoryID string, patch TemplatePatch) (*entities.MessageTemplate, error) {
	tpl, err := t.Get(ctx, guildID, categoryID)
	if err != nil {
		return nil, err
	}

	if patch.WelcomeMessage != nil {
		tpl.WelcomeMessage = *patch.WelcomeMessage
	}
	if patch.CloseMessage != nil {
		tpl.CloseMessage = *patch.CloseMessage
	}
	if patch.IncludeSupportTeam != nil {
		tpl.IncludeSupportTeam = *patch.IncludeSupportTeam
	}

	if err := t.dal.SaveTemplate(ctx, guildID, categoryID, tpl); err != nil {
		if errors.Is(err, dataaccess.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, persistenceError("saving template", err)
	}
	return tpl, nil
}
