package ticketing

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/denbot/den/pkg/custom"
	"github.com/denbot/den/pkg/dataaccess"
	"github.com/denbot/den/pkg/entities"
	"github.com/denbot/den/pkg/logging"
	"github.com/google/uuid"
)

// confirmTokenTTL is how long a deletion confirmation token stays valid.
// It matches the confirmation dialog deadline.
const confirmTokenTTL = 30 * time.Second

// CategoryParams are the fields for creating a category.
type CategoryParams struct {
	Name               string
	Description        string
	Emoji              string
	SupportRoleID      string
	WelcomeMessage     string
	CloseMessage       string
	IncludeSupportTeam bool
}

// CategoryPatch is a partial update of a category. Nil fields are left
// unchanged, never reset.
type CategoryPatch struct {
	Name          *string
	Description   *string
	Emoji         *string
	SupportRoleID *string
	Enabled       *bool
	Position      *int
}

// Registry manages the ordered set of ticket categories per guild. A guild
// always keeps at least one category, and deleting a category that has seen
// tickets requires a confirmation token obtained from ConfirmDelete.
type Registry struct {
	// l is the logger.
	l *slog.Logger

	// categories is the category store.
	categories dataaccess.CategoryDal

	// mu guards confirmations.
	mu sync.Mutex

	// confirmations maps an issued token to its deletion target.
	confirmations map[string]confirmation

	// now returns the current time; replaced in tests.
	now func() time.Time
}

type confirmation struct {
	guildID    string
	categoryID string
	expiresAt  time.Time
}

// NewRegistry creates a new category registry.
func NewRegistry(l *slog.Logger, categories dataaccess.CategoryDal) *Registry {
	return &Registry{
		l:             l.With(slog.String("component", "categories")),
		categories:    categories,
		confirmations: make(map[string]confirmation),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Create adds a category at the end of the guild's ordering.
func (r *Registry) Create(ctx context.Context, guildID string, params CategoryParams) (*entities.Category, error) {
	count, err := r.categories.CountCategories(ctx, guildID)
	if err != nil {
		return nil, persistenceError("counting categories", err)
	}

	now := custom.Datetime(r.now())
	category := &entities.Category{
		ID:            uuid.NewString(),
		GuildID:       guildID,
		Name:          params.Name,
		Description:   params.Description,
		Emoji:         params.Emoji,
		SupportRoleID: params.SupportRoleID,
		Enabled:       true,
		Position:      int(count),
		Template: entities.MessageTemplate{
			WelcomeMessage:     params.WelcomeMessage,
			CloseMessage:       params.CloseMessage,
			IncludeSupportTeam: params.IncludeSupportTeam,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.categories.SaveCategory(ctx, category); err != nil {
		return nil, persistenceError("saving category", err)
	}

	r.l.Info("Category created",
		slog.String(logging.KeyGuild, guildID),
		slog.String("category", category.ID))
	return category, nil
}

// Update applies a partial update. Unset patch fields are left unchanged.
func (r *Registry) Update(ctx context.Context, guildID, categoryID string, patch CategoryPatch) (*entities.Category, error) {
	category, err := r.Get(ctx, guildID, categoryID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		category.Name = *patch.Name
	}
	if patch.Description != nil {
		category.Description = *patch.Description
	}
	if patch.Emoji != nil {
		category.Emoji = *patch.Emoji
	}
	if patch.SupportRoleID != nil {
		category.SupportRoleID = *patch.SupportRoleID
	}
	if patch.Enabled != nil {
		category.Enabled = *patch.Enabled
	}
	if patch.Position != nil {
		category.Position = *patch.Position
	}
	category.UpdatedAt = custom.Datetime(r.now())

	if err := r.categories.SaveCategory(ctx, category); err != nil {
		return nil, persistenceError("saving category", err)
	}
	return category, nil
}

// Get returns a category by ID.
func (r *Registry) Get(ctx context.Context, guildID, categoryID string) (*entities.Category, error) {
	category, err := r.categories.GetCategory(ctx, guildID, categoryID)
	if errors.Is(err, dataaccess.ErrNotFound) {
		return nil, ErrCategoryNotFound
	} else if err != nil {
		return nil, persistenceError("getting category", err)
	}
	return category, nil
}

// List returns the guild's categories in position order.
func (r *Registry) List(ctx context.Context, guildID string) ([]*entities.Category, error) {
	categories, err := r.categories.ListCategories(ctx, guildID)
	if err != nil {
		return nil, persistenceError("listing categories", err)
	}
	return categories, nil
}

// ConfirmDelete issues a single-use token authorising the deletion of a
// category that still has tickets. The token expires after the confirmation
// dialog deadline.
func (r *Registry) ConfirmDelete(guildID, categoryID string) string {
	token := uuid.NewString()
	r.mu.Lock()
	r.confirmations[token] = confirmation{
		guildID:    guildID,
		categoryID: categoryID,
		expiresAt:  r.now().Add(confirmTokenTTL),
	}
	r.mu.Unlock()
	return token
}

// consumeToken redeems a confirmation token for the given target. Tokens are
// single use.
func (r *Registry) consumeToken(token, guildID, categoryID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.confirmations[token]
	if !ok {
		return false
	}
	delete(r.confirmations, token)
	if c.guildID != guildID || c.categoryID != categoryID {
		return false
	}
	return r.now().Before(c.expiresAt)
}

// Delete removes a category. The guild's last category can never be
// deleted; a category with tickets needs a valid confirmation token.
// Tickets opened under the category are left in place, still queryable by
// number.
func (r *Registry) Delete(ctx context.Context, guildID, categoryID, confirmToken string) error {
	count, err := r.categories.CountCategories(ctx, guildID)
	if err != nil {
		return persistenceError("counting categories", err)
	}
	if count <= 1 {
		return ErrLastCategory
	}

	category, err := r.Get(ctx, guildID, categoryID)
	if err != nil {
		return err
	}

	if category.TicketCount > 0 {
		if confirmToken == "" || !r.consumeToken(confirmToken, guildID, categoryID) {
			return ErrConfirmationRequired
		}
	}

	if err := r.categories.DeleteCategory(ctx, guildID, categoryID); err != nil {
		if errors.Is(err, dataaccess.ErrNotFound) {
			return ErrCategoryNotFound
		}
		return persistenceError("deleting category", err)
	}

	r.l.Info("Category deleted",
		slog.String(logging.KeyGuild, guildID),
		slog.String("category", categoryID),
		slog.Int("orphaned_tickets", category.TicketCount))
	return nil
}
