package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/denbot/den/pkg/dataaccess/monitoring"
	"github.com/denbot/den/pkg/entities"
	"github.com/denbot/den/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const categoryDalName = "category_dal"

// CategoryDal is the data access layer for ticket categories. The per
// category message template is embedded in the category document, so it is
// removed together with its category.
type CategoryDal interface {
	// SaveCategory upserts a category.
	SaveCategory(ctx context.Context, category *entities.Category) error

	// GetCategory gets a category by ID. Returns ErrNotFound if it does not
	// exist.
	GetCategory(ctx context.Context, guildID, categoryID string) (*entities.Category, error)

	// ListCategories lists the guild's categories ordered by position.
	ListCategories(ctx context.Context, guildID string) ([]*entities.Category, error)

	// CountCategories counts the guild's categories.
	CountCategories(ctx context.Context, guildID string) (int64, error)

	// DeleteCategory removes a category. Tickets opened under the category
	// are deliberately left in place.
	DeleteCategory(ctx context.Context, guildID, categoryID string) error

	// IncrementTicketCount increments the category's running ticket counter.
	IncrementTicketCount(ctx context.Context, guildID, categoryID string) error
}

type categoryDal struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewCategoryDal creates a new category data access layer.
func NewCategoryDal(logger *slog.Logger) CategoryDal {
	l := logger.With(slog.String(logging.KeyDal, categoryDalName))

	if MongoDB == nil {
		l.Warn("MongoDB is nil, this can cause a panic. Proceeding...")
	}

	return &categoryDal{
		l:      l,
		client: MongoDB,
	}
}

func (d *categoryDal) SaveCategory(ctx context.Context, category *entities.Category) error {
	collection := d.client.Database(mongoDatabase).Collection(collectionCategories)

	monitoring.MongoTotalRequests.WithLabelValues(categoryDalName, "save_category", mongoDatabase, collectionCategories).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(categoryDalName, "save_category", mongoDatabase, collectionCategories))
	defer t.ObserveDuration()

	opts := options.Update().SetUpsert(true)
	_, err := collection.UpdateOne(ctx,
		bson.M{"guild_id": category.GuildID, "id": category.ID},
		bson.M{"$set": category}, opts)
	if err != nil {
		return fmt.Errorf("error updating category: %w", err)
	}
	return nil
}

func (d *categoryDal) GetCategory(ctx context.Context, guildID, categoryID string) (*entities.Category, error) {
	collection := d.client.Database(mongoDatabase).Collection(collectionCategories)

	monitoring.MongoTotalRequests.WithLabelValues(categoryDalName, "get_category", mongoDatabase, collectionCategories).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(categoryDalName, "get_category", mongoDatabase, collectionCategories))
	defer t.ObserveDuration()

	category := new(entities.Category)
	err := collection.FindOne(ctx, bson.M{"guild_id": guildID, "id": categoryID}).Decode(category)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error getting category: %w", err)
	}
	return category, nil
}

func (d *categoryDal) ListCategories(ctx context.Context, guildID string) ([]*entities.Category, error) {
	collection := d.client.Database(mongoDatabase).Collection(collectionCategories)

	monitoring.MongoTotalRequests.WithLabelValues(categoryDalName, "list_categories", mongoDatabase, collectionCategories).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(categoryDalName, "list_categories", mongoDatabase, collectionCategories))
	defer t.ObserveDuration()

	opts := options.Find().SetSort(bson.M{"position": 1})
	cursor, err := collection.Find(ctx, bson.M{"guild_id": guildID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing categories: %w", err)
	}

	var categories []*entities.Category
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("error decoding categories: %w", err)
	}
	return categories, nil
}

func (d *categoryDal) CountCategories(ctx context.Context, guildID string) (int64, error) {
	collection := d.client.Database(mongoDatabase).Collection(collectionCategories)

	monitoring.MongoTotalRequests.WithLabelValues(categoryDalName, "count_categories", mongoDatabase, collectionCategories).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(categoryDalName, "count_categories", mongoDatabase, collectionCategories))
	defer t.ObserveDuration()

	count, err := collection.CountDocuments(ctx, bson.M{"guild_id": guildID})
	if err != nil {
		return 0, fmt.Errorf("error counting categories: %w", err)
	}
	return count, nil
}

func (d *categoryDal) DeleteCategory(ctx context.Context, guildID, categoryID string) error {
	collection := d.client.Database(mongoDatabase).Collection(collectionCategories)

	monitoring.MongoTotalRequests.WithLabelValues(categoryDalName, "delete_category", mongoDatabase, collectionCategories).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(categoryDalName, "delete_category", mongoDatabase, collectionCategories))
	defer t.ObserveDuration()

	res, err := collection.DeleteOne(ctx, bson.M{"guild_id": guildID, "id": categoryID})
	if err != nil {
		return fmt.Errorf("error deleting category: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *categoryDal) IncrementTicketCount(ctx context.Context, guildID, categoryID string) error {
	collection := d.client.Database(mongoDatabase).Collection(collectionCategories)

	monitoring.MongoTotalRequests.WithLabelValues(categoryDalName, "increment_ticket_count", mongoDatabase, collectionCategories).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(categoryDalName, "increment_ticket_count", mongoDatabase, collectionCategories))
	defer t.ObserveDuration()

	_, err := collection.UpdateOne(ctx,
		bson.M{"guild_id": guildID, "id": categoryID},
		bson.M{"$inc": bson.M{"ticket_count": 1}})
	if err != nil {
		return fmt.Errorf("error incrementing ticket count: %w", err)
	}
	return nil
}
