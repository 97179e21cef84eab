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
)

const templateDalName = "template_dal"

// TemplateDal is the data access layer for per-category message templates.
// Templates are stored inside the category document; this DAL exists so the
// wizard can edit them without rewriting the rest of the category.
type TemplateDal interface {
	// GetTemplate gets the template of a category. Returns ErrNotFound if
	// the category does not exist.
	GetTemplate(ctx context.Context, guildID, categoryID string) (*entities.MessageTemplate, error)

	// SaveTemplate replaces the template of a category.
	SaveTemplate(ctx context.Context, guildID, categoryID string, tpl *entities.MessageTemplate) error
}

type templateDal struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewTemplateDal creates a new template data access layer.
func NewTemplateDal(logger *slog.Logger) TemplateDal {
	l := logger.With(slog.String(logging.KeyDal, templateDalName))

	if MongoDB == nil {
		l.Warn("MongoDB is nil, this can cause a panic. Proceeding...")
	}

	return &templateDal{
		l:      l,
		client: MongoDB,
	}
}

func (d *templateDal) GetTemplate(ctx context.Context, guildID, categoryID string) (*entities.MessageTemplate, error) {
	collection := d.client.Database(mongoDatabase).Collection(collectionCategories)

	monitoring.MongoTotalRequests.WithLabelValues(templateDalName, "get_template", mongoDatabase, collectionCategories).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(templateDalName, "get_template", mongoDatabase, collectionCategories))
	defer t.ObserveDuration()

	category := new(entities.Category)
	err := collection.FindOne(ctx, bson.M{"guild_id": guildID, "id": categoryID}).Decode(category)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error getting template: %w", err)
	}
	return &category.Template, nil
}

func (d *templateDal) SaveTemplate(ctx context.Context, guildID, categoryID string, tpl *entities.MessageTemplate) error {
	collection := d.client.Database(mongoDatabase).Collection(collectionCategories)

	monitoring.MongoTotalRequests.WithLabelValues(templateDalName, "save_template", mongoDatabase, collectionCategories).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(templateDalName, "save_template", mongoDatabase, collectionCategories))
	defer t.ObserveDuration()

	res, err := collection.UpdateOne(ctx,
		bson.M{"guild_id": guildID, "id": categoryID},
		bson.M{"$set": bson.M{"template": tpl}})
	if err != nil {
		return fmt.Errorf("error saving template: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
