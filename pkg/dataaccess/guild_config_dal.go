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

const guildConfigDalName = "guild_config_dal"

// GuildConfigDal is the data access layer for guild ticketing configuration.
type GuildConfigDal interface {
	// SaveGuildConfig upserts a guild configuration.
	SaveGuildConfig(ctx context.Context, cfg *entities.GuildConfig) error

	// GetGuildConfig gets a guild configuration by guild ID. Returns
	// ErrNotFound if the guild has never been set up.
	GetGuildConfig(ctx context.Context, guildID string) (*entities.GuildConfig, error)

	// DeleteGuildConfig removes a guild configuration. The embedded button
	// and select-menu configurations go with it.
	DeleteGuildConfig(ctx context.Context, guildID string) error
}

type guildConfigDal struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewGuildConfigDal creates a new guild configuration data access layer.
func NewGuildConfigDal(logger *slog.Logger) GuildConfigDal {
	l := logger.With(slog.String(logging.KeyDal, guildConfigDalName))

	if MongoDB == nil {
		l.Warn("MongoDB is nil, this can cause a panic. Proceeding...")
	}

	return &guildConfigDal{
		l:      l,
		client: MongoDB,
	}
}

func (d *guildConfigDal) SaveGuildConfig(ctx context.Context, cfg *entities.GuildConfig) error {
	collection := d.client.Database(mongoDatabase).Collection(collectionGuilds)

	monitoring.MongoTotalRequests.WithLabelValues(guildConfigDalName, "save_guild_config", mongoDatabase, collectionGuilds).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(guildConfigDalName, "save_guild_config", mongoDatabase, collectionGuilds))
	defer t.ObserveDuration()

	opts := options.Update().SetUpsert(true)
	_, err := collection.UpdateOne(ctx, bson.M{"guild_id": cfg.GuildID}, bson.M{"$set": cfg}, opts)
	if err != nil {
		return fmt.Errorf("error updating guild config: %w", err)
	}
	return nil
}

func (d *guildConfigDal) GetGuildConfig(ctx context.Context, guildID string) (*entities.GuildConfig, error) {
	collection := d.client.Database(mongoDatabase).Collection(collectionGuilds)

	monitoring.MongoTotalRequests.WithLabelValues(guildConfigDalName, "get_guild_config", mongoDatabase, collectionGuilds).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(guildConfigDalName, "get_guild_config", mongoDatabase, collectionGuilds))
	defer t.ObserveDuration()

	cfg := new(entities.GuildConfig)
	err := collection.FindOne(ctx, bson.M{"guild_id": guildID}).Decode(cfg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error getting guild config: %w", err)
	}
	return cfg, nil
}

func (d *guildConfigDal) DeleteGuildConfig(ctx context.Context, guildID string) error {
	collection := d.client.Database(mongoDatabase).Collection(collectionGuilds)

	monitoring.MongoTotalRequests.WithLabelValues(guildConfigDalName, "delete_guild_config", mongoDatabase, collectionGuilds).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(guildConfigDalName, "delete_guild_config", mongoDatabase, collectionGuilds))
	defer t.ObserveDuration()

	if _, err := collection.DeleteOne(ctx, bson.M{"guild_id": guildID}); err != nil {
		return fmt.Errorf("error deleting guild config: %w", err)
	}
	return nil
}
