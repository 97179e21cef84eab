package dataaccess

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDB is the Mongo client. This is a connection pool.
var MongoDB *mongo.Client

const mongoDatabase = "den"

const (
	collectionGuilds     = "guilds"
	collectionCategories = "categories"
	collectionTickets    = "tickets"
	collectionCounters   = "counters"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("not found")
