package config

import (
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/denbot/den/pkg/dataaccess"
	"github.com/denbot/den/pkg/dataaccess/connection"
	"github.com/denbot/den/pkg/logging"
)

// Parse loads the configuration from the environment and connects the
// database. It exits the process when the configuration is incomplete.
func Parse(l *slog.Logger) {
	if err := env.Parse(&Loaded); err != nil {
		l.Error("Not all required environment variables have been provided", slog.String(logging.KeyError, err.Error()))
		os.Exit(1)
	}

	l.Debug("All required environment variables have been provided")
	connectMongo(l)
}

func connectMongo(l *slog.Logger) {
	mongoConn := new(connection.MongoDB)
	mongoConn.ConnectionString = Loaded.MongoURI

	db, err := mongoConn.Connect()
	if err != nil {
		l.Error("Error connecting to mongo", slog.String(logging.KeyError, err.Error()))
		os.Exit(1)
	} else if db == nil {
		l.Error("MongoDB came back nil", slog.String(logging.KeyError, "MongoDB came back nil"))
		os.Exit(1)
	}

	dataaccess.MongoDB = db
	l.Debug("Connected to MongoDB")
}
