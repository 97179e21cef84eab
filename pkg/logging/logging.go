package logging

import (
	"log/slog"
	"os"
)

const (
	// KeyError is the key used for errors in log attributes.
	KeyError = "err"

	// KeyDal is the key used for the data access layer name.
	KeyDal = "dal"

	// KeyGuild is the key used for the guild ID.
	KeyGuild = "guild_id"

	// KeyTicket is the key used for the ticket number.
	KeyTicket = "ticket"

	// KeyAppName is the key used for the application name.
	KeyAppName = "app"
)

// Name is the name of the application that the logger is for.
type Name string

// Config is the configuration for a logger.
type Config struct {
	// appName is the name of the application.
	appName string

	// level is the minimum level to log at.
	level slog.Level
}

// NewConfig creates a new logging config for the named application.
func NewConfig(appName Name) *Config {
	return &Config{
		appName: string(appName),
		level:   slog.LevelDebug,
	}
}

// CommonLogger creates the standard application logger. It writes JSON to
// stdout with the application name attached to every record.
func CommonLogger(c *Config) (*slog.Logger, error) {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: c.level,
	})
	l := slog.New(h).With(slog.String(KeyAppName, c.appName))
	slog.SetDefault(l)
	return l, nil
}
