package config

// AppName is the name of the application.
const AppName = "den"

// Values is the application configuration, populated from the environment.
type Values struct {
	// BotToken is the token for the bot.
	BotToken string `env:"BOT_TOKEN,required"`

	// ApplicationID is the ID of the application.
	ApplicationID string `env:"APPLICATION_ID,required"`

	// MongoURI is the URI for the MongoDB database.
	MongoURI string `env:"MONGO_URI,required"`

	// MonitoringPort is the port for the monitoring server.
	MonitoringPort string `env:"MONITORING_PORT" envDefault:"8080"`
}

// Loaded is the parsed configuration. Parse must have been called.
var Loaded Values
