package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/denbot/den/cmd/bot/config"
	"github.com/denbot/den/cmd/bot/monitoring"
	"github.com/denbot/den/pkg/collector"
	"github.com/denbot/den/pkg/dataaccess"
	"github.com/denbot/den/pkg/discord"
	"github.com/denbot/den/pkg/logging"
	"github.com/denbot/den/pkg/request"
	"github.com/denbot/den/pkg/ticketing"
	"github.com/denbot/den/pkg/wizard"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// PathMetrics is the path for metrics.
	PathMetrics = "/metrics"

	// PathHealth is the path for the health check.
	PathHealth = "/health"
)

// confirmChoice is a yes/no decision collected from a confirmation button
// pair outside the wizard.
type confirmChoice struct {
	// Confirmed is whether the user pressed the confirming button.
	Confirmed bool
}

// IApp is the interface for the application.
type IApp interface {
	// Log returns the logger.
	Log() *slog.Logger

	// Session returns the discord session.
	Session() *discordgo.Session

	// GuildConfigs returns the guild configuration store.
	GuildConfigs() dataaccess.GuildConfigDal

	// Tickets returns the ticket lifecycle service.
	Tickets() *ticketing.Service

	// Registry returns the category registry.
	Registry() *ticketing.Registry

	// Templates returns the message template service.
	Templates() *ticketing.Templates

	// Wizard returns the configuration wizard.
	Wizard() *wizard.Wizard

	// Confirms returns the collector for confirmation button pairs.
	Confirms() *collector.Collector[confirmChoice]
}

type App struct {
	// is the logger.
	*slog.Logger

	// r is the router for the application.
	r *mux.Router

	// svr is the server for the application.
	svr *http.Server

	// s is the discord session.
	s *discordgo.Session

	// eventNotifier is the channel for notifying of events.
	eventNotifier chan any

	// guilds is the guild configuration store.
	guilds dataaccess.GuildConfigDal

	// tickets is the ticket lifecycle service.
	tickets *ticketing.Service

	// registry is the category registry.
	registry *ticketing.Registry

	// templates is the message template service.
	templates *ticketing.Templates

	// wizard is the configuration wizard.
	wizard *wizard.Wizard

	// confirms collects confirmation button presses.
	confirms *collector.Collector[confirmChoice]
}

// NewApp creates a new instance of App.
func NewApp(l *slog.Logger, r *mux.Router) *App {
	return &App{
		Logger: l,
		r:      r,
	}
}

func (a *App) Run() error {
	// Register bot.
	if err := a.RegisterBot(); err != nil {
		return fmt.Errorf("error registering bot: %w", err)
	}

	// Build the services on top of the session.
	a.buildServices()

	a.s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		a.Info(fmt.Sprintf("Logged in as %s#%s", r.User.Username, r.User.Discriminator))
	})

	// Register slash commands.
	if err := a.registerSlashCommands(); err != nil {
		return fmt.Errorf("error registering slash commands: %w", err)
	}

	if err := a.RegisterDiscordHandlers(); err != nil {
		return fmt.Errorf("error registering discord handlers: %w", err)
	}

	// Start event listener.
	go a.eventListener()

	// Open websocket.
	if err := a.s.Open(); err != nil {
		return fmt.Errorf("error opening connection to Discord: %w", err)
	}

	a.Info("Bot is now running.")

	a.generateServer()
	a.setupRoutes()
	a.runServer()

	// Register listener for shutdown signal.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	// Process shutdown signal.
	for sig := range c {
		a.Info("Received shutdown signal", slog.String("signal", sig.String()))
		if err := a.ShutdownHook(); err != nil {
			a.Error("Error shutting down application", slog.String(logging.KeyError, err.Error()))
		}
		os.Exit(0)
	}
	return nil
}

func (a *App) ShutdownHook() error {
	// Reset the total number of guilds to 0.
	monitoring.TotalDiscordGuilds.Set(0)

	// Unregister slash commands.
	if err := a.unregisterSlashCommands(); err != nil {
		return fmt.Errorf("error unregistering slash commands: %w", err)
	}

	// Close the connection to Discord.
	if err := a.s.Close(); err != nil {
		return fmt.Errorf("error closing connection to Discord: %w", err)
	}
	return nil
}

func (a *App) RegisterBot() error {
	// Default the number of guilds to 0.
	monitoring.TotalDiscordGuilds.Set(0)

	dg, err := discordgo.New("Bot " + config.Loaded.BotToken)
	if err != nil {
		return fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsAll)

	if a.eventNotifier == nil {
		// Create event notifier. This is used to observe events. It is buffered to prevent blocking.
		a.eventNotifier = make(chan any, 100)
	}

	dg.SetEventNotifier(a.eventNotifier)

	a.s = dg
	return nil
}

// buildServices wires the stores and services that sit on top of the
// session. RegisterBot must have been called.
func (a *App) buildServices() {
	a.guilds = dataaccess.NewGuildConfigDal(a.Logger)
	categories := dataaccess.NewCategoryDal(a.Logger)
	tickets := dataaccess.NewTicketDal(a.Logger)
	templateStore := dataaccess.NewTemplateDal(a.Logger)

	channels := discord.NewChannelManager(a.Logger, a.s)
	notifier := discord.NewNotifier(a.Logger, a.s)

	a.tickets = ticketing.NewService(a.Logger, a.guilds, categories, tickets, channels, notifier)
	a.registry = ticketing.NewRegistry(a.Logger, categories)
	a.templates = ticketing.NewTemplates(a.Logger, templateStore)

	prompter := discord.NewPrompter(a.Logger, a.s)
	a.wizard = wizard.New(a.Logger, a.guilds, a.registry, a.templates, prompter, collector.New[wizard.Reply]())
	a.confirms = collector.New[confirmChoice]()
}

func (a *App) runServer() {
	go func() {
		a.Info("Starting monitoring server")
		if err := a.svr.ListenAndServe(); err != nil {
			a.Error("Error starting monitoring server", slog.String(logging.KeyError, err.Error()))
			a.Warn("Monitoring server will not be available")
		}
	}()
}

func (a *App) setupRoutes() {
	// PathMetrics is the path for metrics.
	a.r.HandleFunc(PathMetrics, promhttp.Handler().ServeHTTP).Methods(http.MethodGet)

	// PathHealth is the path for health check.
	a.r.HandleFunc(PathHealth, middlewareHttp(a, a.healthCheck())).Methods(http.MethodGet)

	// NotFoundHandler is the handler for 404.
	a.r.NotFoundHandler = request.NotFoundHandler(a.Logger)

	// MethodNotAllowedHandler is the handler for 405.
	a.r.MethodNotAllowedHandler = request.MethodNotAllowedHandler(a.Logger)
}

func (a *App) generateServer() {
	a.svr = &http.Server{
		Addr:    ":" + config.Loaded.MonitoringPort,
		Handler: a.r,
	}
}

func (a *App) GetJoinedGuilds() ([]*discordgo.UserGuild, error) {
	guilds, err := a.s.UserGuilds(0, "", "")
	if err != nil {
		return nil, fmt.Errorf("error getting guilds: %w", err)
	}
	return guilds, nil
}

func (a *App) RegisterDiscordHandlers() error {
	// Bot joined guild.
	a.s.AddHandler(guildJoinedHandler(a))

	// Bot left guild.
	a.s.AddHandler(guildLeaveHandler(a))

	// Wizard text prompts are answered with plain channel messages.
	a.s.AddHandler(messageHandler(a))

	// Interaction create handler.
	a.s.AddHandler(interactionHandler(a,
		// Slash controllers
		map[string]commandController{
			setupCmdName:  setupCmdController,
			configCmdName: configCmdController,
			ticketCmdName: ticketCmdController,
		},
		// Component processors
		map[string]commandProcessor{
			OpenTicketButtonID:    openTicketProcessor,
			CategorySelectID:      categorySelectProcessor,
			CloseTicketButtonID:   closeTicketProcessor,
			ReopenTicketButtonID:  reopenTicketProcessor,
			ArchiveTicketButtonID: archiveTicketProcessor,
			DeleteTicketButtonID:  deleteTicketProcessor,
		},
		// Modal processors
		map[string]commandProcessor{
			CloseReasonModalID: closeReasonModalProcessor,
		}))
	return nil
}

func (a *App) eventListener() {
	for e := range a.eventNotifier {
		switch t := e.(type) {
		case *discordgo.Event:
			if t.Type != "" {
				monitoring.TotalDiscordEvents.WithLabelValues(t.Type).Inc()
			} else {
				// If there is no type, then use the operation name.
				monitoring.TotalDiscordEvents.WithLabelValues(strings.ToUpper(t.Operation.String())).Inc()
			}
		default:
			a.Error("Unknown event type", slog.String("type", fmt.Sprintf("%T", e)))
			monitoring.TotalDiscordEvents.WithLabelValues("UNKNOWN").Inc()
		}
	}
}

func (a *App) registerSlashCommands() error {
	// Get all guilds the bot is in.
	guilds, err := a.GetJoinedGuilds()
	if err != nil {
		return fmt.Errorf("error getting guilds: %w", err)
	}

	// Register slash commands for each guild.
	for _, g := range guilds {
		for _, cmd := range slashCommands() {
			if _, err := a.s.ApplicationCommandCreate(config.Loaded.ApplicationID, g.ID, cmd); err != nil {
				return fmt.Errorf("error creating %s command for guild %s: %w", cmd.Name, g.ID, err)
			}
		}
	}
	return nil
}

func (a *App) unregisterSlashCommands() error {
	// Get all guilds the bot is in.
	guilds, err := a.GetJoinedGuilds()
	if err != nil {
		return fmt.Errorf("error getting guilds: %w", err)
	}

	// Delete slash commands for each guild.
	for _, guild := range guilds {
		for _, cmd := range slashCommands() {
			if err := a.s.ApplicationCommandDelete(config.Loaded.ApplicationID, guild.ID, cmd.ID); err != nil {
				return fmt.Errorf("error deleting %s command for guild %s: %w", cmd.Name, guild.ID, err)
			}
		}
	}
	return nil
}

func (a *App) Log() *slog.Logger {
	return a.Logger
}

func (a *App) Session() *discordgo.Session {
	return a.s
}

func (a *App) GuildConfigs() dataaccess.GuildConfigDal {
	return a.guilds
}

func (a *App) Tickets() *ticketing.Service {
	return a.tickets
}

func (a *App) Registry() *ticketing.Registry {
	return a.registry
}

func (a *App) Templates() *ticketing.Templates {
	return a.templates
}

func (a *App) Wizard() *wizard.Wizard {
	return a.wizard
}

func (a *App) Confirms() *collector.Collector[confirmChoice] {
	return a.confirms
}
