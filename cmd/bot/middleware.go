package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/denbot/den/cmd/bot/monitoring"
	"github.com/denbot/den/pkg/discord"
	"github.com/denbot/den/pkg/logging"
	"github.com/denbot/den/pkg/messages"
	"github.com/denbot/den/pkg/request"
	"github.com/denbot/den/pkg/ticketing"
	"github.com/denbot/den/pkg/wizard"
	"github.com/gorilla/mux"
)

// commandController resolves an interaction to its processor, performing any
// permission checks. A nil processor with a nil error means the controller
// already responded.
type commandController func(a IApp, i *discordgo.InteractionCreate) (commandProcessor, error)

// commandProcessor handles one interaction.
type commandProcessor func(a IApp, i *discordgo.InteractionCreate) error

type Controller func(w http.ResponseWriter, r *http.Request)

func middlewareHttp(a IApp, handler Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		cw := request.NewClientWriter(w)

		// Recover from any panics that occur in the handler.
		defer func() {
			if rec := recover(); rec != nil {
				a.Log().Error("Panic in handler",
					slog.String(logging.KeyError, fmt.Sprintf("%v", rec)),
					slog.String("stack", string(debug.Stack())),
				)
				cw.WriteHeader(http.StatusInternalServerError)
				if err := json.NewEncoder(cw).Encode(request.NewMessage(messages.ErrUserErrorProcessing)); err != nil {
					a.Log().Error("Error encoding response", slog.String(logging.KeyError, err.Error()))
				}
			}
		}()

		var path string
		route := mux.CurrentRoute(r)
		if route != nil { // The route may be nil if the request is not routed.
			var err error
			path, err = route.GetPathTemplate()
			if err != nil {
				// An error here is only returned if the route does not define a path.
				a.Log().Error("Error getting path template", slog.String(logging.KeyError, err.Error()))
				path = r.URL.Path
			}
		} else {
			path = r.URL.Path
		}

		defer func() {
			// Run after the request has been handled, as the status code is not available until then.
			monitoring.HttpTotalRequests.WithLabelValues(path, r.Method, fmt.Sprintf("%d", cw.StatusCode())).Inc()
			monitoring.HttpRequestDuration.WithLabelValues(path, r.Method, fmt.Sprintf("%d", cw.StatusCode())).Observe(time.Since(now).Seconds())
		}()

		handler(cw, r)
	}
}

// interactionHandler dispatches every interaction. Components and modal
// submissions are offered to the collectors first; a consumed submission
// belongs to a suspended flow and gets a bare acknowledgement.
func interactionHandler(a IApp, slash map[string]commandController, components, modals map[string]commandProcessor) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			handleSlash(a, i, slash)
		case discordgo.InteractionMessageComponent:
			handleComponent(a, i, components)
		case discordgo.InteractionModalSubmit:
			handleModal(a, i, modals)
		}
	}
}

func handleSlash(a IApp, i *discordgo.InteractionCreate, controllers map[string]commandController) {
	name := i.ApplicationCommandData().Name
	a.Log().Debug("Handling interaction " + name)

	t := time.Now().UTC()
	defer func() {
		monitoring.DiscordCommandDuration.WithLabelValues(name).Observe(time.Since(t).Seconds())
	}()

	controller, ok := controllers[name]
	if !ok {
		a.Log().Error("No controller found for command", slog.String("command", name))
		respondError(a, i)
		return
	}

	processor, err := controller(a, i)
	if err != nil {
		a.Log().Error(fmt.Sprintf("Error getting processor for command %s", name),
			slog.String(logging.KeyError, err.Error()))
		respondFailure(a, i, err)
		return
	} else if processor == nil {
		// The controller already responded.
		return
	}

	if err := processor(a, i); err != nil {
		a.Log().Error(fmt.Sprintf("Error processing command %s", name),
			slog.String(logging.KeyError, err.Error()))
		respondFailure(a, i, err)
	}
}

func handleComponent(a IApp, i *discordgo.InteractionCreate, processors map[string]commandProcessor) {
	data := i.MessageComponentData()
	a.Log().Debug("Handling component " + data.CustomID)

	t := time.Now().UTC()
	defer func() {
		monitoring.DiscordCommandDuration.WithLabelValues(data.CustomID).Observe(time.Since(t).Seconds())
	}()

	if submitToCollectors(a, i, data) {
		ackComponent(a, i)
		return
	}

	processor, ok := processors[data.CustomID]
	if !ok {
		// A component from a finished flow.
		if err := respondEphemeral(a, i, messages.PromptExpired); err != nil {
			a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
		return
	}

	if err := processor(a, i); err != nil {
		a.Log().Error(fmt.Sprintf("Error processing component %s", data.CustomID),
			slog.String(logging.KeyError, err.Error()))
		respondFailure(a, i, err)
	}
}

func handleModal(a IApp, i *discordgo.InteractionCreate, processors map[string]commandProcessor) {
	data := i.ModalSubmitData()
	a.Log().Debug("Handling modal " + data.CustomID)

	processor, ok := processors[data.CustomID]
	if !ok {
		if err := respondEphemeral(a, i, messages.PromptExpired); err != nil {
			a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
		return
	}

	if err := processor(a, i); err != nil {
		a.Log().Error(fmt.Sprintf("Error processing modal %s", data.CustomID),
			slog.String(logging.KeyError, err.Error()))
		respondFailure(a, i, err)
	}
}

// submitToCollectors offers a component press to the suspended flows waiting
// on this channel. It reports whether one of them consumed it.
func submitToCollectors(a IApp, i *discordgo.InteractionCreate, data discordgo.MessageComponentInteractionData) bool {
	userID := interactionUserID(i)

	switch data.CustomID {
	case discord.WizardMenuID:
		if len(data.Values) == 0 {
			return false
		}
		return a.Wizard().Collector().Submit(i.ChannelID, userID, wizard.Reply{
			PrincipalID: userID,
			Value:       data.Values[0],
		})
	case discord.WizardConfirmYesID:
		return a.Wizard().Collector().Submit(i.ChannelID, userID, wizard.Reply{
			PrincipalID: userID,
			Value:       "yes",
		})
	case discord.WizardConfirmNoID:
		return a.Wizard().Collector().Submit(i.ChannelID, userID, wizard.Reply{
			PrincipalID: userID,
			Value:       "no",
		})
	case DeleteConfirmButtonID:
		return a.Confirms().Submit(i.ChannelID, userID, confirmChoice{Confirmed: true})
	case DeleteCancelButtonID:
		return a.Confirms().Submit(i.ChannelID, userID, confirmChoice{Confirmed: false})
	}
	return false
}

// ackComponent acknowledges a component press without changing the message.
func ackComponent(a IApp, i *discordgo.InteractionCreate) {
	if err := a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}); err != nil {
		a.Log().Error("Error acknowledging component", slog.String(logging.KeyError, err.Error()))
	}
}

// messageHandler feeds plain channel messages to the wizard collector so
// free-text prompts can be answered without components.
func messageHandler(a IApp) func(s *discordgo.Session, m *discordgo.MessageCreate) {
	return func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot {
			return
		}
		a.Wizard().Collector().Submit(m.ChannelID, m.Author.ID, wizard.Reply{
			PrincipalID: m.Author.ID,
			Value:       m.Content,
			Cancelled:   strings.EqualFold(strings.TrimSpace(m.Content), "cancel"),
		})
	}
}

// respondFailure renders an error to the user. Classified ticketing errors
// carry a user-presentable message; anything else gets the generic reply.
func respondFailure(a IApp, i *discordgo.InteractionCreate, err error) {
	content := messages.ErrUserErrorProcessing

	terr := new(ticketing.Error)
	if errors.As(err, &terr) {
		switch {
		case errors.Is(terr, ticketing.ErrTicketingDisabled):
			content = messages.TicketingDisabled
		case errors.Is(terr, ticketing.ErrDuplicateOpenTicket) && terr.Ticket != nil:
			content = fmt.Sprintf(messages.DuplicateTicket, terr.Ticket.ChannelID)
		case errors.Is(terr, ticketing.ErrCategoryUnavailable), errors.Is(terr, ticketing.ErrCategoryNotFound):
			content = messages.CategoryUnavailable
		case errors.Is(terr, ticketing.ErrNotATicket):
			content = messages.NotATicketChannel
		case errors.Is(terr, ticketing.ErrPermissionDenied):
			content = messages.MissingStaffPermission
		case terr.Kind == ticketing.KindConflict, terr.Kind == ticketing.KindValidation:
			content = terr.Message
		}
	}

	if err := respondEphemeral(a, i, content); err != nil {
		a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
	}
}

func respondError(a IApp, i *discordgo.InteractionCreate) {
	if err := respondEphemeral(a, i, messages.ErrUserErrorProcessing); err != nil {
		a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
	}
}
