package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/denbot/den/pkg/wizard"
)

const (
	// WizardMenuID is the custom ID of wizard selection menus.
	WizardMenuID = "wizard_menu"

	// WizardConfirmYesID is the custom ID of the wizard yes button.
	WizardConfirmYesID = "wizard_confirm_yes"

	// WizardConfirmNoID is the custom ID of the wizard no button.
	WizardConfirmNoID = "wizard_confirm_no"
)

// Prompter renders wizard prompts as channel messages. Responses flow back
// through the interaction middleware, which submits them to the wizard's
// collector; the prompter itself never reads anything.
type Prompter struct {
	// l is the logger.
	l *slog.Logger

	// s is the discord session.
	s *discordgo.Session
}

// NewPrompter creates a new wizard prompter.
func NewPrompter(l *slog.Logger, s *discordgo.Session) *Prompter {
	return &Prompter{
		l: l.With(slog.String("component", "prompter")),
		s: s,
	}
}

var _ wizard.Prompter = (*Prompter)(nil)

func (p *Prompter) Menu(ctx context.Context, s *wizard.Session, title string, options []wizard.Option) error {
	menuOpts := make([]discordgo.SelectMenuOption, 0, len(options))
	for _, o := range options {
		menuOpts = append(menuOpts, discordgo.SelectMenuOption{
			Label:       o.Label,
			Value:       o.Value,
			Description: o.Description,
		})
	}

	if _, err := p.s.ChannelMessageSendComplex(s.SurfaceID, &discordgo.MessageSend{
		Content: fmt.Sprintf("**%s**", title),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.SelectMenu{
						MenuType: discordgo.StringSelectMenu,
						CustomID: WizardMenuID,
						Options:  menuOpts,
					},
				},
			},
		},
	}); err != nil {
		return fmt.Errorf("error sending menu: %w", err)
	}
	return nil
}

func (p *Prompter) Text(ctx context.Context, s *wizard.Session, prompt string) error {
	if _, err := p.s.ChannelMessageSend(s.SurfaceID, fmt.Sprintf("%s\nReply in this channel, or type `cancel`.", prompt)); err != nil {
		return fmt.Errorf("error sending text prompt: %w", err)
	}
	return nil
}

func (p *Prompter) Confirm(ctx context.Context, s *wizard.Session, question string) error {
	if _, err := p.s.ChannelMessageSendComplex(s.SurfaceID, &discordgo.MessageSend{
		Content: question,
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Yes",
						Style:    discordgo.DangerButton,
						CustomID: WizardConfirmYesID,
					},
					discordgo.Button{
						Label:    "No",
						Style:    discordgo.SecondaryButton,
						CustomID: WizardConfirmNoID,
					},
				},
			},
		},
	}); err != nil {
		return fmt.Errorf("error sending confirmation: %w", err)
	}
	return nil
}

func (p *Prompter) Info(ctx context.Context, s *wizard.Session, text string) error {
	if _, err := p.s.ChannelMessageSend(s.SurfaceID, text); err != nil {
		return fmt.Errorf("error sending notice: %w", err)
	}
	return nil
}
