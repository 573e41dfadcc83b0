// Package email delivers transactional mail through Resend.
package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/mail"
	"strings"
	"time"

	"github.com/eventify-org/server/internal/config"
	"github.com/eventify-org/server/internal/validation"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Service renders and sends mail. With email disabled it only logs what it
// would have sent.
type Service struct {
	config       config.EmailConfig
	templates    *template.Template
	resendClient *resend.Client
	logger       zerolog.Logger
}

// Confirmation is the data behind a registration confirmation mail.
type Confirmation struct {
	To           string
	AttendeeName string
	EventTitle   string
	EventDate    string
	EventTime    string
	Location     string
	TicketNumber string
	EventURL     string
	CurrentYear  int
}

func NewService(cfg config.EmailConfig, logger zerolog.Logger) (*Service, error) {
	if cfg.Enabled {
		if err := validateEmailAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
	}
	templates, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}

	svc := &Service{
		config:    cfg,
		templates: templates,
		logger:    logger.With().Str("component", "email").Logger(),
	}
	if cfg.Enabled {
		svc.resendClient = resend.NewClient(cfg.ResendAPIKey)
	}
	return svc, nil
}

// SendRegistrationConfirmation mails the attendee their ticket.
func (s *Service) SendRegistrationConfirmation(ctx context.Context, c Confirmation) error {
	if err := validateEmailAddress(c.To); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}
	if c.EventURL != "" {
		if err := validation.ValidateURL(c.EventURL, "event_url"); err != nil {
			return err
		}
	}
	if c.CurrentYear == 0 {
		c.CurrentYear = time.Now().Year()
	}

	if !s.config.Enabled {
		s.logger.Info().
			Str("to", c.To).
			Str("ticket", c.TicketNumber).
			Msg("email disabled, skipping registration confirmation")
		return nil
	}

	body, err := s.render("registration_confirmation.html", c)
	if err != nil {
		return err
	}
	return s.send(ctx, message{
		to:       c.To,
		subject:  fmt.Sprintf("You're registered: %s", c.EventTitle),
		html:     body,
		category: "registration_confirmation",
		ref:      c.TicketNumber,
	})
}

func (s *Service) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// validateEmailAddress rejects malformed addresses and header injection.
func validateEmailAddress(address string) error {
	addr, err := mail.ParseAddress(address)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	return nil
}
