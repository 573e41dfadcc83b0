package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
)

type message struct {
	to       string
	subject  string
	html     string
	category string
	// ref keeps mail clients from threading separate notices together.
	ref string
}

// send hands one message to Resend. Rate limits are reported, not retried;
// the job queue owns retries.
func (s *Service) send(ctx context.Context, msg message) error {
	if s.resendClient == nil {
		return fmt.Errorf("resend client not initialized")
	}

	req := &resend.SendEmailRequest{
		From:    s.config.From,
		To:      []string{msg.to},
		Subject: msg.subject,
		Html:    msg.html,
		Tags:    []resend.Tag{{Name: "category", Value: msg.category}},
	}
	if msg.ref != "" {
		req.Headers = map[string]string{"X-Entity-Ref-ID": msg.ref}
	}

	sent, err := s.resendClient.Emails.SendWithContext(ctx, req)
	if err != nil {
		var limited *resend.RateLimitError
		if errors.As(err, &limited) {
			s.logger.Warn().
				Str("category", msg.category).
				Str("reset", limited.Reset).
				Msg("resend rate limit exceeded")
			return fmt.Errorf("email rate limited, resets in %ss: %w", limited.Reset, err)
		}
		return fmt.Errorf("send %s: %w", msg.category, err)
	}

	s.logger.Info().
		Str("email_id", sent.Id).
		Str("category", msg.category).
		Str("ref", msg.ref).
		Msg("email sent")
	return nil
}
