// Package resend sends messages through the Resend HTTP API.
package resend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v3"

	"github.com/foxzi/outreach/internal/message"
)

// EmailsAPI is the part of the Resend client used for sending
type EmailsAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Sender delivers messages through Resend
type Sender struct {
	emails EmailsAPI
	logger *slog.Logger
}

// New creates a sender using an API key
func New(apiKey string, logger *slog.Logger) *Sender {
	return NewWithClient(resend.NewClient(apiKey), logger)
}

// NewWithClient creates a sender from a configured Resend client
func NewWithClient(client *resend.Client, logger *slog.Logger) *Sender {
	return NewWithAPI(client.Emails, logger)
}

// NewWithAPI creates a sender from any EmailsAPI implementation
func NewWithAPI(emails EmailsAPI, logger *slog.Logger) *Sender {
	return &Sender{emails: emails, logger: logger}
}

// Send submits msg to the API
func (s *Sender) Send(ctx context.Context, msg *message.Email) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("resend: %w", err)
	}

	req := &resend.SendEmailRequest{
		From:    msg.FromHeader(),
		To:      msg.To,
		Cc:      msg.Cc,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Headers: msg.Headers,
	}

	if len(msg.Attachments) > 0 {
		req.Attachments = convertAttachments(msg.Attachments)
	}

	resp, err := s.emails.SendWithContext(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("resend: failed to send email: %w", err)
	}

	s.logger.Info("message delivered",
		"provider", "resend",
		"id", resp.Id,
		"from", msg.From,
		"to", msg.AllRecipients(),
	)

	return nil
}

func convertAttachments(attachments []message.Attachment) []*resend.Attachment {
	result := make([]*resend.Attachment, len(attachments))
	for i, a := range attachments {
		result[i] = &resend.Attachment{
			Filename:    a.Filename,
			Content:     a.Content,
			ContentType: a.ContentType,
		}
	}
	return result
}
