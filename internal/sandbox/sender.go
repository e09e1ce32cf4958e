// Package sandbox routes outgoing messages according to the transport mode:
// deliver, capture without sending, or redirect to test inboxes.
package sandbox

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/foxzi/outreach/internal/email"
	"github.com/foxzi/outreach/internal/message"
)

// Modes
const (
	ModeProduction = "production"
	ModeSandbox    = "sandbox"
	ModeRedirect   = "redirect"
)

// HeaderOriginalTo carries the real recipients on redirected messages
const HeaderOriginalTo = "X-Original-To"

// RealSender is the interface for the actual transport
type RealSender interface {
	Send(ctx context.Context, msg *message.Email) error
}

// Sender wraps a real sender and intercepts messages based on the mode
type Sender struct {
	realSender RealSender
	mode       string
	redirectTo []string
	storage    *Storage
	encoder    *message.Encoder
	logger     *slog.Logger
	now        func() time.Time
}

// NewSender creates a new sandbox sender. storage may be nil in production mode.
func NewSender(
	realSender RealSender,
	mode string,
	redirectTo []string,
	storage *Storage,
	encoder *message.Encoder,
	logger *slog.Logger,
) (*Sender, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if mode == "" {
		mode = ModeProduction
	}

	switch mode {
	case ModeProduction:
	case ModeSandbox, ModeRedirect:
		if storage == nil {
			return nil, fmt.Errorf("sandbox: %s mode requires capture storage", mode)
		}
		if mode == ModeRedirect && len(redirectTo) == 0 {
			return nil, fmt.Errorf("sandbox: redirect mode requires redirect addresses")
		}
	default:
		return nil, fmt.Errorf("sandbox: unknown mode %q", mode)
	}

	return &Sender{
		realSender: realSender,
		mode:       mode,
		redirectTo: redirectTo,
		storage:    storage,
		encoder:    encoder,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Mode returns the routing mode
func (s *Sender) Mode() string {
	return s.mode
}

// Send routes the message based on the mode
func (s *Sender) Send(ctx context.Context, msg *message.Email) error {
	switch s.mode {
	case ModeSandbox:
		return s.handleSandbox(ctx, msg)
	case ModeRedirect:
		return s.handleRedirect(ctx, msg)
	default:
		return s.realSender.Send(ctx, msg)
	}
}

// handleSandbox stores the message instead of sending
func (s *Sender) handleSandbox(ctx context.Context, msg *message.Email) error {
	captured, err := s.capture(msg, msg, ModeSandbox)
	if err != nil {
		return err
	}

	if err := s.storage.Save(ctx, captured); err != nil {
		return fmt.Errorf("sandbox: failed to save message: %w", err)
	}

	s.logger.Info("sandbox: message captured",
		"id", captured.ID,
		"to", msg.To,
		"cc", msg.Cc,
	)

	return nil
}

// handleRedirect delivers a copy to the redirect addresses and keeps an audit capture
func (s *Sender) handleRedirect(ctx context.Context, msg *message.Email) error {
	redirected := *msg
	redirected.To = s.redirectTo
	redirected.Cc = nil
	redirected.Headers = make(map[string]string, len(msg.Headers)+1)
	for k, v := range msg.Headers {
		redirected.Headers[k] = v
	}
	redirected.Headers[HeaderOriginalTo] = strings.Join(msg.AllRecipients(), ", ")

	s.logger.Info("redirect: redirecting message",
		"original_to", msg.AllRecipients(),
		"redirect_to", s.redirectTo,
	)

	captured, err := s.capture(msg, &redirected, ModeRedirect)
	if err != nil {
		return err
	}
	if err := s.storage.Save(ctx, captured); err != nil {
		s.logger.Warn("redirect: failed to save to sandbox", "error", err)
	}

	return s.realSender.Send(ctx, &redirected)
}

// capture builds a stored record for sent, the message actually routed
func (s *Sender) capture(original, sent *message.Email, mode string) (*Message, error) {
	data, err := s.encoder.Encode(sent)
	if err != nil {
		return nil, fmt.Errorf("sandbox: failed to encode message: %w", err)
	}

	m := &Message{
		ID:         uuid.New().String(),
		From:       sent.From,
		To:         sent.To,
		Cc:         sent.Cc,
		Subject:    sent.Subject,
		Data:       data,
		Domain:     email.ExtractDomain(firstOf(original.To)),
		Mode:       mode,
		CapturedAt: s.now(),
	}
	if mode == ModeRedirect {
		m.OriginalTo = original.AllRecipients()
	}
	return m, nil
}

func firstOf(addrs []string) string {
	if len(addrs) == 0 {
		return ""
	}
	return addrs[0]
}
