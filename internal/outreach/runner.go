// Package outreach drives a run: for every roster recipient not yet in the
// sent-record it renders, sends and records one message.
package outreach

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/foxzi/outreach/internal/email"
	"github.com/foxzi/outreach/internal/headers"
	"github.com/foxzi/outreach/internal/message"
	"github.com/foxzi/outreach/internal/metrics"
	"github.com/foxzi/outreach/internal/roster"
	"github.com/foxzi/outreach/internal/sentlog"
	"github.com/foxzi/outreach/internal/template"
)

// Sender delivers one composed message
type Sender interface {
	Send(ctx context.Context, msg *message.Email) error
}

// Renderer produces the subject and body for a template kind
type Renderer interface {
	Render(kind string, p template.Params) (*template.RenderResult, error)
}

// Config holds the values shared by every message of a run
type Config struct {
	FromName    string // Sender full name, also the {{.FullName}} placeholder
	FromEmail   string
	Year        string
	Cc          []string
	Attachments []message.Attachment
	Headers     *headers.Processor // Optional header rules

	// SkipRecord leaves the sent-record untouched after a successful send,
	// used for sandbox rehearsals.
	SkipRecord bool
}

// Runner processes roster rows sequentially
type Runner struct {
	cfg      Config
	record   *sentlog.Record
	renderer Renderer
	sender   Sender
	logger   *slog.Logger
}

// NewRunner creates a runner. record is updated in place.
func NewRunner(cfg Config, record *sentlog.Record, renderer Renderer, sender Sender, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		cfg:      cfg,
		record:   record,
		renderer: renderer,
		sender:   sender,
		logger:   logger,
	}
}

// Run processes rows in order. The returned summary is never nil and covers
// everything done before an error. Cancellation of ctx returns ctx.Err().
func (r *Runner) Run(ctx context.Context, rows []roster.Row) (*Summary, error) {
	summary := &Summary{}

	for _, row := range rows {
		recipients, err := row.Recipients()
		if err != nil {
			r.logger.Warn("row badly formatted, skipping",
				"company", row.Company,
				"line", row.Line,
				"error", err,
			)
			summary.addMalformed(row, err)
			metrics.IncRows(metrics.RowMalformed)
			continue
		}

		metrics.IncRows(metrics.RowProcessed)
		summary.Rows++

		r.logger.Info("processing row",
			"company", row.Company,
			"names", row.Names(),
			"emails", row.Emails(),
			"type", row.Type,
		)

		for _, rcpt := range recipients {
			if err := ctx.Err(); err != nil {
				return summary, err
			}

			if err := r.processRecipient(ctx, row, rcpt, summary); err != nil {
				return summary, err
			}
		}
	}

	return summary, nil
}

func (r *Runner) processRecipient(ctx context.Context, row roster.Row, rcpt roster.Recipient, summary *Summary) error {
	if r.record.Contains(rcpt.Email) {
		r.logger.Warn("email already sent, skipping",
			"name", rcpt.Name,
			"email", rcpt.Email,
		)
		summary.add(row, rcpt, OutcomeDuplicate)
		metrics.IncRecipients(metrics.OutcomeDuplicate)
		return nil
	}

	rendered, err := r.renderer.Render(row.Type, template.Params{
		SenderFullName: r.cfg.FromName,
		Year:           r.cfg.Year,
		Company:        row.Company,
		RecipientName:  rcpt.Name,
	})
	if errors.Is(err, template.ErrUnknownKind) {
		r.logger.Warn("unknown template type, skipping",
			"company", row.Company,
			"type", row.Type,
			"email", rcpt.Email,
		)
		summary.add(row, rcpt, OutcomeUnknownKind)
		metrics.IncRecipients(metrics.OutcomeUnknownKind)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to render %s for %s: %w", row.Type, rcpt.Email, err)
	}

	msg := r.compose(row, rcpt, rendered)

	start := time.Now()
	if err := r.sender.Send(ctx, msg); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		metrics.IncRecipients(metrics.OutcomeFailed)
		return &SendError{Company: row.Company, Recipient: rcpt, Err: err}
	}
	metrics.ObserveSent(email.ExtractDomainOrDefault(rcpt.Email, "unknown"), time.Since(start))

	if !r.cfg.SkipRecord {
		r.record.Add(rcpt.Email)
	}
	summary.add(row, rcpt, OutcomeSent)
	metrics.IncRecipients(metrics.OutcomeSent)

	r.logger.Info("email sent",
		"company", row.Company,
		"name", rcpt.Name,
		"email", rcpt.Email,
	)

	return nil
}

// compose builds the message for one recipient
func (r *Runner) compose(row roster.Row, rcpt roster.Recipient, rendered *template.RenderResult) *message.Email {
	msg := &message.Email{
		From:        r.cfg.FromEmail,
		FromName:    r.cfg.FromName,
		To:          []string{rcpt.Email},
		Cc:          append([]string(nil), r.cfg.Cc...),
		Subject:     rendered.Subject,
		HTML:        rendered.HTML,
		Attachments: r.cfg.Attachments,
	}
	r.cfg.Headers.Apply(msg, row.Company)
	return msg
}

// SendError is returned when the transport fails. The recipient is not
// recorded, so a later run retries it.
type SendError struct {
	Company   string
	Recipient roster.Recipient
	Err       error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("failed to send to %s <%s> (%s): %v", e.Recipient.Name, e.Recipient.Email, e.Company, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}
