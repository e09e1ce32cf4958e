// Package ses sends encoded messages through Amazon SES.
package ses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/foxzi/outreach/internal/message"
)

// API is the part of the SES client used for sending
type API interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

// Options selects the AWS credentials and region
type Options struct {
	Region  string
	Profile string
}

// Sender delivers raw MIME messages with SendRawEmail
type Sender struct {
	api     API
	encoder *message.Encoder
	logger  *slog.Logger
}

// LoadConfig loads AWS configuration from the default credential chain
func LoadConfig(ctx context.Context, opts Options) (aws.Config, error) {
	loadOpts := make([]func(*config.LoadOptions) error, 0, 2)

	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// New creates a sender from AWS configuration
func New(cfg aws.Config, encoder *message.Encoder, logger *slog.Logger) *Sender {
	return NewWithAPI(ses.NewFromConfig(cfg), encoder, logger)
}

// NewWithAPI creates a sender from any API implementation
func NewWithAPI(api API, encoder *message.Encoder, logger *slog.Logger) *Sender {
	return &Sender{api: api, encoder: encoder, logger: logger}
}

// Send encodes msg and submits it to SES
func (s *Sender) Send(ctx context.Context, msg *message.Email) error {
	data, err := s.encoder.Encode(msg)
	if err != nil {
		return fmt.Errorf("ses: failed to encode message: %w", err)
	}

	rcpts := msg.AllRecipients()
	out, err := s.api.SendRawEmail(ctx, &ses.SendRawEmailInput{
		Source:       aws.String(msg.From),
		Destinations: rcpts,
		RawMessage:   &types.RawMessage{Data: data},
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var rejected *types.MessageRejected
		if errors.As(err, &rejected) {
			return fmt.Errorf("ses: message rejected: %w", err)
		}
		return fmt.Errorf("ses: failed to send email: %w", err)
	}

	s.logger.Info("message delivered",
		"provider", "ses",
		"id", aws.ToString(out.MessageId),
		"from", msg.From,
		"to", rcpts,
		"size", len(data),
	)

	return nil
}
