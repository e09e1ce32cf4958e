// Package smtp submits messages to an authenticated SMTP relay.
package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/foxzi/outreach/internal/message"
)

// Connection security modes
const (
	SecurityTLS      = "tls"      // Implicit TLS, usually port 465
	SecurityStartTLS = "starttls" // Upgrade after EHLO, usually port 587
	SecurityNone     = "none"
)

// DeliveryError represents a delivery error with type information
type DeliveryError struct {
	Temporary bool
	Code      int // SMTP reply code, 0 when unknown
	Message   string
}

func (e *DeliveryError) Error() string {
	return e.Message
}

// Config contains relay connection settings
type Config struct {
	Host      string
	Port      int
	Security  string
	Username  string // Empty disables AUTH
	Password  string
	Hostname  string // EHLO name
	Timeout   time.Duration
	TLSConfig *tls.Config // Optional override, ServerName defaults to Host
}

// Client sends messages through a single relay
type Client struct {
	cfg     Config
	encoder *message.Encoder
	logger  *slog.Logger
}

// NewClient creates a new SMTP client
func NewClient(cfg Config, encoder *message.Encoder, logger *slog.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Security == "" {
		cfg.Security = SecurityTLS
	}
	if cfg.Hostname == "" {
		cfg.Hostname = "localhost"
	}
	return &Client{
		cfg:     cfg,
		encoder: encoder,
		logger:  logger,
	}
}

// Addr returns the relay address
func (c *Client) Addr() string {
	return net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
}

// Send encodes and submits msg to all its recipients (To and Cc)
func (c *Client) Send(ctx context.Context, msg *message.Email) error {
	data, err := c.encoder.Encode(msg)
	if err != nil {
		return &DeliveryError{Temporary: false, Message: fmt.Sprintf("failed to encode message: %v", err)}
	}

	rcpts := msg.AllRecipients()
	if err := c.submit(ctx, msg.From, rcpts, data); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}

	c.logger.Info("message delivered",
		"relay", c.Addr(),
		"from", msg.From,
		"to", rcpts,
		"size", len(data),
	)

	return nil
}

func (c *Client) submit(ctx context.Context, from string, to []string, data []byte) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return &DeliveryError{
			Temporary: true,
			Message:   fmt.Sprintf("connection failed to %s: %v", c.Addr(), err),
		}
	}
	defer conn.Close()

	// Unblock any pending read or write on interrupt
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.cfg.Timeout)
	}
	conn.SetDeadline(deadline)

	var client *smtp.Client
	if c.cfg.Security == SecurityStartTLS {
		client, err = smtp.NewClientStartTLS(conn, c.tlsConfig())
		if err != nil {
			return categorizeError(err, "STARTTLS")
		}
	} else {
		client = smtp.NewClient(conn)
	}
	defer client.Close()

	if err := client.Hello(c.cfg.Hostname); err != nil {
		return categorizeError(err, "EHLO")
	}

	if c.cfg.Username != "" {
		auth := sasl.NewPlainClient("", c.cfg.Username, c.cfg.Password)
		if err := client.Auth(auth); err != nil {
			return categorizeError(err, "AUTH")
		}
	}

	if err := client.SendMail(from, to, bytes.NewReader(data)); err != nil {
		return categorizeError(err, "send")
	}

	if err := client.Quit(); err != nil {
		c.logger.Debug("QUIT failed", "relay", c.Addr(), "error", err)
	}

	return nil
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: c.cfg.Timeout}

	if c.cfg.Security == SecurityTLS {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: c.tlsConfig()}
		return tlsDialer.DialContext(ctx, "tcp", c.Addr())
	}

	return dialer.DialContext(ctx, "tcp", c.Addr())
}

func (c *Client) tlsConfig() *tls.Config {
	if c.cfg.TLSConfig != nil {
		cfg := c.cfg.TLSConfig.Clone()
		if cfg.ServerName == "" {
			cfg.ServerName = c.cfg.Host
		}
		return cfg
	}
	return &tls.Config{
		ServerName: c.cfg.Host,
		MinVersion: tls.VersionTLS12,
	}
}

// smtpCodePattern matches SMTP response codes at word boundaries
var smtpCodePattern = regexp.MustCompile(`\b(4\d{2}|5\d{2})\b`)

// categorizeError determines if an SMTP error is temporary or permanent
func categorizeError(err error, stage string) *DeliveryError {
	msg := fmt.Sprintf("%s failed: %v", stage, err)

	var smtpErr *smtp.SMTPError
	if errors.As(err, &smtpErr) {
		return &DeliveryError{
			Temporary: smtpErr.Code < 500,
			Code:      smtpErr.Code,
			Message:   msg,
		}
	}

	if matches := smtpCodePattern.FindStringSubmatch(err.Error()); len(matches) > 1 {
		code, _ := strconv.Atoi(matches[1])
		return &DeliveryError{
			Temporary: !strings.HasPrefix(matches[1], "5"),
			Code:      code,
			Message:   msg,
		}
	}

	// Assume temporary by default
	return &DeliveryError{Temporary: true, Message: msg}
}

// IsTemporaryError checks if the error is temporary
func IsTemporaryError(err error) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Temporary
	}
	return true // Assume temporary if unknown
}
