package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/foxzi/outreach/internal/config"
	"github.com/foxzi/outreach/internal/dkim"
	"github.com/foxzi/outreach/internal/headers"
	"github.com/foxzi/outreach/internal/message"
	"github.com/foxzi/outreach/internal/metrics"
	"github.com/foxzi/outreach/internal/outreach"
	"github.com/foxzi/outreach/internal/resend"
	"github.com/foxzi/outreach/internal/roster"
	"github.com/foxzi/outreach/internal/sandbox"
	"github.com/foxzi/outreach/internal/sentlog"
	"github.com/foxzi/outreach/internal/ses"
	"github.com/foxzi/outreach/internal/smtp"
	"github.com/foxzi/outreach/internal/storage"
	"github.com/foxzi/outreach/internal/template"
)

// ConfirmPrompt is written before reading the operator's answer
const ConfirmPrompt = "Are you sure you want to send emails? (y/n)\t"

// Mailer name placed in the X-Mailer header
const Mailer = "outreach"

// App is the main application
type App struct {
	config         *config.Config
	logger         *slog.Logger
	db             *bolt.DB
	store          sentlog.Store
	renderer       *template.Renderer
	attachments    []message.Attachment
	encoder        *message.Encoder
	sender         *sandbox.Sender
	sandboxStorage *sandbox.Storage
	headers        *headers.Processor
	metrics        *metrics.Metrics

	realSender sandbox.RealSender
}

// Option customizes the application
type Option func(*App)

// WithSender replaces the configured transport. Mode routing still applies.
func WithSender(s sandbox.RealSender) Option {
	return func(a *App) {
		a.realSender = s
	}
}

// WithLogger replaces the logger built from the logging section
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// New creates a new application
func New(cfg *config.Config, opts ...Option) (app *App, err error) {
	a := &App{config: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = setupLogger(cfg.Logging)
	}

	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if cfg.NeedsDB() {
		a.db, err = storage.Open(cfg.Storage.DBPath, sentlog.BucketSent, sandbox.BucketSandbox)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
	}

	switch cfg.Storage.Type {
	case config.StorageBolt:
		a.store, err = sentlog.NewBoltStore(a.db)
		if err != nil {
			return nil, fmt.Errorf("failed to create sent record store: %w", err)
		}
	default:
		a.store = sentlog.NewFileStore(cfg.Storage.Path, a.logger.With("component", "sentlog"))
	}

	a.renderer, err = template.NewRenderer(os.DirFS(cfg.Templates.Dir), template.RendererConfig{
		Kinds:          cfg.Templates.Kinds,
		Subject:        cfg.Templates.Subject,
		NoNameSentinel: cfg.Roster.NoNameSentinel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	if cfg.Attachment.Path != "" {
		att, err := message.LoadAttachment(cfg.Attachment.Path, cfg.Attachment.Filename)
		if err != nil {
			return nil, err
		}
		a.attachments = append(a.attachments, *att)
	}

	a.encoder = message.NewEncoder(Mailer)
	if cfg.DKIM.Enabled {
		signer, err := dkim.NewSignerFromFile(cfg.DKIM.KeyFile, cfg.DKIM.Domain, cfg.DKIM.Selector)
		if err != nil {
			return nil, fmt.Errorf("failed to setup DKIM: %w", err)
		}
		a.encoder.SetSigner(signer)
		a.logger.Info("DKIM signing enabled", "domain", cfg.DKIM.Domain, "selector", cfg.DKIM.Selector)
	}

	if cfg.HeaderRules.HasRules() {
		a.headers = headers.NewProcessor(cfg.HeaderRules)
	}

	if a.realSender == nil {
		a.realSender, err = a.newTransport()
		if err != nil {
			return nil, err
		}
	}

	if a.db != nil {
		a.sandboxStorage, err = sandbox.NewStorage(a.db)
		if err != nil {
			return nil, fmt.Errorf("failed to create sandbox storage: %w", err)
		}
	}

	a.sender, err = sandbox.NewSender(
		a.realSender,
		cfg.Transport.Mode,
		cfg.Transport.RedirectTo,
		a.sandboxStorage,
		a.encoder,
		a.logger.With("component", "sandbox_sender"),
	)
	if err != nil {
		return nil, err
	}

	a.metrics = metrics.New()
	metrics.SetGlobal(a.metrics)

	return a, nil
}

// newTransport builds the sender selected by transport.type
func (a *App) newTransport() (sandbox.RealSender, error) {
	cfg := a.config

	switch cfg.Transport.Type {
	case config.TransportResend:
		return resend.New(cfg.Transport.Resend.APIKey, a.logger.With("component", "resend")), nil
	case config.TransportSES:
		awsCfg, err := ses.LoadConfig(context.Background(), ses.Options{
			Region:  cfg.Transport.SES.Region,
			Profile: cfg.Transport.SES.Profile,
		})
		if err != nil {
			return nil, err
		}
		return ses.New(awsCfg, a.encoder, a.logger.With("component", "ses")), nil
	default:
		smtpCfg := cfg.Transport.SMTP
		client := smtp.NewClient(smtp.Config{
			Host:     smtpCfg.Host,
			Port:     smtpCfg.Port,
			Security: smtpCfg.Security,
			Username: smtpCfg.Username,
			Password: cfg.Sender.Password,
			Hostname: smtpCfg.Hostname,
			Timeout:  smtpCfg.Timeout,
		}, a.encoder, a.logger.With("component", "smtp_client"))
		a.logger.Debug("smtp transport configured", "addr", client.Addr(), "security", smtpCfg.Security)
		return client, nil
	}
}

// Run executes one send pass: load the sent-record, confirm, process the
// roster and persist. An interrupt stops before the next recipient and
// persists what was sent so far.
func (a *App) Run(ctx context.Context, in io.Reader, out io.Writer) (err error) {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	record, err := sentlog.LoadRecord(ctx, a.store)
	if err != nil {
		return err
	}
	a.logger.Info("sent record loaded", "addresses", record.Len())

	ok, err := Confirm(ctx, in, out)
	if err != nil {
		if ctx.Err() != nil {
			a.logger.Warn("interrupted at confirmation, nothing sent")
		}
		return err
	}
	if !ok {
		a.logger.Info("not confirmed, exiting")
		return nil
	}

	rows, err := roster.ReadFile(a.config.Roster.Path)
	if err != nil {
		return err
	}

	start := time.Now()
	metrics.RunStarted(start)

	runner := outreach.NewRunner(outreach.Config{
		FromName:    a.config.Sender.FullName,
		FromEmail:   a.config.Sender.Email,
		Year:        a.config.Event.Year,
		Cc:          a.config.Sender.CC,
		Attachments: a.attachments,
		Headers:     a.headers,
		SkipRecord:  !a.config.RecordSandbox(),
	}, record, a.renderer, a.sender, a.logger.With("component", "runner"))

	a.logger.Info("starting run",
		"rows", len(rows),
		"transport", a.config.Transport.Type,
		"mode", a.sender.Mode(),
	)

	summary, runErr := runner.Run(ctx, rows)
	interrupted := errors.Is(runErr, context.Canceled) && ctx.Err() != nil

	persistErr := a.persist(context.WithoutCancel(ctx), record)
	metrics.RunFinished(time.Since(start), interrupted)
	a.writeMetrics()

	printSummary(out, summary)

	if interrupted {
		a.logger.Warn("interrupted, saving progress", "sent", summary.Sent)
		// Losing the progress of an interrupted run is a failure
		return persistErr
	}
	if err := errors.Join(runErr, persistErr); err != nil {
		return err
	}

	a.logger.Info("run complete",
		"sent", summary.Sent,
		"duplicates", summary.Duplicates,
		"unknown_kind", summary.UnknownKind,
		"malformed", summary.RowsMalformed,
		"duration", time.Since(start),
	)
	return nil
}

// persist writes the sent-record back to the store
func (a *App) persist(ctx context.Context, record *sentlog.Record) error {
	if err := a.store.Persist(ctx, record.Addresses()); err != nil {
		a.logger.Error("failed to persist sent record", "error", err)
		return fmt.Errorf("failed to persist sent record: %w", err)
	}
	metrics.SetSentRecordSize(record.Len())
	a.logger.Debug("sent record persisted", "addresses", record.Len())
	return nil
}

func (a *App) writeMetrics() {
	path := a.config.Metrics.Textfile
	if path == "" {
		return
	}
	if err := a.metrics.WriteTextfile(path); err != nil {
		a.logger.Warn("failed to write metrics textfile", "path", path, "error", err)
	}
}

// Preview renders the message a recipient of the given kind would receive
// and returns the encoded MIME bytes. Nothing is sent or recorded.
func (a *App) Preview(kind, company, name, address string) ([]byte, error) {
	rendered, err := a.renderer.Render(kind, template.Params{
		SenderFullName: a.config.Sender.FullName,
		Year:           a.config.Event.Year,
		Company:        company,
		RecipientName:  name,
	})
	if err != nil {
		return nil, err
	}

	msg := &message.Email{
		From:        a.config.Sender.Email,
		FromName:    a.config.Sender.FullName,
		To:          []string{address},
		Cc:          append([]string(nil), a.config.Sender.CC...),
		Subject:     rendered.Subject,
		HTML:        rendered.HTML,
		Attachments: a.attachments,
	}
	a.headers.Apply(msg, company)

	return a.encoder.Encode(msg)
}

// Store returns the sent-record store
func (a *App) Store() sentlog.Store {
	return a.store
}

// SandboxStorage returns the capture storage, nil when no database is open
func (a *App) SandboxStorage() *sandbox.Storage {
	return a.sandboxStorage
}

// Renderer returns the template renderer
func (a *App) Renderer() *template.Renderer {
	return a.renderer
}

// Logger returns the application logger
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Close releases the sent-record store and the database
func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, err)
		}
		a.db = nil
	}
	return errors.Join(errs...)
}

// Confirm writes the prompt and reads one line. Only "y" proceeds.
// Cancelling ctx abandons the read and returns the context error.
func Confirm(ctx context.Context, in io.Reader, out io.Writer) (bool, error) {
	if _, err := io.WriteString(out, ConfirmPrompt); err != nil {
		return false, err
	}

	type answer struct {
		line string
		err  error
	}
	answers := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(in).ReadString('\n')
		answers <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return false, fmt.Errorf("confirmation interrupted: %w", ctx.Err())
	case a := <-answers:
		if a.err != nil && !errors.Is(a.err, io.EOF) {
			return false, fmt.Errorf("failed to read confirmation: %w", a.err)
		}
		return strings.TrimRight(a.line, "\r\n") == "y", nil
	}
}

func printSummary(out io.Writer, s *outreach.Summary) {
	if s == nil {
		return
	}
	fmt.Fprintln(out)
	for _, m := range s.Malformed {
		fmt.Fprintf(out, "Error: %s row badly formatted, skipping (line %d: %s)\n", m.Company, m.Line, m.Reason)
	}
	fmt.Fprintf(out, "rows: %d, sent: %d, already sent: %d, unknown type: %d, malformed: %d\n",
		s.Rows, s.Sent, s.Duplicates, s.UnknownKind, s.RowsMalformed)
}

// setupLogger creates a logger based on configuration
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
