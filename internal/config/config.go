package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/mail"
	"os"
	"time"

	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"

	"github.com/foxzi/outreach/internal/headers"
)

// Transport types
const (
	TransportSMTP   = "smtp"
	TransportResend = "resend"
	TransportSES    = "ses"
)

// Transport modes
const (
	ModeProduction = "production"
	ModeSandbox    = "sandbox"
	ModeRedirect   = "redirect"
)

// Sent-record storage types
const (
	StorageFile = "file"
	StorageBolt = "bolt"
)

// Environment variables that override file values
const (
	EnvFullName     = "FULL_NAME"
	EnvYear         = "YEAR"
	EnvEmail        = "EMAIL"
	EnvPassword     = "PASSWORD"
	EnvResendAPIKey = "RESEND_API_KEY"
)

// Config is the main configuration structure
type Config struct {
	Sender     SenderConfig     `yaml:"sender"`
	Event      EventConfig      `yaml:"event"`
	Roster     RosterConfig     `yaml:"roster"`
	Templates  TemplatesConfig  `yaml:"templates"`
	Attachment AttachmentConfig `yaml:"attachment"`
	Transport  TransportConfig  `yaml:"transport"`
	DKIM       DKIMConfig       `yaml:"dkim"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`

	HeaderRules *headers.Config `yaml:"header_rules"` // Extra headers, e.g. List-Unsubscribe
}

// SenderConfig describes who the messages come from
type SenderConfig struct {
	FullName string   `yaml:"full_name"` // Display name, first token is used as first name
	Email    string   `yaml:"email"`
	Password string   `yaml:"password"`
	CC       []string `yaml:"cc"` // Organizer addresses copied on every message
}

// EventConfig contains values substituted into templates
type EventConfig struct {
	Year string `yaml:"year"`
}

// RosterConfig contains input spreadsheet settings
type RosterConfig struct {
	Path           string `yaml:"path"`
	NoNameSentinel string `yaml:"no_name_sentinel"`
}

// TemplatesConfig contains template files settings
type TemplatesConfig struct {
	Dir     string            `yaml:"dir"`
	Subject string            `yaml:"subject"`
	Kinds   map[string]string `yaml:"kinds"` // Type column value -> template file
}

// AttachmentConfig describes the file attached to every message
type AttachmentConfig struct {
	Path     string `yaml:"path"`     // Empty disables the attachment
	Filename string `yaml:"filename"` // Name shown to the recipient
}

// TransportConfig selects and configures the mail sender
type TransportConfig struct {
	Type          string       `yaml:"type"`           // smtp, resend, ses
	Mode          string       `yaml:"mode"`           // production, sandbox, redirect
	RedirectTo    []string     `yaml:"redirect_to"`    // Used when mode=redirect
	RecordSandbox bool         `yaml:"record_sandbox"` // Count sandbox and redirect sends as sent
	SMTP          SMTPConfig   `yaml:"smtp"`
	Resend        ResendConfig `yaml:"resend"`
	SES           SESConfig    `yaml:"ses"`
}

// SMTPConfig contains SMTP submission settings
type SMTPConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Security string        `yaml:"security"` // tls, starttls, none
	Username string        `yaml:"username"` // Defaults to sender.email
	Hostname string        `yaml:"hostname"` // Name sent in EHLO
	Timeout  time.Duration `yaml:"timeout"`
}

// ResendConfig contains Resend API settings
type ResendConfig struct {
	APIKey string `yaml:"api_key"`
}

// SESConfig contains AWS SES settings
type SESConfig struct {
	Region  string `yaml:"region"`
	Profile string `yaml:"profile"`
}

// DKIMConfig contains DKIM signing settings
type DKIMConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Selector string `yaml:"selector"`
	KeyFile  string `yaml:"key_file"`
	Domain   string `yaml:"domain"`
}

// StorageConfig contains sent-record storage settings
type StorageConfig struct {
	Type   string `yaml:"type"`    // file, bolt
	Path   string `yaml:"path"`    // JSON list used by the file store
	DBPath string `yaml:"db_path"` // BoltDB used by the bolt store and sandbox captures
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MetricsConfig contains Prometheus textfile export settings
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // Empty disables export
}

// Load loads configuration from a YAML file. An empty path means defaults
// plus environment only.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv exports the variables of a dotenv file that are not already set
// in the environment. A missing file is ignored.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// applyEnv overrides file values with non-empty environment variables
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	set(&c.Sender.FullName, EnvFullName)
	set(&c.Event.Year, EnvYear)
	set(&c.Sender.Email, EnvEmail)
	set(&c.Sender.Password, EnvPassword)
	set(&c.Transport.Resend.APIKey, EnvResendAPIKey)
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.Sender.CC == nil {
		c.Sender.CC = []string{"v1startupfair@umich.edu"}
	}

	if c.Roster.Path == "" {
		c.Roster.Path = "companies.csv"
	}
	if c.Roster.NoNameSentinel == "" {
		c.Roster.NoNameSentinel = "NO_NAME"
	}

	if c.Templates.Dir == "" {
		c.Templates.Dir = "templates"
	}
	if c.Templates.Subject == "" {
		c.Templates.Subject = "Recruit top talent through V1 Startup Fair @ University of Michigan!"
	}
	if len(c.Templates.Kinds) == 0 {
		c.Templates.Kinds = map[string]string{
			"Regular":  "personal.html",
			"Small":    "personal.html",
			"Business": "business.html",
		}
	}

	if c.Attachment.Path == "" {
		c.Attachment.Path = "assets/prospectus.pdf"
	}
	if c.Attachment.Filename == "" {
		c.Attachment.Filename = "V1 Startup Fair Prospectus.pdf"
	}

	if c.Transport.Type == "" {
		c.Transport.Type = TransportSMTP
	}
	if c.Transport.Mode == "" {
		c.Transport.Mode = ModeProduction
	}
	if c.Transport.SMTP.Host == "" {
		c.Transport.SMTP.Host = "smtp.gmail.com"
	}
	if c.Transport.SMTP.Security == "" {
		c.Transport.SMTP.Security = "tls"
	}
	if c.Transport.SMTP.Port == 0 {
		switch c.Transport.SMTP.Security {
		case "starttls":
			c.Transport.SMTP.Port = 587
		case "none":
			c.Transport.SMTP.Port = 25
		default:
			c.Transport.SMTP.Port = 465
		}
	}
	if c.Transport.SMTP.Username == "" {
		c.Transport.SMTP.Username = c.Sender.Email
	}
	if c.Transport.SMTP.Hostname == "" {
		hostname, _ := os.Hostname()
		c.Transport.SMTP.Hostname = hostname
	}
	if c.Transport.SMTP.Timeout == 0 {
		c.Transport.SMTP.Timeout = 30 * time.Second
	}

	if c.Storage.Type == "" {
		c.Storage.Type = StorageFile
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "emails_sent.json"
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = "outreach.db"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Sender.FullName == "" {
		return fmt.Errorf("sender.full_name is required (or set %s)", EnvFullName)
	}
	if c.Event.Year == "" {
		return fmt.Errorf("event.year is required (or set %s)", EnvYear)
	}
	if c.Sender.Email == "" {
		return fmt.Errorf("sender.email is required (or set %s)", EnvEmail)
	}
	if _, err := mail.ParseAddress(c.Sender.Email); err != nil {
		return fmt.Errorf("invalid sender.email %q: %w", c.Sender.Email, err)
	}

	if err := c.validateTransport(); err != nil {
		return err
	}

	if err := c.validateDKIM(); err != nil {
		return err
	}

	if err := c.HeaderRules.Validate(); err != nil {
		return fmt.Errorf("invalid header_rules: %w", err)
	}

	validStorage := map[string]bool{StorageFile: true, StorageBolt: true}
	if !validStorage[c.Storage.Type] {
		return fmt.Errorf("invalid storage.type: %s (must be file or bolt)", c.Storage.Type)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging.format: %s (must be json or text)", c.Logging.Format)
	}

	return nil
}

// validateTransport validates the transport section and its credential
func (c *Config) validateTransport() error {
	t := c.Transport

	switch t.Type {
	case TransportSMTP:
		if c.Sender.Password == "" {
			return fmt.Errorf("sender.password is required for smtp transport (or set %s)", EnvPassword)
		}
		validSecurity := map[string]bool{"tls": true, "starttls": true, "none": true}
		if !validSecurity[t.SMTP.Security] {
			return fmt.Errorf("invalid transport.smtp.security: %s (must be tls, starttls, or none)", t.SMTP.Security)
		}
	case TransportResend:
		if t.Resend.APIKey == "" {
			return fmt.Errorf("transport.resend.api_key is required for resend transport (or set %s)", EnvResendAPIKey)
		}
	case TransportSES:
		// Credentials come from the AWS default chain
	default:
		return fmt.Errorf("invalid transport.type: %s (must be smtp, resend, or ses)", t.Type)
	}

	switch t.Mode {
	case ModeProduction, ModeSandbox:
	case ModeRedirect:
		if len(t.RedirectTo) == 0 {
			return fmt.Errorf("transport.redirect_to is required when mode is redirect")
		}
	default:
		return fmt.Errorf("transport.mode must be one of: production, sandbox, redirect")
	}

	return nil
}

// validateDKIM validates DKIM configuration
func (c *Config) validateDKIM() error {
	if !c.DKIM.Enabled {
		return nil
	}

	if c.DKIM.Selector == "" {
		return fmt.Errorf("dkim.selector is required when DKIM is enabled")
	}
	if c.DKIM.KeyFile == "" {
		return fmt.Errorf("dkim.key_file is required when DKIM is enabled")
	}
	if c.DKIM.Domain == "" {
		return fmt.Errorf("dkim.domain is required when DKIM is enabled")
	}

	return nil
}

// RecordSandbox reports whether sandbox and redirect sends are added to the
// sent-record. Off unless enabled, so a rehearsal never marks real contacts.
func (c *Config) RecordSandbox() bool {
	return c.Transport.Mode == ModeProduction || c.Transport.RecordSandbox
}

// NeedsDB reports whether the run needs the BoltDB file
func (c *Config) NeedsDB() bool {
	return c.Storage.Type == StorageBolt || c.Transport.Mode != ModeProduction
}
