// Package message defines the outgoing email and encodes it as an RFC 5322
// MIME message.
package message

import (
	"fmt"
	"mime"
	"net/mail"
	"os"
	"path/filepath"
)

// Email is a fully prepared outgoing message
type Email struct {
	From        string // Envelope and header sender address
	FromName    string // Display name
	To          []string
	Cc          []string
	Subject     string
	HTML        string
	Attachments []Attachment
	Headers     map[string]string // Extra headers
}

// Attachment is a file attached to the message
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// AllRecipients returns the envelope recipients (To followed by Cc)
func (e *Email) AllRecipients() []string {
	out := make([]string, 0, len(e.To)+len(e.Cc))
	out = append(out, e.To...)
	out = append(out, e.Cc...)
	return out
}

// FromHeader returns the formatted From header value
func (e *Email) FromHeader() string {
	addr := mail.Address{Name: e.FromName, Address: e.From}
	return addr.String()
}

// Validate performs basic shape checks before sending
func (e *Email) Validate() error {
	if e.From == "" {
		return fmt.Errorf("message has no sender")
	}
	if len(e.To) == 0 {
		return fmt.Errorf("message has no recipients")
	}
	if e.Subject == "" {
		return fmt.Errorf("message has no subject")
	}
	return nil
}

// LoadAttachment reads a file to attach. filename is the name shown to the
// recipient; empty means the base name of path.
func LoadAttachment(path, filename string) (*Attachment, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}

	if filename == "" {
		filename = filepath.Base(path)
	}

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(path))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &Attachment{
		Filename:    filename,
		ContentType: contentType,
		Content:     content,
	}, nil
}
