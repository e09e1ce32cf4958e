package message

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	gomessage "github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
)

// ErrNoHTML is returned when a message has no text/html part
var ErrNoHTML = errors.New("message has no html part")

func newReader(data []byte) (*mail.Reader, error) {
	r, err := mail.CreateReader(bytes.NewReader(data))
	if err != nil && !gomessage.IsUnknownCharset(err) {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return r, nil
}

// Subject extracts the decoded Subject header from an encoded message
func Subject(data []byte) string {
	r, err := newReader(data)
	if err != nil {
		return ""
	}
	defer r.Close()

	subject, err := r.Header.Subject()
	if err != nil {
		return r.Header.Get("Subject")
	}
	return subject
}

// HTMLBody extracts the first text/html part of an encoded message with its
// transfer encoding removed
func HTMLBody(data []byte) (string, error) {
	r, err := newReader(data)
	if err != nil {
		return "", err
	}
	defer r.Close()

	for {
		part, err := r.NextPart()
		if errors.Is(err, io.EOF) {
			return "", ErrNoHTML
		}
		if err != nil && !gomessage.IsUnknownCharset(err) {
			return "", fmt.Errorf("failed to read part: %w", err)
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		if mediaType, _, _ := h.ContentType(); mediaType != "text/html" {
			continue
		}

		content, err := io.ReadAll(part.Body)
		if err != nil {
			return "", fmt.Errorf("failed to decode html part: %w", err)
		}
		return string(content), nil
	}
}
