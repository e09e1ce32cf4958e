package message

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/foxzi/outreach/internal/email"
)

// Signer signs an encoded message, e.g. with DKIM
type Signer interface {
	Sign(message []byte) ([]byte, error)
}

// Encoder encodes Email values as MIME messages
type Encoder struct {
	mailer string
	signer Signer
	now    func() time.Time
	newID  func() string
}

// NewEncoder creates an encoder. mailer is sent as X-Mailer when not empty.
func NewEncoder(mailer string) *Encoder {
	return &Encoder{
		mailer: mailer,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

// SetSigner sets the signer applied to every encoded message
func (e *Encoder) SetSigner(s Signer) {
	e.signer = s
}

// Encode renders msg as an RFC 5322 message with CRLF line endings
func (e *Encoder) Encode(msg *Email) ([]byte, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	h := e.header(msg)

	var buf bytes.Buffer
	if len(msg.Attachments) == 0 {
		h.SetContentType("text/html", map[string]string{"charset": "utf-8"})
		h.Set("Content-Transfer-Encoding", "quoted-printable")
		w, err := mail.CreateSingleInlineWriter(&buf, h)
		if err != nil {
			return nil, fmt.Errorf("failed to create message: %w", err)
		}
		if err := writeClose(w, []byte(msg.HTML)); err != nil {
			return nil, fmt.Errorf("failed to write html body: %w", err)
		}
	} else if err := writeMixed(&buf, h, msg); err != nil {
		return nil, err
	}

	data := buf.Bytes()
	if e.signer != nil {
		signed, err := e.signer.Sign(data)
		if err != nil {
			return nil, fmt.Errorf("failed to sign message: %w", err)
		}
		data = signed
	}

	return data, nil
}

// header builds the top-level header. Extra headers go in a stable order.
func (e *Encoder) header(msg *Email) mail.Header {
	var h mail.Header
	h.SetAddressList("From", []*mail.Address{{Name: msg.FromName, Address: msg.From}})
	h.SetAddressList("To", addressList(msg.To))
	if len(msg.Cc) > 0 {
		h.SetAddressList("Cc", addressList(msg.Cc))
	}
	h.SetSubject(sanitize(msg.Subject))
	h.SetDate(e.now())
	h.SetMessageID(e.newID() + "@" + email.ExtractDomainOrDefault(msg.From, "localhost"))
	h.Set("MIME-Version", "1.0")
	if e.mailer != "" {
		h.Set("X-Mailer", e.mailer)
	}

	keys := make([]string, 0, len(msg.Headers))
	for k := range msg.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Set(k, sanitize(msg.Headers[k]))
	}
	return h
}

// writeMixed writes a multipart/mixed body: the HTML part then attachments
func writeMixed(buf *bytes.Buffer, h mail.Header, msg *Email) error {
	mw, err := mail.CreateWriter(buf, h)
	if err != nil {
		return fmt.Errorf("failed to create multipart body: %w", err)
	}

	var ih mail.InlineHeader
	ih.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	ih.Set("Content-Transfer-Encoding", "quoted-printable")
	w, err := mw.CreateSingleInline(ih)
	if err != nil {
		return fmt.Errorf("failed to create html part: %w", err)
	}
	if err := writeClose(w, []byte(msg.HTML)); err != nil {
		return fmt.Errorf("failed to write html part: %w", err)
	}

	for _, a := range msg.Attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		var ah mail.AttachmentHeader
		ah.Set("Content-Type", contentType)
		ah.Set("Content-Transfer-Encoding", "base64")
		ah.SetFilename(a.Filename)
		w, err := mw.CreateAttachment(ah)
		if err != nil {
			return fmt.Errorf("failed to create attachment part: %w", err)
		}
		if err := writeClose(w, a.Content); err != nil {
			return fmt.Errorf("failed to write attachment %s: %w", a.Filename, err)
		}
	}

	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to close multipart body: %w", err)
	}
	return nil
}

func writeClose(w io.WriteCloser, data []byte) error {
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// sanitize strips line breaks from header values to prevent header injection
func sanitize(value string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(value)
}

// addressList parses addresses, keeping unparsable ones as bare addresses
func addressList(addrs []string) []*mail.Address {
	out := make([]*mail.Address, len(addrs))
	for i, a := range addrs {
		if parsed, err := mail.ParseAddress(a); err == nil {
			out[i] = parsed
			continue
		}
		out[i] = &mail.Address{Address: a}
	}
	return out
}
