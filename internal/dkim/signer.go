// Package dkim signs outgoing messages and manages DKIM keys.
package dkim

import (
	"bytes"
	"crypto"
	"fmt"

	"github.com/emersion/go-msgauth/dkim"
)

// SignedHeaders are the message headers covered by the signature
var SignedHeaders = []string{
	"From", "To", "Cc", "Subject", "Date", "Message-ID", "MIME-Version", "Content-Type",
}

// Signer signs encoded messages with DKIM
type Signer struct {
	key      crypto.Signer
	domain   string
	selector string
}

// NewSigner creates a signer for domain/selector. key is an RSA or Ed25519
// private key.
func NewSigner(key crypto.Signer, domain, selector string) *Signer {
	return &Signer{
		key:      key,
		domain:   domain,
		selector: selector,
	}
}

// NewSignerFromFile creates a signer from a PEM key file
func NewSignerFromFile(keyFile, domain, selector string) (*Signer, error) {
	key, err := LoadPrivateKey(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load DKIM key: %w", err)
	}

	return NewSigner(key, domain, selector), nil
}

// Sign returns message with a DKIM-Signature header prepended
func (s *Signer) Sign(message []byte) ([]byte, error) {
	options := &dkim.SignOptions{
		Domain:                 s.domain,
		Selector:               s.selector,
		Signer:                 s.key,
		Hash:                   crypto.SHA256,
		HeaderKeys:             SignedHeaders,
		HeaderCanonicalization: dkim.CanonicalizationRelaxed,
		BodyCanonicalization:   dkim.CanonicalizationRelaxed,
	}

	var signed bytes.Buffer
	if err := dkim.Sign(&signed, bytes.NewReader(message), options); err != nil {
		return nil, fmt.Errorf("dkim: %w", err)
	}

	return signed.Bytes(), nil
}

// Domain returns the signing domain
func (s *Signer) Domain() string {
	return s.domain
}

// Selector returns the DNS selector
func (s *Signer) Selector() string {
	return s.selector
}
