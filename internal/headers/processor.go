// Package headers applies configured header rules to composed messages.
package headers

import (
	"net/textproto"
	"strings"

	"github.com/foxzi/outreach/internal/email"
	"github.com/foxzi/outreach/internal/message"
)

// Placeholders expanded in rule values
const (
	PlaceholderRecipient = "{recipient}"
	PlaceholderSender    = "{sender}"
	PlaceholderCompany   = "{company}"
)

// Processor applies header rules to messages
type Processor struct {
	config *Config
}

// NewProcessor creates a new header processor
func NewProcessor(cfg *Config) *Processor {
	return &Processor{config: cfg}
}

// Apply applies the rules for the first recipient's domain to msg.Headers.
// company fills the {company} placeholder.
func (p *Processor) Apply(msg *message.Email, company string) {
	if p == nil || !p.config.HasRules() || len(msg.To) == 0 {
		return
	}

	rules := p.config.GetRulesForDomain(email.ExtractDomain(msg.To[0]))
	if len(rules) == 0 {
		return
	}

	if msg.Headers == nil {
		msg.Headers = make(map[string]string)
	}

	expand := strings.NewReplacer(
		PlaceholderRecipient, msg.To[0],
		PlaceholderSender, msg.From,
		PlaceholderCompany, company,
	)

	for _, rule := range rules {
		applyRule(msg.Headers, rule, expand)
	}
}

// applyRule applies a single rule to the header map
func applyRule(headers map[string]string, rule Rule, expand *strings.Replacer) {
	switch rule.Action {
	case ActionRemove:
		for _, name := range rule.Headers {
			deleteHeader(headers, name)
		}
	case ActionReplace:
		if rule.Header == "" {
			return
		}
		deleteHeader(headers, rule.Header)
		headers[textproto.CanonicalMIMEHeaderKey(rule.Header)] = expand.Replace(rule.Value)
	case ActionAdd:
		// A message carries each extra header once; add keeps the first value
		if rule.Header == "" || hasHeader(headers, rule.Header) {
			return
		}
		headers[textproto.CanonicalMIMEHeaderKey(rule.Header)] = expand.Replace(rule.Value)
	}
}

// deleteHeader removes name case-insensitively
func deleteHeader(headers map[string]string, name string) {
	for k := range headers {
		if strings.EqualFold(k, name) {
			delete(headers, k)
		}
	}
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
