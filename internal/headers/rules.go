package headers

import (
	"fmt"
	"net/textproto"
)

// Action defines the type of header manipulation
type Action string

const (
	ActionRemove  Action = "remove"
	ActionReplace Action = "replace"
	ActionAdd     Action = "add"
)

// Rule defines a header manipulation rule
type Rule struct {
	Action  Action   `yaml:"action" json:"action"`
	Headers []string `yaml:"headers,omitempty" json:"headers,omitempty"` // For remove action
	Header  string   `yaml:"header,omitempty" json:"header,omitempty"`   // For replace/add
	Value   string   `yaml:"value,omitempty" json:"value,omitempty"`     // For replace/add, may use placeholders
}

// Config contains header rules configuration
type Config struct {
	// Global rules applied to all messages
	Global []Rule `yaml:"global,omitempty" json:"global,omitempty"`

	// Rules applied to messages for recipients at a domain
	Domains map[string][]Rule `yaml:"domains,omitempty" json:"domains,omitempty"`
}

// GetRulesForDomain returns rules for a specific domain (global + domain-specific)
func (c *Config) GetRulesForDomain(domain string) []Rule {
	if c == nil {
		return nil
	}

	var rules []Rule
	rules = append(rules, c.Global...)
	if domainRules, ok := c.Domains[domain]; ok {
		rules = append(rules, domainRules...)
	}
	return rules
}

// HasRules returns true if any rules are configured
func (c *Config) HasRules() bool {
	if c == nil {
		return false
	}
	if len(c.Global) > 0 {
		return true
	}
	for _, rules := range c.Domains {
		if len(rules) > 0 {
			return true
		}
	}
	return false
}

// protected headers are written by the encoder and cannot be changed by rules
var protected = map[string]bool{
	"From":                      true,
	"To":                        true,
	"Cc":                        true,
	"Subject":                   true,
	"Date":                      true,
	"Message-Id":                true,
	"Mime-Version":              true,
	"Content-Type":              true,
	"Content-Transfer-Encoding": true,
	"X-Mailer":                  true,
}

// Validate checks every rule
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	check := func(where string, rules []Rule) error {
		for i, r := range rules {
			if err := r.Validate(); err != nil {
				return fmt.Errorf("%s rule %d: %w", where, i+1, err)
			}
		}
		return nil
	}

	if err := check("global", c.Global); err != nil {
		return err
	}
	for domain, rules := range c.Domains {
		if err := check(domain, rules); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the rule shape
func (r Rule) Validate() error {
	switch r.Action {
	case ActionRemove:
		if len(r.Headers) == 0 {
			return fmt.Errorf("remove needs headers")
		}
		for _, h := range r.Headers {
			if protected[textproto.CanonicalMIMEHeaderKey(h)] {
				return fmt.Errorf("header %s cannot be removed", h)
			}
		}
	case ActionReplace, ActionAdd:
		if r.Header == "" {
			return fmt.Errorf("%s needs a header name", r.Action)
		}
		if protected[textproto.CanonicalMIMEHeaderKey(r.Header)] {
			return fmt.Errorf("header %s cannot be set by rules", r.Header)
		}
	default:
		return fmt.Errorf("unknown action %q", r.Action)
	}
	return nil
}
