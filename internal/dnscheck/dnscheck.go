// Package dnscheck checks that the sending domain publishes the records
// receivers use to authenticate outreach mail.
package dnscheck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
)

// Domain validation errors
var (
	ErrInvalidDomain   = errors.New("invalid domain name")
	ErrInvalidSelector = errors.New("invalid selector")
)

// Check statuses
const (
	StatusOK       = "ok"
	StatusWarning  = "warning"
	StatusError    = "error"
	StatusNotFound = "not_found"
)

// domainRegex validates domain name format (RFC 1035)
var domainRegex = regexp.MustCompile(`^(?i)[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)*$`)

var selectorRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

// ValidateDomain checks if domain name is valid
func ValidateDomain(domain string) error {
	if domain == "" || len(domain) > 253 || !domainRegex.MatchString(domain) {
		return ErrInvalidDomain
	}
	return nil
}

// ValidateSelector checks if DKIM selector is valid
func ValidateSelector(selector string) error {
	if len(selector) > 63 || !selectorRegex.MatchString(selector) {
		return ErrInvalidSelector
	}
	return nil
}

// Resolver looks up TXT records
type Resolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// CheckResult represents a single DNS check result
type CheckResult struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message,omitempty"`
}

// Report contains all check results for a sending domain
type Report struct {
	Domain  string        `json:"domain"`
	Results []CheckResult `json:"results"`
}

// OK reports whether no check failed. Warnings and missing optional
// records do not count as failures.
func (r *Report) OK() bool {
	for _, res := range r.Results {
		if res.Status == StatusError {
			return false
		}
	}
	return true
}

// Options selects the DKIM record to verify
type Options struct {
	// Selector enables the DKIM check when set
	Selector string

	// ExpectedDKIM is the record value generated from the local key. When
	// set, the published public key must match it.
	ExpectedDKIM string
}

// Checker runs the checks against a resolver
type Checker struct {
	resolver Resolver
}

// NewChecker creates a checker. A nil resolver uses net.DefaultResolver.
func NewChecker(resolver Resolver) *Checker {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &Checker{resolver: resolver}
}

// Check validates SPF, DMARC and optionally DKIM for domain
func (c *Checker) Check(ctx context.Context, domain string, opts Options) (*Report, error) {
	if err := ValidateDomain(domain); err != nil {
		return nil, err
	}
	if opts.Selector != "" {
		if err := ValidateSelector(opts.Selector); err != nil {
			return nil, err
		}
	}

	report := &Report{Domain: domain}
	report.Results = append(report.Results, c.CheckSPF(ctx, domain))
	if opts.Selector != "" {
		report.Results = append(report.Results, c.CheckDKIM(ctx, domain, opts.Selector, opts.ExpectedDKIM))
	}
	report.Results = append(report.Results, c.CheckDMARC(ctx, domain))

	return report, nil
}

// lookup returns the TXT records of name. A missing name yields no records
// and no error.
func (c *Checker) lookup(ctx context.Context, name string) ([]string, error) {
	records, err := c.resolver.LookupTXT(ctx, name)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, nil
		}
		return nil, err
	}
	return records, nil
}

// CheckSPF checks SPF record for a domain
func (c *Checker) CheckSPF(ctx context.Context, domain string) CheckResult {
	result := CheckResult{Type: "SPF", Name: domain}

	records, err := c.lookup(ctx, domain)
	if err != nil {
		result.Status = StatusError
		result.Message = fmt.Sprintf("Lookup failed: %v", err)
		return result
	}

	var spf []string
	for _, txt := range records {
		if strings.HasPrefix(txt, "v=spf1") {
			spf = append(spf, txt)
		}
	}

	switch {
	case len(spf) == 0:
		result.Status = StatusNotFound
		result.Message = "No SPF record found, receivers may treat messages as spam"
	case len(spf) > 1:
		result.Status = StatusError
		result.Value = strings.Join(spf, " | ")
		result.Message = "Multiple SPF records, receivers will reject the policy"
	default:
		result.Value = spf[0]
		switch {
		case strings.Contains(spf[0], "+all"):
			result.Status = StatusWarning
			result.Message = "SPF uses +all (allows any sender), consider ~all or -all"
		case strings.Contains(spf[0], "-all"):
			result.Status = StatusOK
			result.Message = "SPF configured with strict policy (-all)"
		case strings.Contains(spf[0], "~all"):
			result.Status = StatusOK
			result.Message = "SPF configured with soft fail (~all)"
		default:
			result.Status = StatusWarning
			result.Message = "SPF record has no all mechanism"
		}
	}

	return result
}

// CheckDKIM checks the DKIM record for selector. expected is compared by
// public key when not empty.
func (c *Checker) CheckDKIM(ctx context.Context, domain, selector, expected string) CheckResult {
	name := fmt.Sprintf("%s._domainkey.%s", selector, domain)
	result := CheckResult{Type: "DKIM", Name: name}

	records, err := c.lookup(ctx, name)
	if err != nil {
		result.Status = StatusError
		result.Message = fmt.Sprintf("Lookup failed: %v", err)
		return result
	}
	if len(records) == 0 {
		result.Status = StatusNotFound
		result.Message = fmt.Sprintf("No DKIM record found for selector '%s'", selector)
		if expected != "" {
			result.Status = StatusError
			result.Message += ", signed messages will fail verification"
		}
		return result
	}

	// Long keys are split across strings
	full := strings.Join(records, "")
	result.Value = truncateString(full, 100)

	tags := parseTags(full)
	if tags["v"] != "" && tags["v"] != "DKIM1" {
		result.Status = StatusWarning
		result.Message = "TXT record found but doesn't appear to be a valid DKIM record"
		return result
	}
	if tags["p"] == "" {
		result.Status = StatusError
		result.Message = "DKIM record has no public key (p=), the key is revoked"
		return result
	}

	if expected != "" && parseTags(expected)["p"] != tags["p"] {
		result.Status = StatusError
		result.Message = "Published public key does not match the configured private key"
		return result
	}

	result.Status = StatusOK
	keyType := tags["k"]
	if keyType == "" {
		keyType = "rsa"
	}
	result.Message = fmt.Sprintf("DKIM configured with %s key", keyType)
	if expected != "" {
		result.Message += ", matches the configured private key"
	}
	return result
}

// CheckDMARC checks DMARC record for a domain
func (c *Checker) CheckDMARC(ctx context.Context, domain string) CheckResult {
	name := "_dmarc." + domain
	result := CheckResult{Type: "DMARC", Name: name}

	records, err := c.lookup(ctx, name)
	if err != nil {
		result.Status = StatusError
		result.Message = fmt.Sprintf("Lookup failed: %v", err)
		return result
	}
	if len(records) == 0 {
		result.Status = StatusNotFound
		result.Message = "No DMARC record found (recommended to add)"
		return result
	}

	full := strings.Join(records, "")
	result.Value = full

	if !strings.HasPrefix(full, "v=DMARC1") {
		result.Status = StatusWarning
		result.Message = "TXT record found but doesn't appear to be a valid DMARC record"
		return result
	}

	switch parseTags(full)["p"] {
	case "reject":
		result.Status = StatusOK
		result.Message = "DMARC configured with reject policy (strict)"
	case "quarantine":
		result.Status = StatusOK
		result.Message = "DMARC configured with quarantine policy"
	case "none":
		result.Status = StatusWarning
		result.Message = "DMARC configured with none policy (monitoring only)"
	default:
		result.Status = StatusWarning
		result.Message = "DMARC record has no valid policy (p=)"
	}
	return result
}

// parseTags splits a "k=v; k=v" record. Whitespace inside values is removed
// as DKIM allows folding in base64 data.
func parseTags(record string) map[string]string {
	tags := make(map[string]string)
	for _, part := range strings.Split(record, ";") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		tags[strings.TrimSpace(key)] = strings.Join(strings.Fields(value), "")
	}
	return tags
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
