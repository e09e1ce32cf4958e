package email

import "testing"

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		name     string
		address  string
		expected string
	}{
		{"simple", "pat@acme.com", "acme.com"},
		{"with name", "Pat Doe <pat@acme.com>", "acme.com"},
		{"uppercase", "pat@ACME.COM", "acme.com"},
		{"subdomain", "pat@mail.acme.com", "mail.acme.com"},
		{"malformed still split", "pat@@acme.com", "acme.com"},
		{"no at", "invalid", ""},
		{"empty local part", "@acme.com", ""},
		{"empty domain", "pat@", ""},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractDomain(tc.address); got != tc.expected {
				t.Errorf("ExtractDomain(%q) = %q, want %q", tc.address, got, tc.expected)
			}
		})
	}
}

func TestExtractDomainOrDefault(t *testing.T) {
	if got := ExtractDomainOrDefault("pat@acme.com", "localhost"); got != "acme.com" {
		t.Errorf("ExtractDomainOrDefault() = %q, want acme.com", got)
	}
	if got := ExtractDomainOrDefault("invalid", "localhost"); got != "localhost" {
		t.Errorf("ExtractDomainOrDefault() = %q, want localhost", got)
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		address string
		want    bool
	}{
		{"pat@acme.com", true},
		{"first.last+tag@sub.acme.com", true},
		{"Pat <pat@acme.com>", false},
		{"pat", false},
		{"pat@", false},
		{"", false},
	}

	for _, tc := range tests {
		if got := Valid(tc.address); got != tc.want {
			t.Errorf("Valid(%q) = %v, want %v", tc.address, got, tc.want)
		}
	}
}
