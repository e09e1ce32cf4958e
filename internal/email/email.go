// Package email provides address helpers shared by the senders and the CLI.
package email

import (
	"net/mail"
	"strings"
)

// ExtractDomain returns the lowercased domain part of an address, or an
// empty string when there is none.
func ExtractDomain(address string) string {
	if addr, err := mail.ParseAddress(address); err == nil {
		address = addr.Address
	}
	at := strings.LastIndex(address, "@")
	if at <= 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(address[at+1:])
}

// ExtractDomainOrDefault is ExtractDomain with a fallback value
func ExtractDomainOrDefault(address, fallback string) string {
	if domain := ExtractDomain(address); domain != "" {
		return domain
	}
	return fallback
}

// Valid reports whether s is a bare address (no display name) that
// net/mail accepts.
func Valid(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s
}
