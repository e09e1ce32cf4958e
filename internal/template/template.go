package template

import (
	"errors"
	"strings"
)

// Placeholder names available to templates
const (
	VarGreeting  = "Greeting"
	VarFullName  = "FullName"
	VarYear      = "Year"
	VarCompany   = "Company"
	VarFirstName = "FirstName"
)

var (
	// ErrUnknownKind is returned when no template is configured for a kind
	ErrUnknownKind = errors.New("unknown template kind")
	// ErrTemplateNotFound is returned when a template file cannot be read
	ErrTemplateNotFound = errors.New("template not found")
)

// Template is the source of one template kind
type Template struct {
	Kind    string
	File    string
	Subject string
	HTML    string
}

// RenderResult contains rendered template output
type RenderResult struct {
	Subject string
	HTML    string
}

// Params are the per-recipient values substituted into a template
type Params struct {
	SenderFullName string
	Year           string
	Company        string
	RecipientName  string
}

// Data builds the placeholder map. sentinel is the recipient name that
// means "no specific name".
func (p Params) Data(sentinel string) map[string]any {
	return map[string]any{
		VarGreeting:  Greeting(p.RecipientName, sentinel),
		VarFullName:  p.SenderFullName,
		VarYear:      p.Year,
		VarCompany:   p.Company,
		VarFirstName: FirstName(p.SenderFullName),
	}
}

// Greeting returns "Hello" for the sentinel name and "Hello <name>" otherwise
func Greeting(recipientName, sentinel string) string {
	if recipientName == sentinel || recipientName == "" {
		return "Hello"
	}
	return "Hello " + recipientName
}

// FirstName returns the first whitespace-delimited token of fullName
func FirstName(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
