package template

import (
	"bytes"
	"fmt"
	htmlTemplate "html/template"
	textTemplate "text/template"
)

// Compiled is a parsed template ready to execute. Executing it with data
// that lacks a referenced placeholder fails.
type Compiled struct {
	subject *textTemplate.Template
	html    *htmlTemplate.Template
}

// Compile parses the subject as text and the body as auto-escaped HTML
func Compile(tmpl *Template) (*Compiled, error) {
	subject, err := textTemplate.New("subject").Option("missingkey=error").Parse(tmpl.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid subject template: %w", err)
	}

	html, err := htmlTemplate.New(tmpl.Kind).Option("missingkey=error").Parse(tmpl.HTML)
	if err != nil {
		return nil, fmt.Errorf("invalid html template: %w", err)
	}

	return &Compiled{subject: subject, html: html}, nil
}

// Execute fills the placeholders with data
func (c *Compiled) Execute(data map[string]any) (*RenderResult, error) {
	var subject, body bytes.Buffer

	if err := c.subject.Execute(&subject, data); err != nil {
		return nil, fmt.Errorf("failed to render subject: %w", err)
	}
	if err := c.html.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("failed to render html: %w", err)
	}

	return &RenderResult{Subject: subject.String(), HTML: body.String()}, nil
}
