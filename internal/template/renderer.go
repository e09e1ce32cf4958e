package template

import (
	"fmt"
	"io/fs"
	"sort"
)

// RendererConfig configures the renderer
type RendererConfig struct {
	Kinds          map[string]string // Kind (Type column value) -> template file
	Subject        string            // Subject shared by every kind
	NoNameSentinel string
}

// Renderer turns a kind and per-recipient params into a subject and body
type Renderer struct {
	templates map[string]*Template
	compiled  map[string]*Compiled
	sentinel  string
}

// NewRenderer reads and compiles every configured template file from fsys.
// Kinds sharing a file share one compiled document.
func NewRenderer(fsys fs.FS, cfg RendererConfig) (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*Template, len(cfg.Kinds)),
		compiled:  make(map[string]*Compiled, len(cfg.Kinds)),
		sentinel:  cfg.NoNameSentinel,
	}

	byFile := make(map[string]*Compiled)
	for kind, file := range cfg.Kinds {
		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTemplateNotFound, file, err)
		}

		tmpl := &Template{
			Kind:    kind,
			File:    file,
			Subject: cfg.Subject,
			HTML:    string(content),
		}

		c, ok := byFile[file]
		if !ok {
			c, err = Compile(tmpl)
			if err != nil {
				return nil, fmt.Errorf("template %s (%s): %w", kind, file, err)
			}
			byFile[file] = c
		}

		r.templates[kind] = tmpl
		r.compiled[kind] = c
	}

	return r, nil
}

// Render renders the template configured for kind
func (r *Renderer) Render(kind string, p Params) (*RenderResult, error) {
	c, ok := r.compiled[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	result, err := c.Execute(p.Data(r.sentinel))
	if err != nil {
		return nil, fmt.Errorf("template %s (%s): %w", kind, r.templates[kind].File, err)
	}
	return result, nil
}

// Has reports whether kind has a template
func (r *Renderer) Has(kind string) bool {
	_, ok := r.templates[kind]
	return ok
}

// Kinds returns the configured kinds sorted by name
func (r *Renderer) Kinds() []string {
	kinds := make([]string, 0, len(r.templates))
	for kind := range r.templates {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
