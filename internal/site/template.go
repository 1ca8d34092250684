// Package site implements the page templating model: loading named
// templates, parsing the two-directive page prologue, and compiling a page
// against its template into final HTML. Everything in this package is a pure
// transform; writing output is the build pipeline's job.
package site

import (
	"fmt"
	"os"
	"path/filepath"
)

// Substitution markers recognized inside template documents. Each is
// replaced at most once per compile; an absent marker is left verbatim.
const (
	MarkerTitle      = "<!-- TITLE -->"
	MarkerBackground = "<!-- BACKGROUND -->"
	MarkerContent    = "<!-- CONTENT -->"
)

// Template is a named template document loaded from the templates root.
type Template struct {
	Name string
	Text string
}

// TemplateNotFoundError reports a template reference that has no backing
// file under the templates root.
type TemplateNotFoundError struct {
	Name string
	Path string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template %q not found at %s", e.Name, e.Path)
}

// Resolver loads templates by name from a fixed root directory.
type Resolver struct {
	root string
	ext  string
}

// NewResolver creates a resolver reading <root>/<name>.html documents.
func NewResolver(root string) *Resolver {
	return &Resolver{root: root, ext: ".html"}
}

// Load reads the named template from disk. A missing file yields a
// *TemplateNotFoundError; other read errors are returned as-is.
func (r *Resolver) Load(name string) (*Template, error) {
	path := filepath.Join(r.root, name+r.ext)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &TemplateNotFoundError{Name: name, Path: path}
		}
		return nil, fmt.Errorf("reading template %q: %w", name, err)
	}
	return &Template{Name: name, Text: string(data)}, nil
}
