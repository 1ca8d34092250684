package site

import "strings"

// CompiledPage is the result of one successful compile: the final HTML and
// the path it should be written to, relative to the build root.
type CompiledPage struct {
	Stem       string
	HTML       string
	OutputPath string
}

// CompileResult distinguishes a compiled page from a skipped one. Skips are
// expected during normal operation (half-written pages, renamed templates)
// and must never abort a build.
type CompileResult struct {
	Page    *CompiledPage
	Skipped bool
	Reason  string
}

// Compile parses one page source and merges it into its template. Missing
// directives and unresolvable templates skip the page; only unexpected I/O
// failures from the resolver surface as errors.
func Compile(stem, raw string, resolver *Resolver) (CompileResult, error) {
	page, reason := ParsePage(stem, raw)
	if page == nil {
		return CompileResult{Skipped: true, Reason: reason}, nil
	}

	tmpl, err := resolver.Load(page.Template)
	if err != nil {
		if notFound, ok := err.(*TemplateNotFoundError); ok {
			return CompileResult{Skipped: true, Reason: notFound.Error()}, nil
		}
		return CompileResult{}, err
	}

	html := tmpl.Text
	html = strings.Replace(html, MarkerTitle, DeriveTitle(stem), 1)
	html = strings.Replace(html, MarkerBackground, page.Background, 1)
	html = strings.Replace(html, MarkerContent, page.Content, 1)

	return CompileResult{
		Page: &CompiledPage{
			Stem:       stem,
			HTML:       html,
			OutputPath: OutputPath(stem),
		},
	}, nil
}
