package site

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Page is one parsed page source: its two prologue directives and the
// remaining body with the directive lines stripped.
type Page struct {
	Stem       string
	Template   string
	Background string
	Content    string
}

// Page prologue: the first two non-empty lines must be the TEMPLATE and
// BACKGROUND directives, in that order, each on its own line as a markup
// comment. Anything else skips the page rather than guessing.
var (
	templateDirectiveRe   = regexp.MustCompile(`^\s*<!--\s*TEMPLATE:\s*(\w+)\s*-->\s*$`)
	backgroundDirectiveRe = regexp.MustCompile(`^\s*<!--\s*BACKGROUND:\s*([\w.-]+)\s*-->\s*$`)
)

// ParsePage extracts the directive prologue from raw page text. A page whose
// prologue is malformed or incomplete is reported as skipped with a
// diagnostic naming the missing directive; that is not an error.
func ParsePage(stem, raw string) (*Page, string) {
	lines := strings.Split(raw, "\n")
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i >= len(lines) || !templateDirectiveRe.MatchString(lines[i]) {
		return nil, "missing TEMPLATE directive"
	}
	templateName := templateDirectiveRe.FindStringSubmatch(lines[i])[1]
	i++

	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i >= len(lines) || !backgroundDirectiveRe.MatchString(lines[i]) {
		return nil, "missing BACKGROUND directive"
	}
	background := backgroundDirectiveRe.FindStringSubmatch(lines[i])[1]
	i++

	return &Page{
		Stem:       stem,
		Template:   templateName,
		Background: background,
		Content:    strings.Join(lines[i:], "\n"),
	}, ""
}

// DeriveTitle turns a page stem into a display title: hyphens become
// spaces and the first letter is capitalized. The index page is always
// titled "Home".
func DeriveTitle(stem string) string {
	if strings.EqualFold(stem, "index") {
		return "Home"
	}
	title := strings.ReplaceAll(stem, "-", " ")
	if title == "" {
		return title
	}
	r, size := utf8.DecodeRuneInString(title)
	return string(unicode.ToUpper(r)) + title[size:]
}

// OutputPath maps a page stem to its location under the build root. The
// index page lands at the root; every other page gets its own directory so
// it is addressable as /<stem>/.
func OutputPath(stem string) string {
	if strings.EqualFold(stem, "index") {
		return "index.html"
	}
	return filepath.Join(stem, "index.html")
}
