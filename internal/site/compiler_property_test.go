package site

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestCompileProperties validates invariants of the page compiler over
// generated inputs.
func TestCompileProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234) // For reproducible results
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	dir := t.TempDir()
	tmplText := "<title><!-- TITLE --></title><div data-bg=\"<!-- BACKGROUND -->\"><!-- CONTENT --></div>"
	if err := os.WriteFile(filepath.Join(dir, "base.html"), []byte(tmplText), 0o644); err != nil {
		t.Fatal(err)
	}
	resolver := NewResolver(dir)

	stemGen := gen.RegexMatch(`[a-z][a-z0-9-]{0,20}`)
	bodyGen := gen.AnyString()

	// Property: compiling the same input twice yields byte-identical output
	properties.Property("compile is idempotent", prop.ForAll(
		func(stem, body string) bool {
			raw := fmt.Sprintf("<!-- TEMPLATE: base -->\n<!-- BACKGROUND: bg.png -->\n%s", body)

			first, err1 := Compile(stem, raw, resolver)
			second, err2 := Compile(stem, raw, resolver)
			if err1 != nil || err2 != nil {
				return false
			}
			if first.Skipped != second.Skipped {
				return false
			}
			if first.Skipped {
				return first.Reason == second.Reason
			}
			return first.Page.HTML == second.Page.HTML &&
				first.Page.OutputPath == second.Page.OutputPath
		},
		stemGen,
		bodyGen,
	))

	// Property: the background token always lands in the compiled output
	properties.Property("background token is substituted", prop.ForAll(
		func(stem string, token string) bool {
			raw := fmt.Sprintf("<!-- TEMPLATE: base -->\n<!-- BACKGROUND: %s -->\nbody", token)
			result, err := Compile(stem, raw, resolver)
			if err != nil || result.Skipped {
				return false
			}
			return result.Page.HTML == fmt.Sprintf(
				"<title>%s</title><div data-bg=\"%s\">body</div>", DeriveTitle(stem), token)
		},
		stemGen,
		gen.RegexMatch(`[a-z0-9]{1,10}\.(png|jpg|webp)`),
	))

	properties.TestingRun(t)
}
