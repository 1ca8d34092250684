package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanza-dev/stanza/internal/config"
	"github.com/stanza-dev/stanza/internal/logging"
)

// testProject lays out a project skeleton in a temp dir and returns its
// config. Individual tests add or remove pieces before running.
func testProject(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		Site: config.SiteConfig{
			PagesDir:     filepath.Join(root, "pages"),
			TemplatesDir: filepath.Join(root, "templates"),
			DataDir:      filepath.Join(root, "data"),
			BuildDir:     filepath.Join(root, "build"),
		},
	}
	require.NoError(t, os.MkdirAll(cfg.Site.PagesDir, 0o755))
	require.NoError(t, os.MkdirAll(cfg.Site.TemplatesDir, 0o755))
	return cfg
}

func testLogger() logging.Logger {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LevelError
	return logging.NewLogger(cfg)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRunBuildsPages(t *testing.T) {
	cfg := testProject(t)
	writeFile(t, filepath.Join(cfg.Site.TemplatesDir, "base.html"),
		"<title><!-- TITLE --></title><!-- CONTENT -->")
	writeFile(t, filepath.Join(cfg.Site.PagesDir, "index.html"),
		"<!-- TEMPLATE: base -->\n<!-- BACKGROUND: bg.png -->\n<h1>Hi</h1>")
	writeFile(t, filepath.Join(cfg.Site.PagesDir, "about.html"),
		"<!-- TEMPLATE: base -->\n<!-- BACKGROUND: bg.png -->\n<h1>About</h1>")

	outcome := New(cfg, testLogger()).Run(context.Background())
	require.True(t, outcome.Success, outcome.Log)

	index, err := os.ReadFile(filepath.Join(cfg.Site.BuildDir, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<title>Home</title><h1>Hi</h1>", string(index))

	about, err := os.ReadFile(filepath.Join(cfg.Site.BuildDir, "about", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<title>About</title><h1>About</h1>", string(about))
}

func TestRunFailsWithoutTemplatesRoot(t *testing.T) {
	cfg := testProject(t)
	require.NoError(t, os.RemoveAll(cfg.Site.TemplatesDir))

	// Pre-populate the build dir to verify it is left untouched.
	writeFile(t, filepath.Join(cfg.Site.BuildDir, "stale.html"), "stale")

	outcome := New(cfg, testLogger()).Run(context.Background())
	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Log, "templates directory missing")

	stale, err := os.ReadFile(filepath.Join(cfg.Site.BuildDir, "stale.html"))
	require.NoError(t, err)
	assert.Equal(t, "stale", string(stale))
}

func TestRunSkipsPageWithMissingDirective(t *testing.T) {
	cfg := testProject(t)
	writeFile(t, filepath.Join(cfg.Site.TemplatesDir, "base.html"), "<!-- CONTENT -->")
	writeFile(t, filepath.Join(cfg.Site.PagesDir, "broken.html"),
		"<!-- TEMPLATE: base -->\n<h1>no background</h1>")

	outcome := New(cfg, testLogger()).Run(context.Background())
	assert.True(t, outcome.Success)
	assert.Contains(t, outcome.Log, "skipping page broken: missing BACKGROUND directive")

	_, err := os.Stat(filepath.Join(cfg.Site.BuildDir, "broken"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunSkipsPageWithMissingTemplate(t *testing.T) {
	cfg := testProject(t)
	writeFile(t, filepath.Join(cfg.Site.PagesDir, "orphan.html"),
		"<!-- TEMPLATE: nope -->\n<!-- BACKGROUND: bg.png -->\nbody")

	outcome := New(cfg, testLogger()).Run(context.Background())
	assert.True(t, outcome.Success)
	assert.Contains(t, outcome.Log, "skipping page orphan")
}

func TestCleanPreservesBuildRoot(t *testing.T) {
	cfg := testProject(t)
	writeFile(t, filepath.Join(cfg.Site.BuildDir, "old", "index.html"), "old")
	writeFile(t, filepath.Join(cfg.Site.BuildDir, "loose.css"), "old")

	before, err := os.Stat(cfg.Site.BuildDir)
	require.NoError(t, err)

	outcome := New(cfg, testLogger()).Run(context.Background())
	require.True(t, outcome.Success, outcome.Log)

	after, err := os.Stat(cfg.Site.BuildDir)
	require.NoError(t, err)
	assert.True(t, os.SameFile(before, after), "build root must not be recreated")

	_, err = os.Stat(filepath.Join(cfg.Site.BuildDir, "old"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(cfg.Site.BuildDir, "loose.css"))
	assert.True(t, os.IsNotExist(err))
}

func TestCopyDataPreservesLayoutAndMetadata(t *testing.T) {
	cfg := testProject(t)
	src := filepath.Join(cfg.Site.DataDir, "css", "style.css")
	writeFile(t, src, "body{}")
	require.NoError(t, os.Chmod(src, 0o600))

	outcome := New(cfg, testLogger()).Run(context.Background())
	require.True(t, outcome.Success, outcome.Log)

	dest := filepath.Join(cfg.Site.BuildDir, "css", "style.css")
	destInfo, err := os.Stat(dest)
	require.NoError(t, err)

	srcInfo, err := os.Stat(src)
	require.NoError(t, err)
	assert.Equal(t, srcInfo.Mode().Perm(), destInfo.Mode().Perm())
	assert.True(t, srcInfo.ModTime().Equal(destInfo.ModTime()))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "body{}", string(data))
}

func TestRunWithoutDataOrPagesSucceeds(t *testing.T) {
	cfg := testProject(t)
	require.NoError(t, os.RemoveAll(cfg.Site.PagesDir))

	outcome := New(cfg, testLogger()).Run(context.Background())
	assert.True(t, outcome.Success)
	assert.Contains(t, outcome.Log, "no data directory found")
	assert.Contains(t, outcome.Log, "no pages directory found")
}

func TestRunIsIdempotent(t *testing.T) {
	cfg := testProject(t)
	writeFile(t, filepath.Join(cfg.Site.TemplatesDir, "base.html"),
		"<!-- TITLE -->|<!-- BACKGROUND -->|<!-- CONTENT -->")
	writeFile(t, filepath.Join(cfg.Site.PagesDir, "my-page.html"),
		"<!-- TEMPLATE: base -->\n<!-- BACKGROUND: img.png -->\nHello")

	pipeline := New(cfg, testLogger())
	require.True(t, pipeline.Run(context.Background()).Success)

	out := filepath.Join(cfg.Site.BuildDir, "my-page", "index.html")
	first, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "My page|img.png|Hello", string(first))

	require.True(t, pipeline.Run(context.Background()).Success)
	second, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
