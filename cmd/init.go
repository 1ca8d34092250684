package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/stanza-dev/stanza/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Scaffold a new stanza project",
	Long: `Create the project skeleton: pages, templates, and data directories
with a working starter page, plus a .stanza.yml config file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

const starterTemplate = `<!DOCTYPE html>
<html>
<head>
    <title><!-- TITLE --></title>
    <link rel="stylesheet" href="/css/style.css">
</head>
<body style="background-image: url('/img/<!-- BACKGROUND -->')">
    <main>
<!-- CONTENT -->
    </main>
</body>
</html>
`

const starterPage = `<!-- TEMPLATE: base -->
<!-- BACKGROUND: default.png -->
<h1>Welcome</h1>
<p>Edit pages/index.html and watch this page reload.</p>
`

const starterStylesheet = `body {
    font-family: monospace;
    margin: 0 auto;
    max-width: 60rem;
}
`

func runInit(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	cfg := config.Config{
		Server: config.ServerConfig{Port: 1313, Host: "localhost"},
		Site: config.SiteConfig{
			PagesDir:     "pages",
			TemplatesDir: "templates",
			DataDir:      "data",
			BuildDir:     "build",
		},
		Development: config.DevelopmentConfig{
			HotReload: true,
		},
	}

	cfgYAML, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}

	files := map[string][]byte{
		".stanza.yml":         cfgYAML,
		"pages/index.html":    []byte(starterPage),
		"templates/base.html": []byte(starterTemplate),
		"data/css/style.css":  []byte(starterStylesheet),
		"data/img/.gitkeep":   nil,
	}

	for rel, content := range files {
		path := filepath.Join(root, rel)
		if _, err := os.Stat(path); err == nil {
			fmt.Printf("skipping %s: already exists\n", rel)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return err
		}
		fmt.Printf("created %s\n", rel)
	}

	fmt.Println("\nProject ready. Next:")
	fmt.Println("  stanza build")
	fmt.Println("  stanza serve")
	return nil
}
