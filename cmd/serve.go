package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stanza-dev/stanza/internal/config"
	"github.com/stanza-dev/stanza/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the development server with hot reload",
	Long: `Start the development server. The site is built once on startup, then
the pages, templates, and data directories are watched for changes; each
change triggers a rebuild while the server keeps serving.

During a rebuild, requests for files that are momentarily missing get a
503 page that refreshes itself, so the browser recovers on its own.

Examples:
  stanza serve                     # Serve on :1313 with hot reload
  stanza serve -p 8000             # Different port
  stanza serve --no-hot-reload     # Just serve, no watching
  stanza serve --skip-build        # Serve existing build output as-is`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 1313, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().StringP("build-dir", "d", "build", "Build directory to serve")
	serveCmd.Flags().Bool("no-hot-reload", false, "Disable hot reloading")
	serveCmd.Flags().Bool("skip-build", false, "Skip the initial build on startup")

	bindViperFlags(serveCmd.Flags(), map[string]string{
		"port":          "server.port",
		"host":          "server.host",
		"build-dir":     "site.build_dir",
		"no-hot-reload": "development.no-hot-reload",
		"skip-build":    "development.skip_initial_build",
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	srv := server.New(cfg, newLogger())

	// Cancel on interrupt; Start shuts the server down when the context ends.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down server...")
		cancel()
	}()

	fmt.Printf("Starting stanza server at http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	if cfg.Development.HotReload {
		fmt.Println("Hot reloading is active - changes will trigger rebuilds")
	}
	fmt.Println("Press Ctrl+C to stop the server")

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
