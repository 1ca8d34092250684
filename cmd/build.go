package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stanza-dev/stanza/internal/build"
	"github.com/stanza-dev/stanza/internal/config"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the site once",
	Long: `Build the site into the build directory: clean previous output, copy
data files, and compile every page against its template.

Exits 0 on success, 1 if any build step failed. Individual pages with
missing directives or templates are skipped with a diagnostic and do not
fail the build.`,
	RunE: runBuild,
}

var buildDir string

func init() {
	rootCmd.AddCommand(buildCmd)

	// Not bound to viper here: serve owns the site.build_dir binding and a
	// second bind on the same key would shadow this flag.
	buildCmd.Flags().StringVarP(&buildDir, "build-dir", "d", "build", "Build output directory")
}

func runBuild(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("build-dir") {
		viper.Set("site.build_dir", buildDir)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	pipeline := build.New(cfg, newLogger())
	outcome := pipeline.Run(cmd.Context())
	if !outcome.Success {
		return fmt.Errorf("build failed")
	}
	return nil
}
