// Package config provides configuration management for stanza using Viper
// for flexible configuration loading from files, environment variables, and
// command-line flags.
//
// The configuration system supports YAML files, environment variable
// overrides with the STANZA_ prefix, and validation. It manages server
// settings, site directory layout, and development options such as hot
// reload and the rebuild debounce interval.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Site        SiteConfig        `yaml:"site"`
	Development DevelopmentConfig `yaml:"development"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// SiteConfig describes the on-disk layout of a project. All paths are
// relative to the project root.
type SiteConfig struct {
	PagesDir     string `yaml:"pages_dir"`
	TemplatesDir string `yaml:"templates_dir"`
	DataDir      string `yaml:"data_dir"`
	BuildDir     string `yaml:"build_dir"`
}

type DevelopmentConfig struct {
	HotReload        bool          `yaml:"hot_reload"`
	SkipInitialBuild bool          `yaml:"skip_initial_build"`
	Debounce         time.Duration `yaml:"debounce,omitempty"`
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Handle site layout keys set via viper (workaround for viper key
	// handling: snake_case keys do not unmarshal into the struct fields)
	if viper.IsSet("site.pages_dir") {
		config.Site.PagesDir = viper.GetString("site.pages_dir")
	}
	if viper.IsSet("site.templates_dir") {
		config.Site.TemplatesDir = viper.GetString("site.templates_dir")
	}
	if viper.IsSet("site.data_dir") {
		config.Site.DataDir = viper.GetString("site.data_dir")
	}
	if viper.IsSet("site.build_dir") {
		config.Site.BuildDir = viper.GetString("site.build_dir")
	}

	// Apply defaults for the site layout if not explicitly set
	if config.Site.PagesDir == "" {
		config.Site.PagesDir = "pages"
	}
	if config.Site.TemplatesDir == "" {
		config.Site.TemplatesDir = "templates"
	}
	if config.Site.DataDir == "" {
		config.Site.DataDir = "data"
	}
	if config.Site.BuildDir == "" {
		config.Site.BuildDir = "build"
	}

	// Apply server defaults
	if config.Server.Port == 0 && !viper.IsSet("server.port") {
		config.Server.Port = 1313
	}
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}

	// Handle development settings set via viper (workaround for viper bool handling)
	if viper.IsSet("development.hot_reload") {
		config.Development.HotReload = viper.GetBool("development.hot_reload")
	} else {
		config.Development.HotReload = true
	}
	if viper.IsSet("development.skip_initial_build") {
		config.Development.SkipInitialBuild = viper.GetBool("development.skip_initial_build")
	}
	if viper.IsSet("development.debounce") {
		config.Development.Debounce = viper.GetDuration("development.debounce")
	}
	if config.Development.Debounce <= 0 {
		config.Development.Debounce = time.Second
	}

	// Override hot reload if explicitly disabled via flag
	if viper.IsSet("development.no-hot-reload") && viper.GetBool("development.no-hot-reload") {
		config.Development.HotReload = false
	}

	// Validate configuration values
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateSiteConfig(&config.Site); err != nil {
		return fmt.Errorf("site config: %w", err)
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	return nil
}

// validateSiteConfig validates the site directory layout
func validateSiteConfig(config *SiteConfig) error {
	dirs := map[string]string{
		"pages_dir":     config.PagesDir,
		"templates_dir": config.TemplatesDir,
		"data_dir":      config.DataDir,
		"build_dir":     config.BuildDir,
	}
	for name, dir := range dirs {
		if err := validatePath(dir); err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, dir, err)
		}
	}

	// The build dir must not alias a source dir; the watcher excludes it
	// from rebuild triggers and cleaning a source tree would be destructive.
	build := filepath.Clean(config.BuildDir)
	for _, src := range []string{config.PagesDir, config.TemplatesDir, config.DataDir} {
		if filepath.Clean(src) == build {
			return fmt.Errorf("build_dir '%s' overlaps source directory '%s'", config.BuildDir, src)
		}
	}

	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	// Reject path traversal attempts
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
