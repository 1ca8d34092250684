package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1313, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "pages", cfg.Site.PagesDir)
	assert.Equal(t, "templates", cfg.Site.TemplatesDir)
	assert.Equal(t, "data", cfg.Site.DataDir)
	assert.Equal(t, "build", cfg.Site.BuildDir)
	assert.True(t, cfg.Development.HotReload)
	assert.False(t, cfg.Development.SkipInitialBuild)
	assert.Equal(t, time.Second, cfg.Development.Debounce)
}

func TestLoadOverrides(t *testing.T) {
	resetViper(t)
	viper.Set("server.port", 8000)
	viper.Set("site.build_dir", "public")
	viper.Set("development.hot_reload", false)
	viper.Set("development.debounce", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "public", cfg.Site.BuildDir)
	assert.False(t, cfg.Development.HotReload)
	assert.Equal(t, 250*time.Millisecond, cfg.Development.Debounce)
}

func TestNoHotReloadFlagWins(t *testing.T) {
	resetViper(t)
	viper.Set("development.hot_reload", true)
	viper.Set("development.no-hot-reload", true)

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Development.HotReload)
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	resetViper(t)
	viper.Set("server.port", 70000)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in valid range")
}

func TestLoadRejectsPathTraversal(t *testing.T) {
	resetViper(t)
	viper.Set("site.build_dir", "../outside")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "traversal")
}

func TestLoadRejectsBuildDirAliasingSourceDir(t *testing.T) {
	resetViper(t)
	viper.Set("site.build_dir", "pages")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlaps source directory")
}

func TestLoadRejectsDangerousHost(t *testing.T) {
	resetViper(t)
	viper.Set("server.host", "localhost;rm -rf /")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dangerous character")
}

func TestDebounceFallsBackToOneSecond(t *testing.T) {
	resetViper(t)
	viper.Set("development.debounce", "0s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.Development.Debounce)
}
