package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-fetchassets/pkg/config"
	"github.com/go-fetchassets/pkg/utils"
)

const overlay = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>URL</key>
	<string>https://mirror.example.com/assets.7z</string>
	<key>OutputDir</key>
	<string>build/assets</string>
	<key>Overwrite</key>
	<false/>
	<key>HTTPHeaders</key>
	<dict>
		<key>X-Mirror</key>
		<string>eu</string>
	</dict>
</dict>
</plist>
`

// parseConfig runs the root command with args and returns the layered config
func parseConfig(t *testing.T, args ...string) (*config.Config, *config.ProfileResult) {
	t.Helper()

	var cfg *config.Config
	var profile *config.ProfileResult
	opts := newOptions()
	cmd := newRootCmd(opts)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, profile, err = loadConfig(cmd, opts)
		return err
	}
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return cfg, profile
}

func writeOverlay(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overlay.plist")
	require.NoError(t, os.WriteFile(path, []byte(overlay), 0644))
	return path
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := writeOverlay(t)

	cfg, profile := parseConfig(t,
		"--config", path,
		"--output-dir", "custom/out",
		"--header", "X-Token=abc",
		"--timeout", "90s",
	)

	assert.True(t, profile.ConfigFound)
	assert.Equal(t, path, profile.Path)

	// overlay beats defaults
	assert.Equal(t, "https://mirror.example.com/assets.7z", cfg.URL)
	assert.False(t, cfg.Overwrite)
	// flags beat the overlay
	assert.Equal(t, "custom/out", cfg.OutputDir)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	// headers from both layers are merged
	assert.Equal(t, map[string]string{"X-Mirror": "eu", "X-Token": "abc"}, cfg.HTTPHeaders)
	// untouched settings keep their defaults
	assert.Equal(t, config.DefaultExpectedHash, cfg.ExpectedHash)
	assert.True(t, cfg.DeleteAfterExtract)
}

func TestLoadConfigUnsetFlagsDoNotOverrideOverlay(t *testing.T) {
	cfg, _ := parseConfig(t, "--config", writeOverlay(t), "--debug")

	assert.Equal(t, "build/assets", cfg.OutputDir)
	assert.False(t, cfg.Overwrite)
	assert.True(t, cfg.Debug)
}

func TestLoadConfigMissingExplicitOverlay(t *testing.T) {
	opts := newOptions()
	cmd := newRootCmd(opts)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		_, _, err := loadConfig(cmd, opts)
		return err
	}
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.plist")})
	assert.Error(t, cmd.Execute())
}

func TestNormalizedBooleanFlags(t *testing.T) {
	args := []string{"--config", writeOverlay(t), "--overwrite", "true", "--delete-after-extract", "false"}
	cfg, _ := parseConfig(t, utils.NormalizeBooleanFlags(args, booleanFlags)...)

	assert.True(t, cfg.Overwrite)
	assert.False(t, cfg.DeleteAfterExtract)
}
