package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())

	asset, err := cfg.Asset()
	require.NoError(t, err)
	assert.Equal(t, DefaultAssetURL, asset.URL)
	assert.Equal(t, "project/assets.7z", asset.File)
	assert.Equal(t, "project/", asset.OutputDir)
	assert.Equal(t, DefaultExpectedHash, asset.Hash)
	assert.True(t, asset.Overwrite)
	assert.True(t, asset.DeleteAfterExtract)
}

func TestAssetExpandsHomeAndNormalizesHash(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)

	cfg := NewConfig()
	cfg.Destination = "~/cache/assets.7z"
	cfg.ExpectedHash = "  " + strings.ToUpper(DefaultExpectedHash) + "\n"

	asset, err := cfg.Asset()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "cache", "assets.7z"), asset.File)
	assert.Equal(t, DefaultExpectedHash, asset.Hash)
}

func TestValidateAsset(t *testing.T) {
	valid := Asset{
		URL:       "https://example.com/assets.7z",
		File:      "project/assets.7z",
		Hash:      DefaultExpectedHash,
		OutputDir: "project/",
	}
	require.NoError(t, ValidateAsset(valid))

	cases := map[string]func(a *Asset){
		"missing url":    func(a *Asset) { a.URL = "" },
		"ftp url":        func(a *Asset) { a.URL = "ftp://example.com/a.7z" },
		"no host":        func(a *Asset) { a.URL = "https:///a.7z" },
		"no destination": func(a *Asset) { a.File = "" },
		"no output dir":  func(a *Asset) { a.OutputDir = "" },
		"short hash":     func(a *Asset) { a.Hash = "deadbeef" },
		"non hex hash":   func(a *Asset) { a.Hash = strings.Repeat("zz", 32) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			a := valid
			mutate(&a)
			assert.Error(t, ValidateAsset(a))
		})
	}
}

func TestValidateRejectsPasswordWithoutUser(t *testing.T) {
	cfg := NewConfig()
	cfg.HTTPAuthPassword = "secret"
	assert.Error(t, cfg.Validate())

	cfg.HTTPAuthUser = "builder"
	assert.NoError(t, cfg.Validate())
}

func TestRedactedForLogging(t *testing.T) {
	cfg := NewConfig()
	cfg.HTTPAuthPassword = "secret"
	cfg.HTTPHeaders = map[string]string{"Authorization": "Bearer abc"}

	snapshot := cfg.RedactedForLogging()
	assert.Equal(t, "***redacted***", snapshot["HTTPAuthPassword"])
	assert.Equal(t, map[string]string{"Authorization": "***redacted***"}, snapshot["HTTPHeaders"])
	assert.Equal(t, "30m0s", snapshot["Timeout"])
	assert.Equal(t, DefaultAssetURL, snapshot["URL"])
}
