package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"howett.net/plist"
)

const samplePlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>URL</key>
	<string>https://example.com/assets.7z</string>
	<key>Destination</key>
	<string>build/assets.7z</string>
	<key>Overwrite</key>
	<false/>
	<key>Timeout</key>
	<integer>90</integer>
	<key>HTTPHeaders</key>
	<dict>
		<key>X-Test</key>
		<string>v</string>
	</dict>
	<key>Mystery</key>
	<string>ignored</string>
</dict>
</plist>
`

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestApplySettingsMap_HeadersAndFlags(t *testing.T) {
	cfg := NewConfig()
	settings := map[string]interface{}{
		"HTTPHeaders":        []interface{}{map[string]interface{}{"name": "Authorization", "value": "Bearer abc"}},
		"FollowRedirects":    false,
		"DeleteAfterExtract": "false",
		"Timeout":            "2m",
		"HTTPAuthUser":       "builder",
	}
	unknown, err := cfg.applySettingsMap(settings)
	require.NoError(t, err)
	assert.Empty(t, unknown)

	assert.Equal(t, "Bearer abc", cfg.HTTPHeaders["Authorization"])
	assert.False(t, cfg.FollowRedirects)
	assert.False(t, cfg.DeleteAfterExtract)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.Equal(t, "builder", cfg.HTTPAuthUser)
}

func TestApplySettingsMap_RejectsBadValues(t *testing.T) {
	for name, settings := range map[string]map[string]interface{}{
		"empty url":       {"URL": ""},
		"url not string":  {"URL": int64(3)},
		"bad bool":        {"Overwrite": "sometimes"},
		"bad timeout":     {"Timeout": "soon"},
		"bad header type": {"HTTPHeaders": "X-Test: v"},
		"header no value": {"HTTPHeaders": []interface{}{map[string]interface{}{"name": "X"}}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewConfig().applySettingsMap(settings)
			assert.Error(t, err)
		})
	}
}

func TestReadFromProfile_XML(t *testing.T) {
	path := writeTemp(t, t.TempDir(), "fetch-assets.plist", samplePlist)

	cfg := NewConfig()
	result, err := cfg.ReadFromProfile(path)
	require.NoError(t, err)

	assert.True(t, result.ConfigFound)
	assert.Equal(t, path, result.Path)
	assert.Equal(t, []string{"Mystery"}, result.UnknownKeys)

	assert.Equal(t, "https://example.com/assets.7z", cfg.URL)
	assert.Equal(t, "build/assets.7z", cfg.Destination)
	assert.False(t, cfg.Overwrite)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, "v", cfg.HTTPHeaders["X-Test"])
	// untouched keys keep their defaults
	assert.Equal(t, DefaultExpectedHash, cfg.ExpectedHash)
	assert.True(t, cfg.DeleteAfterExtract)
}

func TestReadFromProfile_Binary(t *testing.T) {
	data, err := plist.Marshal(map[string]interface{}{
		"OutputDir": "out/",
		"Verbose":   true,
	}, plist.BinaryFormat)
	require.NoError(t, err)
	path := writeTemp(t, t.TempDir(), "config.plist", string(data))

	cfg := NewConfig()
	_, err = cfg.ReadFromProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "out/", cfg.OutputDir)
	assert.True(t, cfg.Verbose)
}

func TestReadFromProfile_ExplicitPathErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewConfig().ReadFromProfile(filepath.Join(dir, "missing.plist"))
	assert.Error(t, err, "an explicit overlay must exist")

	bad := writeTemp(t, dir, "bad.plist", "<plist><dict><key>URL</key>")
	_, err = NewConfig().ReadFromProfile(bad)
	assert.Error(t, err)
}

func TestProfilePaths(t *testing.T) {
	assert.Equal(t, []string{"/etc/x.plist"}, ProfilePaths("/etc/x.plist"))

	paths := ProfilePaths("")
	require.NotEmpty(t, paths)
	assert.Equal(t, DefaultProfileName, paths[0])
}
