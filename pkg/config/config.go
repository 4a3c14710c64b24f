package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/go-homedir"
)

// Compiled-in asset location and digest
const (
	DefaultAssetURL     = "https://www.dropbox.com/scl/fi/xyvlqz1d83ppu25q2589u/assets.7z?rlkey=2q0ve3lqwq45cr8w6mdzcegzz&st=jq6lcr1h&dl=1"
	DefaultDestination  = "project/assets.7z"
	DefaultExpectedHash = "bebddf7a39e479e0ad9623a9251a465be9fb68a1a0a17ac2212f25de03255b21"
	DefaultOutputDir    = "project/"
)

// Config represents the effective configuration for one fetch-assets run
type Config struct {
	URL                string `json:"url"`
	Destination        string `json:"destination"`
	ExpectedHash       string `json:"expected_hash"`
	OutputDir          string `json:"output_dir"`
	Overwrite          bool   `json:"overwrite"`
	DeleteAfterExtract bool   `json:"delete_after_extract"`

	Debug          bool   `json:"debug"`
	Verbose        bool   `json:"verbose"`
	LogFilePath    string `json:"log_file_path,omitempty"` // also log to this file
	RetainLogFiles bool   `json:"retain_log_files"`

	// HTTP settings
	FollowRedirects  bool              `json:"follow_redirects"`
	HTTPAuthUser     string            `json:"http_auth_user,omitempty"`
	HTTPAuthPassword string            `json:"http_auth_password,omitempty"`
	HTTPHeaders      map[string]string `json:"http_headers,omitempty"`
	Timeout          time.Duration     `json:"timeout"`
	Progress         bool              `json:"progress"`
}

// NewConfig creates a new Config with defaults
func NewConfig() *Config {
	return &Config{
		URL:                DefaultAssetURL,
		Destination:        DefaultDestination,
		ExpectedHash:       DefaultExpectedHash,
		OutputDir:          DefaultOutputDir,
		Overwrite:          true,
		DeleteAfterExtract: true,

		Debug:          false,
		Verbose:        false,
		LogFilePath:    "",
		RetainLogFiles: false,

		FollowRedirects: true, // the share link answers with a redirect
		HTTPHeaders:     map[string]string{},
		Timeout:         30 * time.Minute,
		Progress:        true,
	}
}

// Asset returns the asset described by the configuration with paths expanded
func (c *Config) Asset() (Asset, error) {
	file, err := homedir.Expand(c.Destination)
	if err != nil {
		return Asset{}, fmt.Errorf("failed to expand destination %q: %w", c.Destination, err)
	}
	outputDir, err := homedir.Expand(c.OutputDir)
	if err != nil {
		return Asset{}, fmt.Errorf("failed to expand output directory %q: %w", c.OutputDir, err)
	}

	return Asset{
		URL:                c.URL,
		File:               file,
		Hash:               NormalizeHash(c.ExpectedHash),
		OutputDir:          outputDir,
		Overwrite:          c.Overwrite,
		DeleteAfterExtract: c.DeleteAfterExtract,
	}, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	asset, err := c.Asset()
	if err != nil {
		return err
	}
	if err := ValidateAsset(asset); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative: %v", c.Timeout)
	}
	if c.HTTPAuthPassword != "" && c.HTTPAuthUser == "" {
		return fmt.Errorf("HTTPAuthPassword requires HTTPAuthUser")
	}
	return nil
}

// RedactedForLogging returns a snapshot of the effective configuration for
// debug logs. Secrets are masked and durations are rendered as strings.
func (c *Config) RedactedForLogging() map[string]interface{} {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***redacted***"
	}
	maskMap := func(in map[string]string) map[string]string {
		if in == nil {
			return nil
		}
		out := make(map[string]string, len(in))
		for k := range in {
			out[k] = "***redacted***"
		}
		return out
	}

	return map[string]interface{}{
		// Asset
		"URL":                c.URL,
		"Destination":        c.Destination,
		"ExpectedHash":       c.ExpectedHash,
		"OutputDir":          c.OutputDir,
		"Overwrite":          c.Overwrite,
		"DeleteAfterExtract": c.DeleteAfterExtract,
		// Logging
		"Debug":          c.Debug,
		"Verbose":        c.Verbose,
		"LogFilePath":    c.LogFilePath,
		"RetainLogFiles": c.RetainLogFiles,
		// HTTP
		"FollowRedirects":  c.FollowRedirects,
		"HTTPAuthUser":     c.HTTPAuthUser,
		"HTTPAuthPassword": mask(c.HTTPAuthPassword),
		"HTTPHeaders":      maskMap(c.HTTPHeaders),
		"Timeout":          c.Timeout.String(),
		"Progress":         c.Progress,
	}
}
