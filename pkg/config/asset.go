package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// Asset describes the one archive fetched per run
type Asset struct {
	URL  string `plist:"URL" json:"url"`
	File string `plist:"Destination" json:"file"`
	Hash string `plist:"ExpectedHash" json:"hash"` // lowercase hex SHA-256

	OutputDir          string `plist:"OutputDir" json:"output_dir"`
	Overwrite          bool   `plist:"Overwrite" json:"overwrite"`
	DeleteAfterExtract bool   `plist:"DeleteAfterExtract" json:"delete_after_extract"`
}

// ValidateAsset checks that an asset can be fetched and extracted
func ValidateAsset(asset Asset) error {
	if asset.URL == "" {
		return fmt.Errorf("asset URL is required")
	}
	u, err := url.Parse(asset.URL)
	if err != nil {
		return fmt.Errorf("invalid asset URL %q: %w", asset.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("asset URL must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("asset URL %q has no host", asset.URL)
	}

	if asset.File == "" {
		return fmt.Errorf("asset destination is required")
	}
	if asset.OutputDir == "" {
		return fmt.Errorf("asset output directory is required")
	}

	if err := validateHash(asset.Hash); err != nil {
		return fmt.Errorf("invalid expected hash: %w", err)
	}
	return nil
}

// NormalizeHash lowercases a hex digest and strips surrounding whitespace
func NormalizeHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}

func validateHash(hash string) error {
	if len(hash) != 64 {
		return fmt.Errorf("SHA-256 digest must be 64 hex characters, got %d", len(hash))
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return fmt.Errorf("digest is not hex: %w", err)
	}
	return nil
}
