package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/mitchellh/go-homedir"
	"howett.net/plist"
)

// DefaultProfileName is the overlay file looked up in the working directory
const DefaultProfileName = "fetch-assets.plist"

// ProfileResult describes the overlay that was applied, if any
type ProfileResult struct {
	ConfigFound bool
	Path        string
	UnknownKeys []string
}

// ProfilePaths returns the overlay locations in lookup order. An explicit
// path replaces the defaults.
func ProfilePaths(explicit string) []string {
	if explicit != "" {
		return []string{explicit}
	}

	paths := []string{DefaultProfileName}
	if home, err := homedir.Dir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "fetch-assets", "config.plist"))
	}
	return paths
}

// ReadFromProfile overlays settings from a plist preferences file.
// With an empty path the default locations are tried and a missing file is
// not an error; an explicit path must exist.
func (c *Config) ReadFromProfile(path string) (*ProfileResult, error) {
	explicit := path != ""

	for _, candidate := range ProfilePaths(path) {
		expanded, err := homedir.Expand(candidate)
		if err != nil {
			return nil, fmt.Errorf("failed to expand profile path %q: %w", candidate, err)
		}

		prefs, err := readPlistFile(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && !explicit {
				continue
			}
			return nil, err
		}

		unknown, err := c.applySettingsMap(prefs)
		if err != nil {
			return nil, fmt.Errorf("failed to apply settings from %s: %w", expanded, err)
		}
		return &ProfileResult{ConfigFound: true, Path: expanded, UnknownKeys: unknown}, nil
	}

	return &ProfileResult{ConfigFound: false}, nil
}

// readPlistFile decodes a plist dictionary (XML, binary or OpenStep)
func readPlistFile(path string) (map[string]interface{}, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var prefs map[string]interface{}
	if err := plist.NewDecoder(file).Decode(&prefs); err != nil {
		return nil, fmt.Errorf("failed to parse plist %s: %w", path, err)
	}
	return prefs, nil
}

// applySettingsMap applies a settings map to the config and returns the keys
// it did not recognise, sorted.
func (c *Config) applySettingsMap(settings map[string]interface{}) ([]string, error) {
	var unknown []string

	for key, val := range settings {
		var err error
		switch key {
		case "URL":
			err = setString(&c.URL, key, val, false)
		case "Destination":
			err = setString(&c.Destination, key, val, false)
		case "ExpectedHash":
			err = setString(&c.ExpectedHash, key, val, false)
		case "OutputDir":
			err = setString(&c.OutputDir, key, val, false)
		case "LogFilePath":
			err = setString(&c.LogFilePath, key, val, true)
		case "HTTPAuthUser":
			err = setString(&c.HTTPAuthUser, key, val, true)
		case "HTTPAuthPassword":
			err = setString(&c.HTTPAuthPassword, key, val, true)
		case "Overwrite":
			err = setBool(&c.Overwrite, key, val)
		case "DeleteAfterExtract":
			err = setBool(&c.DeleteAfterExtract, key, val)
		case "Debug":
			err = setBool(&c.Debug, key, val)
		case "Verbose":
			err = setBool(&c.Verbose, key, val)
		case "RetainLogFiles":
			err = setBool(&c.RetainLogFiles, key, val)
		case "FollowRedirects":
			err = setBool(&c.FollowRedirects, key, val)
		case "Progress":
			err = setBool(&c.Progress, key, val)
		case "Timeout":
			err = setDuration(&c.Timeout, key, val)
		case "HTTPHeaders":
			err = c.applyHeaders(val)
		default:
			unknown = append(unknown, key)
		}
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(unknown)
	return unknown, nil
}

// applyHeaders accepts a dictionary {"Name": "Value"} or an array of
// {"name": ..., "value": ...} dictionaries
func (c *Config) applyHeaders(val interface{}) error {
	if c.HTTPHeaders == nil {
		c.HTTPHeaders = make(map[string]string)
	}

	switch headers := val.(type) {
	case map[string]interface{}:
		for name, value := range headers {
			str, ok := value.(string)
			if !ok {
				return fmt.Errorf("HTTPHeaders value for %q is not a string", name)
			}
			c.HTTPHeaders[name] = str
		}
	case []interface{}:
		for i, item := range headers {
			dict, ok := item.(map[string]interface{})
			if !ok {
				return fmt.Errorf("HTTPHeaders entry %d is not a dictionary", i)
			}
			name, nameOK := dict["name"].(string)
			value, valueOK := dict["value"].(string)
			if !nameOK || !valueOK || name == "" {
				return fmt.Errorf("HTTPHeaders entry %d needs string name and value", i)
			}
			c.HTTPHeaders[name] = value
		}
	default:
		return fmt.Errorf("HTTPHeaders must be a dictionary or an array, got %T", val)
	}
	return nil
}

func setString(dst *string, key string, val interface{}, allowEmpty bool) error {
	str, ok := val.(string)
	if !ok {
		return fmt.Errorf("%s must be a string, got %T", key, val)
	}
	if str == "" && !allowEmpty {
		return fmt.Errorf("%s cannot be empty string - omit the key instead", key)
	}
	*dst = str
	return nil
}

func setBool(dst *bool, key string, val interface{}) error {
	switch v := val.(type) {
	case bool:
		*dst = v
	case string:
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = parsed
	default:
		return fmt.Errorf("%s must be a boolean, got %T", key, val)
	}
	return nil
}

// setDuration accepts whole seconds or a Go duration string
func setDuration(dst *time.Duration, key string, val interface{}) error {
	switch v := val.(type) {
	case int64:
		*dst = time.Duration(v) * time.Second
	case uint64:
		*dst = time.Duration(v) * time.Second
	case int:
		*dst = time.Duration(v) * time.Second
	case float64:
		*dst = time.Duration(v * float64(time.Second))
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		} else if seconds, err := strconv.Atoi(v); err == nil {
			*dst = time.Duration(seconds) * time.Second
		} else {
			return fmt.Errorf("%s: cannot parse %q as a duration", key, v)
		}
	default:
		return fmt.Errorf("%s must be a number of seconds or a duration string, got %T", key, val)
	}
	return nil
}
