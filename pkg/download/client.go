package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/go-fetchassets/pkg/utils"
)

const userAgent = "fetch-assets/1.0"

// Client handles HTTP downloads
type Client struct {
	httpClient      *http.Client
	logger          *utils.Logger
	authUser        string
	authPassword    string
	customHeaders   map[string]string
	followRedirects bool
	progress        io.Writer
}

// NewClient creates a new download client
func NewClient(logger *utils.Logger) *Client {
	client := &Client{
		httpClient:    &http.Client{},
		logger:        logger,
		customHeaders: make(map[string]string),
	}
	client.SetFollowRedirects(true)
	return client
}

// NewClientWithAuth creates a download client with HTTP authentication and extra headers
func NewClientWithAuth(logger *utils.Logger, authUser, authPassword string, headers map[string]string) *Client {
	client := NewClient(logger)
	client.authUser = authUser
	client.authPassword = authPassword
	for k, v := range headers {
		client.customHeaders[k] = v
	}
	return client
}

// SetFollowRedirects toggles HTTP redirect following
func (c *Client) SetFollowRedirects(follow bool) {
	c.followRedirects = follow
	if follow {
		c.httpClient.CheckRedirect = nil
	} else {
		c.httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse // do not follow
		}
	}
}

// SetTimeout bounds a whole request including the body transfer; zero means no limit
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// SetProgressOutput enables the interactive progress meter on w (nil disables it)
func (c *Client) SetProgressOutput(w io.Writer) {
	c.progress = w
}

// DownloadFile downloads url to destination and verifies it against
// expectedHash (hex SHA-256; empty skips verification).
//
// A destination that already carries the expected digest is kept and no
// request is made. Otherwise the body is streamed to a temporary file next to
// destination and only renamed into place once the digest matches, so a
// failed or mismatched transfer never leaves a file at destination.
func (c *Client) DownloadFile(ctx context.Context, url, destination, expectedHash string) error {
	expectedHash = strings.ToLower(strings.TrimSpace(expectedHash))
	c.logger.Info("Downloading %s to %s", url, destination)

	if err := utils.EnsureDirForFile(destination); err != nil {
		return err
	}

	if expectedHash != "" && utils.FileExists(destination) {
		err := c.VerifyFileHash(destination, expectedHash)
		if err == nil {
			c.logger.Info("%s already matches the expected hash, skipping download", destination)
			return nil
		}
		var integrityErr *IntegrityError
		if !errors.As(err, &integrityErr) {
			return err
		}
		c.logger.Info("Existing %s does not match the expected hash, replacing it", destination)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destination), "."+filepath.Base(destination)+".*.part")
	if err != nil {
		return fmt.Errorf("failed to create temporary file for %s: %w", destination, err)
	}

	cleanup := NewCleanupTracker()
	cleanup.TrackFile(tmp.Name())
	defer func() {
		if err := cleanup.Cleanup(); err != nil {
			c.logger.Warn("Failed to remove partial download: %v", err)
		}
	}()

	hasher := sha256.New()
	written, err := c.downloadOnce(ctx, url, io.MultiWriter(tmp, hasher))
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to write %s: %w", tmp.Name(), closeErr)
	}
	if err != nil {
		return err
	}
	c.logger.Debug("Downloaded %s (%d bytes)", humanize.Bytes(uint64(written)), written)

	if err := c.checkDigest(destination, expectedHash, hasher); err != nil {
		return err
	}

	// os.Rename does not replace an existing file on every platform
	if err := os.Remove(destination); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace %s: %w", destination, err)
	}
	if err := os.Rename(tmp.Name(), destination); err != nil {
		return fmt.Errorf("failed to move download into place at %s: %w", destination, err)
	}
	cleanup.MarkSuccess(tmp.Name())

	c.logger.Info("Download complete: %s (%s)", destination, humanize.Bytes(uint64(written)))
	return nil
}

// VerifyFileHash checks if a file matches the expected SHA256 hash
func (c *Client) VerifyFileHash(path, expectedHash string) error {
	expectedHash = strings.ToLower(strings.TrimSpace(expectedHash))
	if expectedHash == "" {
		c.logger.Debug("No hash provided for %s, skipping verification", path)
		return nil
	}

	c.logger.Debug("Verifying hash for %s", path)
	actualHash, err := FileHash(path)
	if err != nil {
		return err
	}
	return c.compareDigest(path, expectedHash, actualHash)
}

// FileHash returns the hex SHA-256 digest of a file
func FileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hash verification: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to read file for hashing: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (c *Client) checkDigest(path, expectedHash string, hasher hash.Hash) error {
	if expectedHash == "" {
		c.logger.Debug("No hash provided for %s, skipping verification", path)
		return nil
	}
	return c.compareDigest(path, expectedHash, hex.EncodeToString(hasher.Sum(nil)))
}

func (c *Client) compareDigest(path, expectedHash, actualHash string) error {
	c.logger.Verbose("Expected hash: %s", expectedHash)
	c.logger.Verbose("Calculated hash: %s", actualHash)

	if actualHash != expectedHash {
		return &IntegrityError{Path: path, Expected: expectedHash, Actual: actualHash}
	}

	c.logger.Info("Hash verification passed for %s", path)
	return nil
}

// downloadOnce performs a single GET and streams the body into out
func (c *Client) downloadOnce(ctx context.Context, url string, out io.Writer) (int64, error) {
	c.logger.Debug("Making HTTP request to %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, &TransferError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	if c.authUser != "" {
		req.SetBasicAuth(c.authUser, c.authPassword)
		c.logger.Debug("Added HTTP Basic Auth for user: %s", c.authUser)
	}
	for key, value := range c.customHeaders {
		req.Header.Set(key, value)
	}
	req.Header.Set("User-Agent", userAgent)

	safe := make(http.Header, len(req.Header))
	for k, vals := range req.Header {
		if k == "Authorization" || k == "Proxy-Authorization" {
			safe[k] = []string{"***redacted***"}
		} else {
			safe[k] = vals
		}
	}
	c.logger.Verbose("HTTP request headers: %v", safe)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &TransferError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("HTTP response status: %d", resp.StatusCode)
	c.logger.Verbose("HTTP response headers: %v", resp.Header)

	if resp.StatusCode != http.StatusOK {
		return 0, &TransferError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response %q", resp.Status),
		}
	}

	progress := newProgressWriter(resp.ContentLength, c.progress, c.logger)
	written, err := io.Copy(io.MultiWriter(out, progress), resp.Body)
	progress.finish()
	if err != nil {
		return written, &TransferError{URL: url, Err: fmt.Errorf("transfer interrupted after %d bytes: %w", written, err)}
	}

	if resp.ContentLength >= 0 && written != resp.ContentLength {
		return written, &TransferError{
			URL: url,
			Err: fmt.Errorf("received %d bytes, server announced %d", written, resp.ContentLength),
		}
	}
	return written, nil
}
