package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/go-fetchassets/pkg/archive"
	"github.com/go-fetchassets/pkg/config"
	"github.com/go-fetchassets/pkg/download"
	"github.com/go-fetchassets/pkg/utils"
)

// Manager runs the fetch, verify and extract pipeline for one asset
type Manager struct {
	downloader download.Downloader
	extractor  archive.Extractor
	asset      config.Asset
	logger     *utils.Logger
}

// NewManager creates a new pipeline manager
func NewManager(downloader download.Downloader, extractor archive.Extractor, asset config.Asset, logger *utils.Logger) *Manager {
	return &Manager{
		downloader: downloader,
		extractor:  extractor,
		asset:      asset,
		logger:     logger,
	}
}

// Run downloads the asset, verifies its hash and extracts it. It stops at the
// first failing step; the returned error wraps the collaborator's error so
// errors.As still finds *download.TransferError, *download.IntegrityError or
// *archive.ExtractionError.
func (m *Manager) Run(ctx context.Context) error {
	start := time.Now()

	m.logger.Info("=== Fetching asset ===")
	if err := m.downloader.DownloadFile(ctx, m.asset.URL, m.asset.File, m.asset.Hash); err != nil {
		return fmt.Errorf("failed to fetch %s: %w", m.asset.URL, err)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cancelled before extraction: %w", err)
	}

	m.logger.Info("=== Extracting asset ===")
	if err := m.extractor.ExtractArchive(m.asset.File, m.asset.OutputDir, m.asset.Overwrite, m.asset.DeleteAfterExtract); err != nil {
		return fmt.Errorf("failed to extract %s: %w", m.asset.File, err)
	}

	m.logger.Info("=== Assets ready in %s (%s) ===", m.asset.OutputDir, time.Since(start).Round(time.Millisecond))
	return nil
}
