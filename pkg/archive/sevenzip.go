package archive

import (
	"bytes"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"

	"github.com/go-fetchassets/pkg/utils"
)

// ErrUnsupportedFormat is returned (wrapped in an ExtractionError) for files
// that do not start with the 7z signature.
var ErrUnsupportedFormat = errors.New("unsupported archive format")

var sevenZipSignature = []byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}

// SevenZip extracts 7z archives
type SevenZip struct {
	logger *utils.Logger
}

// NewSevenZip creates a 7z extractor
func NewSevenZip(logger *utils.Logger) *SevenZip {
	return &SevenZip{logger: logger}
}

// entry is an archive member paired with its resolved location on disk
type entry struct {
	file   *sevenzip.File
	target string
}

// ExtractArchive unpacks every entry of archivePath below outputDir.
//
// All entry paths are resolved before anything is written, so an archive
// holding a single unsafe name leaves outputDir untouched. With overwrite
// unset, files that already exist are kept as they are. The archive is only
// removed when deleteAfter is set and every entry was handled.
func (s *SevenZip) ExtractArchive(archivePath, outputDir string, overwrite, deleteAfter bool) (err error) {
	s.logger.Info("Extracting %s to %s", archivePath, outputDir)

	if err := checkSignature(archivePath); err != nil {
		return &ExtractionError{Archive: archivePath, Err: err}
	}

	reader, err := sevenzip.OpenReader(archivePath)
	if err != nil {
		return &ExtractionError{Archive: archivePath, Err: err}
	}
	defer func() {
		if closeErr := reader.Close(); closeErr != nil {
			err = multierror.Append(err, &ExtractionError{Archive: archivePath, Err: closeErr}).ErrorOrNil()
		}
	}()

	entries := make([]entry, 0, len(reader.File))
	for _, f := range reader.File {
		target, err := cleanJoin(outputDir, f.Name)
		if err != nil {
			return &ExtractionError{Archive: archivePath, Entry: f.Name, Err: err}
		}
		entries = append(entries, entry{file: f, target: target})
	}
	s.logger.Debug("Archive %s holds %d entries", archivePath, len(entries))

	if err := utils.EnsureDir(outputDir); err != nil {
		return &ExtractionError{Archive: archivePath, Err: err}
	}

	var extracted, skipped int
	var total uint64
	for _, e := range entries {
		wrote, err := s.extractEntry(e, overwrite)
		if err != nil {
			return &ExtractionError{Archive: archivePath, Entry: e.file.Name, Err: err}
		}
		if e.file.FileInfo().IsDir() {
			continue
		}
		if wrote {
			extracted++
			total += e.file.UncompressedSize
		} else {
			skipped++
		}
	}

	s.logger.Info("Extracted %d files (%s) to %s, skipped %d existing",
		extracted, humanize.Bytes(total), outputDir, skipped)

	if deleteAfter {
		if err := os.Remove(archivePath); err != nil {
			return &ExtractionError{Archive: archivePath, Err: fmt.Errorf("failed to delete archive: %w", err)}
		}
		s.logger.Debug("Deleted archive %s", archivePath)
	}
	return nil
}

// extractEntry writes one entry and reports whether a file was written
func (s *SevenZip) extractEntry(e entry, overwrite bool) (bool, error) {
	info := e.file.FileInfo()
	mode := info.Mode()

	switch {
	case mode.IsDir():
		s.logger.Verbose("Creating directory %s", e.target)
		return false, os.MkdirAll(e.target, 0755)
	case !mode.IsRegular():
		return false, fmt.Errorf("unsupported entry type %s", mode.Type())
	}

	if !overwrite {
		if _, err := os.Lstat(e.target); err == nil {
			s.logger.Verbose("Keeping existing %s", e.target)
			return false, nil
		} else if !os.IsNotExist(err) {
			return false, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(e.target), 0755); err != nil {
		return false, err
	}

	s.logger.Verbose("Writing %s (%s)", e.target, humanize.Bytes(e.file.UncompressedSize))
	if err := writeFile(e.file, e.target, mode.Perm()&0755); err != nil {
		return false, err
	}
	return true, nil
}

// writeFile streams f into a temporary sibling of target, checks its CRC-32
// and renames it into place.
func writeFile(f *sevenzip.File, target string, perm os.FileMode) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return err
	}
	keep := false
	defer func() {
		if !keep {
			os.Remove(tmp.Name())
		}
	}()

	sum := crc32.NewIEEE()
	_, err = io.Copy(io.MultiWriter(tmp, sum), rc)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	// a zero CRC means none was recorded
	if f.CRC32 != 0 && sum.Sum32() != f.CRC32 {
		return fmt.Errorf("checksum mismatch: expected %08x, got %08x", f.CRC32, sum.Sum32())
	}

	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return err
	}
	if info, err := os.Lstat(target); err == nil && info.IsDir() {
		return fmt.Errorf("%s exists and is a directory", target)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return err
	}
	keep = true
	return nil
}

func checkSignature(archivePath string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	header := make([]byte, len(sevenZipSignature))
	if _, err := io.ReadFull(f, header); err != nil || !bytes.Equal(header, sevenZipSignature) {
		return ErrUnsupportedFormat
	}
	return nil
}

// cleanJoin resolves dest as a subpath of root, rejecting names that try to
// leave it.
//
//   - ':' is illegal (drive designator on Windows, list separator elsewhere).
//   - '\' is treated as a separator.
//   - '..' components and absolute paths are illegal.
//   - Symlinks already below root are resolved by SecureJoin.
func cleanJoin(root, dest string) (string, error) {
	if strings.Contains(dest, ":") {
		return "", errors.New("path contains ':', which is illegal")
	}

	dest = strings.ReplaceAll(dest, "\\", "/")

	for _, part := range strings.Split(dest, "/") {
		if part == ".." {
			return "", errors.New("path contains '..', which is illegal")
		}
	}

	if path.IsAbs(dest) {
		return "", errors.New("path is absolute, which is illegal")
	}

	return securejoin.SecureJoin(root, dest)
}
