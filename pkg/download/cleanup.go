package download

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// CleanupTracker keeps track of files that must not outlive a failed download
type CleanupTracker struct {
	mutex sync.Mutex
	files map[string]bool // filepath -> shouldDelete
}

// NewCleanupTracker creates a new cleanup tracker
func NewCleanupTracker() *CleanupTracker {
	return &CleanupTracker{
		files: make(map[string]bool),
	}
}

// TrackFile marks a file for removal by Cleanup
func (ct *CleanupTracker) TrackFile(filepath string) {
	ct.mutex.Lock()
	defer ct.mutex.Unlock()
	ct.files[filepath] = true
}

// MarkSuccess keeps a file (it was renamed into place or is otherwise wanted)
func (ct *CleanupTracker) MarkSuccess(filepath string) {
	ct.mutex.Lock()
	defer ct.mutex.Unlock()
	ct.files[filepath] = false
}

// Pending returns the files Cleanup would remove, sorted
func (ct *CleanupTracker) Pending() []string {
	ct.mutex.Lock()
	defer ct.mutex.Unlock()

	var out []string
	for path, shouldDelete := range ct.files {
		if shouldDelete {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

// Cleanup removes all files still marked for deletion
func (ct *CleanupTracker) Cleanup() error {
	ct.mutex.Lock()
	defer ct.mutex.Unlock()

	var result *multierror.Error
	for path, shouldDelete := range ct.files {
		if !shouldDelete {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			result = multierror.Append(result, fmt.Errorf("failed to cleanup %s: %w", path, err))
			continue
		}
		delete(ct.files, path)
	}
	return result.ErrorOrNil()
}
