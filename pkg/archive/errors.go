package archive

import "fmt"

// ExtractionError reports an archive that could not be unpacked: unreadable
// or unsupported formats, corrupt data and entries that would escape the
// output directory.
type ExtractionError struct {
	Archive string
	Entry   string // empty when the failure is not tied to one entry
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("failed to extract %s from %s: %v", e.Entry, e.Archive, e.Err)
	}
	return fmt.Sprintf("failed to extract %s: %v", e.Archive, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
