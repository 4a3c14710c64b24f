package download

import "fmt"

// TransferError reports a failure to retrieve the resource: transport errors,
// non-200 responses and bodies that disagree with Content-Length.
type TransferError struct {
	URL        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *TransferError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download of %s failed with status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("download of %s failed: %v", e.URL, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// IntegrityError reports a digest mismatch
type IntegrityError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("hash mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}
