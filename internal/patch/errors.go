package patch

import (
	"errors"
	"fmt"
)

var (
	// ErrDownloadFailed is the reason of an ApplyError when the patch archive couldn't be fetched.
	ErrDownloadFailed = errors.New("patch archive download failed")

	// ErrExtractFailed is the reason of an ApplyError when the patch archive couldn't be unpacked.
	ErrExtractFailed = errors.New("patch archive extraction failed")

	// ErrInvalidPath is recorded for manifest paths which don't designate anything below their root.
	ErrInvalidPath = errors.New("invalid manifest path")
)

// ApplyError is returned when a version couldn't be applied at all.
type ApplyError struct {
	Version string

	// Reason is ErrDownloadFailed or ErrExtractFailed.
	Reason error
	Err    error
}

func (e *ApplyError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("%v: %v", e.Reason, e.Err)
	}

	return fmt.Sprintf("version %s: %v: %v", e.Version, e.Reason, e.Err)
}

// Unwrap allows matching both the reason and the underlying error.
func (e *ApplyError) Unwrap() []error {
	return []error{e.Reason, e.Err}
}
