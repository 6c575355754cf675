package patch

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// OpStatus is the outcome of a single patch operation.
type OpStatus string

const (
	// OpOK means the operation completed.
	OpOK OpStatus = "ok"

	// OpSkipped means there was nothing to do.
	OpSkipped OpStatus = "skipped"

	// OpFailed means the operation failed. The patch carries on regardless.
	OpFailed OpStatus = "failed"
)

// OpKindExternalFile is the kind of the operations fetching external files.
const OpKindExternalFile = "external_file"

// OpResult records the outcome of one manifest action or external file.
type OpResult struct {
	// Kind is the action type, or OpKindExternalFile.
	Kind   string
	Target string
	Status OpStatus
	Err    error
}

// Report lists the outcome of every operation performed for a version.
type Report struct {
	Version string
	Ops     []OpResult
}

func (r *Report) add(op OpResult) {
	r.Ops = append(r.Ops, op)
}

// Count returns the number of operations with the given status.
func (r *Report) Count(status OpStatus) int {
	count := 0

	for _, op := range r.Ops {
		if op.Status == status {
			count++
		}
	}

	return count
}

// Err returns the failed operations as a single error, nil if none failed.
func (r *Report) Err() error {
	var errs *multierror.Error

	for _, op := range r.Ops {
		if op.Status != OpFailed {
			continue
		}

		errs = multierror.Append(errs, fmt.Errorf("%s %q: %w", op.Kind, op.Target, op.Err))
	}

	return errs.ErrorOrNil()
}
