package history

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStorageUnavailable is wrapped by every error that means a record could
// not be persisted: the log directory could not be created or a log file
// could not be opened or written.
var ErrStorageUnavailable = errors.New("log storage unavailable")

// ValidationError reports a battery skipped because required attributes
// were empty.
type ValidationError struct {
	Battery string
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("battery %s is missing attribute %s", e.Battery, strings.Join(e.Missing, ", "))
}

func storageError(op, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrStorageUnavailable, op, path, err)
}
