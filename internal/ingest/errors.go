package ingest

import (
	"errors"
	"fmt"
	"net"
)

// ExtractionError reports an unreadable or unsupported source document.
// Never retried; no partial state is written.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("extraction failed: %s", e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// IndexingError reports a failure while embedding or writing to the vector
// index, surfaced after bounded retries.
type IndexingError struct {
	Op  string
	Err error
}

func (e *IndexingError) Error() string {
	return fmt.Sprintf("indexing failed during %s: %v", e.Op, e.Err)
}

func (e *IndexingError) Unwrap() error { return e.Err }

// retryable reports whether an error belongs to the transient network class.
func retryable(err error) bool {
	var ne net.Error
	return errors.As(err, &ne)
}
