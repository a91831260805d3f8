package reliability

import "fmt"

// PersistenceError reports a local storage failure. Already-committed
// writes are unaffected; only the triggering operation fails.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// TransportError reports an upstream or remote call failure. Status is
// zero when the failure happened before an HTTP response arrived.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("transport %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is worth retrying at a higher layer.
func (e *TransportError) Retryable() bool {
	if e.Status == 0 {
		return true
	}
	return IsRetryableHTTPStatus(e.Status)
}
