package async

import "errors"

var (
	// ErrTimeout reports that an attempt exceeded its window.
	ErrTimeout = errors.New("operation attempt timed out")
	// ErrCancelled reports that the operation was cancelled before completion.
	ErrCancelled = errors.New("operation cancelled")
	// ErrClosed reports that the coordinator has been shut down.
	ErrClosed = errors.New("coordinator closed")
)

// permanentError marks an error as non-retryable.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the coordinator surfaces it immediately instead
// of retrying. Validation and duplicate-name failures use this.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked non-retryable.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
