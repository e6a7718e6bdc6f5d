package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a terminal fetch failure.
type Kind string

const (
	KindTimeout           Kind = "timeout"
	KindConnectionFailure Kind = "connection_failure"
	KindNotFound          Kind = "not_found"
	KindHTTPError         Kind = "http_error"
)

// FetchError is the terminal failure surfaced after the retry budget is
// exhausted, or immediately for not-found responses.
type FetchError struct {
	Kind     Kind
	URL      string
	Status   int   // HTTP status of the last attempt, 0 for network failures
	Attempts int   // attempts actually performed
	Err      error // underlying network error, if any
}

func (e *FetchError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %s after %d attempts: %v", e.URL, e.Kind, e.Attempts, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("fetch %s: %s (status %d) after %d attempts", e.URL, e.Kind, e.Status, e.Attempts)
	default:
		return fmt.Sprintf("fetch %s: %s after %d attempts", e.URL, e.Kind, e.Attempts)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a terminal not-found fetch failure.
func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindNotFound
}

// classifyNetError maps a transport-level error to a failure kind.
// Timeouts (including context deadlines) are distinguished from connection
// failures such as refused connections and DNS errors.
func classifyNetError(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindConnectionFailure
}

// retryableStatus is the HTTP status set that signals a transient server
// condition worth retrying.
var retryableStatus = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}
