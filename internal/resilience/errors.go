// Package resilience provides the error taxonomy and retry helpers used by
// batch runs: transient-failure classification for registry lookups and the
// sentinel error classes mapped to process exit codes.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
)

// Sentinel error classes. Batch code wraps errors with one of these so the
// CLI can map failures to exit codes and engines can branch without string
// matching.
var (
	// ErrInput marks a malformed record on load. Batch runs skip the record
	// and continue.
	ErrInput = eris.New("input error")

	// ErrValidation marks a write that would violate the record schema. The
	// single write is aborted; prior state is untouched.
	ErrValidation = eris.New("validation error")

	// ErrLookupUnavailable marks a registry timeout or failure. The affected
	// mention degrades to pending rather than failing the batch.
	ErrLookupUnavailable = eris.New("lookup unavailable")

	// ErrStorage marks an I/O failure against the record or relationship
	// store.
	ErrStorage = eris.New("storage error")
)

// ExitCode maps an error to the process exit status: 0 success, 1 input or
// validation failure, 2 storage I/O failure.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrStorage):
		return 2
	default:
		return 1
	}
}

// IsTransient returns true if the error is safe to retry: an explicit
// lookup-unavailable, a network timeout, or a connection-level failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrLookupUnavailable) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"no such host",
		"i/o timeout",
		"tls handshake timeout",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true for status codes that indicate a
// server-side issue safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}
