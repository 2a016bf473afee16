package adapter

import (
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// Sentinel errors for remote failures. The coordinator retries only
// [ErrRemoteUnavailable]; everything else is dropped after logging.
var (
	// ErrRemoteUnavailable marks a transient failure: network error, 5xx or
	// throttling. Safe to retry.
	ErrRemoteUnavailable = errors.New("remote store unavailable")

	// ErrRejected marks a permanent rejection (malformed request, missing
	// document root). Retrying will not help.
	ErrRejected = errors.New("remote store rejected request")

	// ErrUnauthorized marks an expired or invalid bearer token.
	ErrUnauthorized = errors.New("remote store rejected credentials")
)

// mapHTTPError translates a resty response status into the sentinel
// taxonomy above, or nil for 2xx.
func mapHTTPError(resp *resty.Response) error {
	code := resp.StatusCode()
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == 401 || code == 403:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, code)
	case code == 429 || code >= 500:
		return fmt.Errorf("%w: status %d", ErrRemoteUnavailable, code)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrRejected, code, resp.String())
	}
}
