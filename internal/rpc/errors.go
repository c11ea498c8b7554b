package rpc

import (
	"context"
	"errors"
	"strings"
)

// Providers do not agree on error codes for the failures the watcher has to
// react to, so classification falls back to message matching. Unrecognized
// errors are treated as transient: the cursor is not advanced and the fetch
// is retried, which is safe for every failure mode except a truly broken
// endpoint, and that surfaces as an auth or dial error anyway.

var authMarkers = []string{
	"401",
	"403",
	"unauthorized",
	"forbidden",
	"invalid api key",
	"api key is not allowed",
	"invalid project id",
	"must be authenticated",
}

var rangeMarkers = []string{
	"query returned more than",
	"block range is too",
	"range too large",
	"exceed maximum block range",
	"too many blocks",
	"eth_getlogs is limited",
	"limited to a",
	"response size exceeded",
}

// IsAuthError reports whether the error indicates bad credentials or a
// rejected endpoint. These are fatal: retrying cannot succeed.
func IsAuthError(err error) bool {
	return matchesAny(err, authMarkers)
}

// IsRangeTooLarge reports whether the provider rejected a getLogs query for
// covering too many blocks. The planner reacts by shrinking its chunk size.
func IsRangeTooLarge(err error) bool {
	return matchesAny(err, rangeMarkers)
}

// IsShutdown reports whether the error is a context cancellation rather than
// an RPC failure.
func IsShutdown(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func matchesAny(err error, markers []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range markers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
