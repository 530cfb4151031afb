package tracing

import (
	"net/http"

	"github.com/getsentry/sentry-go"
)

// StatusFromCode maps an HTTP status code to a trace status. Single codes
// take precedence over the range that contains them.
func StatusFromCode(code int) sentry.SpanStatus {
	switch code {
	case http.StatusUnauthorized:
		return sentry.SpanStatusUnauthenticated
	case http.StatusForbidden:
		return sentry.SpanStatusPermissionDenied
	case http.StatusNotFound:
		return sentry.SpanStatusNotFound
	case http.StatusConflict:
		return sentry.SpanStatusAlreadyExists
	case http.StatusTooManyRequests:
		return sentry.SpanStatusResourceExhausted
	case http.StatusNotImplemented:
		return sentry.SpanStatusUnimplemented
	case http.StatusServiceUnavailable:
		return sentry.SpanStatusUnavailable
	}

	switch {
	case code >= 100 && code < 400:
		return sentry.SpanStatusOK
	case code >= 400 && code < 500:
		return sentry.SpanStatusInvalidArgument
	case code >= 500 && code < 600:
		return sentry.SpanStatusInternalError
	default:
		return sentry.SpanStatusUnknown
	}
}
