package tracing

import (
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
)

// Span data keys set from the request snapshot.
const (
	DataMethod  = "http.request.method"
	DataQuery   = "http.query"
	DataHeaders = "http.request.headers"
)

// TransactionName returns "<METHOD> <PATH>". The query string is not part
// of the name.
func TransactionName(r *http.Request) string {
	return r.Method + " " + r.URL.Path
}

// QueryString returns the raw query string as received, if the request
// has one.
func QueryString(r *http.Request) (string, bool) {
	if r.URL.RawQuery == "" {
		return "", false
	}
	return r.URL.RawQuery, true
}

// HeaderMap flattens h into a name to value mapping. Repeated headers are
// joined with ", ". Names keep the form the transport delivered them in.
func HeaderMap(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// RequestSnapshot is the request metadata attached to a finished transaction.
type RequestSnapshot struct {
	Method   string
	Query    string
	HasQuery bool
	Headers  map[string]string
}

// Snapshot captures the method, query string and headers of r. The Host
// header, which net/http moves out of r.Header, is put back.
func Snapshot(r *http.Request) RequestSnapshot {
	headers := HeaderMap(r.Header)
	if r.Host != "" {
		if _, ok := headers["Host"]; !ok {
			headers["Host"] = r.Host
		}
	}

	query, hasQuery := QueryString(r)
	return RequestSnapshot{
		Method:   r.Method,
		Query:    query,
		HasQuery: hasQuery,
		Headers:  headers,
	}
}

// Apply attaches the snapshot to span as span data.
func (s RequestSnapshot) Apply(span *sentry.Span) {
	span.SetData(DataMethod, s.Method)
	if s.HasQuery {
		span.SetData(DataQuery, s.Query)
	}
	span.SetData(DataHeaders, s.Headers)
}
