// Package http provides the demo HTTP handlers used to exercise the tracing
// fairing.
//
// Routes:
//   - GET /                    service banner
//   - GET /health              health and Sentry status
//   - GET /metrics             Prometheus metrics
//   - GET /performance         waits 500ms
//   - GET /performance?param1=a&param2=2
//     waits 250ms and echoes the parameters
//   - GET /performance/:id     waits id seconds
//   - GET /performance/skip    dropped by DemoSampler
//   - GET /performance/random  kept half the time by DemoSampler
//   - GET /panic?msg=...       panics, reported to Sentry
//
// On traced requests every wait runs inside a child span of the request
// transaction.
package http
