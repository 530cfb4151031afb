package tracing

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/config"
	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/server"
)

const (
	// FairingName is the name the fairing registers under.
	FairingName = "sentry"

	// OpHTTPServer is the operation of every request transaction.
	OpHTTPServer = "http.server"

	// InvalidTransactionName names the placeholder finished when a response
	// finds no transaction for its request. Placeholders are never sent.
	InvalidTransactionName = "INVALID TRANSACTION"

	// RequestIDHeader is copied onto the transaction as the request_id tag.
	RequestIDHeader = "X-Request-ID"
)

// Option configures a Fairing.
type Option func(*Fairing)

// WithSampler installs a custom sampler. A sampler enables transactions even
// when the configured sample rate is zero.
func WithSampler(s Sampler) Option {
	return func(f *Fairing) {
		f.sampler = s
	}
}

// WithHub binds the client to hub instead of the process-wide current hub.
func WithHub(hub *sentry.Hub) Option {
	return func(f *Fairing) {
		if hub != nil {
			f.hub = hub
		}
	}
}

// WithTransport replaces the HTTP transport of the client.
func WithTransport(t sentry.Transport) Option {
	return func(f *Fairing) {
		f.transport = t
	}
}

// WithMetrics records transaction and event counts in m.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(f *Fairing) {
		f.metrics = m
	}
}

// WithFlushTimeout bounds how long shutdown waits for buffered events.
func WithFlushTimeout(d time.Duration) Option {
	return func(f *Fairing) {
		if d > 0 {
			f.flushTimeout = d
		}
	}
}

// Fairing attaches Sentry error reporting and request tracing to a server.
type Fairing struct {
	logger       *logging.Logger
	metrics      *monitoring.Metrics
	sampler      Sampler
	hub          *sentry.Hub
	transport    sentry.Transport
	flushTimeout time.Duration
	slot         *server.Local[*sentry.Span]

	mu           sync.Mutex
	guard        *Guard
	active       atomic.Bool
	transactions atomic.Bool
}

var (
	_ server.Fairing         = (*Fairing)(nil)
	_ server.RequestFairing  = (*Fairing)(nil)
	_ server.ResponseFairing = (*Fairing)(nil)
	_ server.AroundFairing   = (*Fairing)(nil)
	_ server.ShutdownFairing = (*Fairing)(nil)
)

// New creates an inert fairing. It becomes active when ignited with a
// configuration holding a valid DSN.
func New(logger *logging.Logger, options ...Option) *Fairing {
	if logger == nil {
		logger = logging.NewNop()
	}

	f := &Fairing{
		logger:       logger.Named("tracing"),
		hub:          sentry.CurrentHub(),
		flushTimeout: defaultFlushTimeout,
		slot:         server.NewLocal[*sentry.Span]("tracing.transaction"),
	}
	for _, o := range options {
		o(f)
	}
	return f
}

// Name implements server.Fairing.
func (f *Fairing) Name() string {
	return FairingName
}

// OnIgnite reads the Sentry settings from src and initializes the client.
// Configuration problems are logged and leave the fairing inert; they never
// abort ignition. Igniting again replaces the previous client.
func (f *Fairing) OnIgnite(ctx context.Context, src config.Source) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reset()

	settings, err := LoadSettings(src)
	if err != nil {
		f.logger.Error("Sentry not configured", zap.Error(err))
		return nil
	}
	if !settings.Enabled() {
		f.logger.Info("Sentry disabled")
		return nil
	}

	traced := settings.TracesSampleRate > 0 || f.sampler != nil
	client, err := sentry.NewClient(f.clientOptions(settings, traced))
	if err != nil {
		f.logger.Error("Sentry did not initialize", zap.Error(err))
		return nil
	}

	f.guard = newGuard(f.hub, client, f.flushTimeout)
	f.active.Store(true)
	f.transactions.Store(traced)

	f.logger.Info("Sentry enabled",
		zap.String("environment", settings.Environment),
		zap.Float64("traces_sample_rate", settings.TracesSampleRate),
		zap.Bool("custom_sampler", f.sampler != nil),
		zap.Bool("transactions", traced),
	)
	return nil
}

// OnShutdown closes the guard, flushing buffered events.
func (f *Fairing) OnShutdown(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.guard == nil {
		return nil
	}
	f.reset()
	f.logger.Info("Sentry client closed")
	return nil
}

// OnRequest opens the request transaction and stores it in the request's
// slot. Calling it again for the same request returns the stored
// transaction without starting another.
func (f *Fairing) OnRequest(c *gin.Context) {
	if !f.transactions.Load() {
		return
	}
	f.slot.GetOrInit(c, func() *sentry.Span {
		return f.startTransaction(c)
	})
}

// OnResponse finishes the request transaction with a status taken from the
// response code. Without a stored transaction a placeholder is finished
// instead, which is logged and never sent.
func (f *Fairing) OnResponse(c *gin.Context) {
	if !f.transactions.Load() {
		return
	}
	f.finish(c, c.Writer.Status())
}

// Around runs OnRequest, next and OnResponse with the request hub attached.
// Errors recorded with c.Error are captured. A panic from next is captured,
// finishes the transaction as an internal error and is then re-raised.
func (f *Fairing) Around(c *gin.Context, next func()) {
	hub := f.requestHub(c)
	if hub == nil {
		next()
		return
	}

	defer func() {
		if err := recover(); err != nil {
			f.capturePanic(c, hub, err)
			panic(err)
		}
	}()

	f.OnRequest(c)
	next()
	f.captureErrors(c, hub)
	f.OnResponse(c)
}

// Middleware returns the fairing as a gin middleware, for engines that are
// not run by server.Server. The fairing must still be ignited.
func (f *Fairing) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		f.Around(c, c.Next)
	}
}

// Enabled reports whether a Sentry client is active.
func (f *Fairing) Enabled() bool {
	return f.active.Load()
}

// TransactionsEnabled reports whether requests are traced.
func (f *Fairing) TransactionsEnabled() bool {
	return f.transactions.Load()
}

// Guard returns the active client guard, or nil when the fairing is inert.
func (f *Fairing) Guard() *Guard {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.guard
}

// reset closes the current guard and disables the fairing. Callers hold mu.
func (f *Fairing) reset() {
	f.active.Store(false)
	f.transactions.Store(false)

	if f.guard != nil {
		if !f.guard.Close() {
			f.logger.Warn("Sentry flush timed out", zap.Duration("timeout", f.flushTimeout))
		}
		f.guard = nil
	}
}

// clientOptions builds the client options for s. traced enables tracing in
// the client and must match the fairing's transactions flag.
func (f *Fairing) clientOptions(s Settings, traced bool) sentry.ClientOptions {
	opts := sentry.ClientOptions{
		Dsn:                   s.DSN,
		Environment:           s.Environment,
		Release:               s.Release,
		EnableTracing:         traced,
		TracesSampleRate:      s.TracesSampleRate,
		BeforeSend:            f.beforeSend,
		BeforeSendTransaction: f.beforeSend,
		Transport:             f.transport,
	}
	if f.sampler != nil {
		opts.TracesSampler = f.sampler.tracesSampler()
	}
	return opts
}

func (f *Fairing) beforeSend(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	kind := "error"
	if event.Type == "transaction" {
		kind = "transaction"
	}

	f.logger.Info("Sending event",
		zap.String("event_id", string(event.EventID)),
		zap.String("kind", kind),
	)
	f.metrics.EventSent(kind)
	return event
}

// requestHub returns the hub carried by the request, attaching a clone of
// the bound hub on first use. It returns nil when the fairing is inert.
func (f *Fairing) requestHub(c *gin.Context) *sentry.Hub {
	if !f.active.Load() {
		return nil
	}

	ctx := c.Request.Context()
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}

	hub := f.hub.Clone()
	hub.Scope().SetRequest(c.Request)
	c.Request = c.Request.WithContext(sentry.SetHubOnContext(ctx, hub))
	return hub
}

func (f *Fairing) startTransaction(c *gin.Context) *sentry.Span {
	f.requestHub(c)

	r := c.Request
	span := sentry.StartTransaction(r.Context(), TransactionName(r),
		sentry.WithOpName(OpHTTPServer),
		sentry.WithTransactionSource(sentry.SourceURL),
		sentry.ContinueFromHeaders(r.Header.Get(sentry.SentryTraceHeader), r.Header.Get(sentry.SentryBaggageHeader)),
	)
	c.Request = r.WithContext(span.Context())
	f.metrics.TransactionStarted()
	return span
}

// placeholder builds the unsampled stand-in for a missing transaction. It
// starts from a fresh context so it never joins a span already on the request.
func (f *Fairing) placeholder(c *gin.Context) *sentry.Span {
	hub := sentry.GetHubFromContext(c.Request.Context())
	if hub == nil {
		hub = sentry.NewHub(nil, sentry.NewScope())
	}

	ctx := sentry.SetHubOnContext(context.Background(), hub)
	return sentry.StartTransaction(ctx, InvalidTransactionName,
		sentry.WithOpName(OpHTTPServer),
		sentry.WithSpanSampled(sentry.SampledFalse),
	)
}

func (f *Fairing) finish(c *gin.Context, code int) {
	span, ok := f.slot.Take(c)
	if !ok {
		f.logger.Warn("No transaction for request, finishing placeholder",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		f.metrics.TransactionMissing()
		finishSpan(f.placeholder(c), c.Request, code)
		return
	}

	status := finishSpan(span, c.Request, code)
	f.metrics.TransactionFinished(status.String())
}

// finishSpan applies the response status and request snapshot to span and
// finishes it. The request id is read here since middleware behind the
// fairing may assign it.
func finishSpan(span *sentry.Span, r *http.Request, code int) sentry.SpanStatus {
	span.Status = StatusFromCode(code)
	Snapshot(r).Apply(span)
	if id := r.Header.Get(RequestIDHeader); id != "" {
		span.SetTag("request_id", id)
	}
	span.Finish()
	return span.Status
}

func (f *Fairing) capturePanic(c *gin.Context, hub *sentry.Hub, err interface{}) {
	f.metrics.PanicCaptured()

	eventID := hub.RecoverWithContext(c.Request.Context(), err)
	f.logger.Error("Captured panic",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("panic", fmt.Sprint(err)),
		eventIDField(eventID),
	)

	if !f.transactions.Load() {
		return
	}
	if span, ok := f.slot.Take(c); ok {
		status := finishSpan(span, c.Request, http.StatusInternalServerError)
		f.metrics.TransactionFinished(status.String())
	}
}

func (f *Fairing) captureErrors(c *gin.Context, hub *sentry.Hub) {
	for _, e := range c.Errors {
		eventID := hub.CaptureException(e.Err)
		f.logger.Debug("Captured handler error", zap.Error(e.Err), eventIDField(eventID))
	}
}

func eventIDField(id *sentry.EventID) zap.Field {
	if id == nil {
		return zap.Skip()
	}
	return zap.String("event_id", string(*id))
}
