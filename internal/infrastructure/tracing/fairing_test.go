package tracing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/config"
	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/server"
)

const testDSN = "https://public@sentry.example.com/1"

type harness struct {
	srv       *server.Server
	fairing   *Fairing
	hub       *sentry.Hub
	transport *recordingTransport
	metrics   *monitoring.Metrics
	logs      *observer.ObservedLogs
}

func newHarness(t *testing.T, profile string, values map[string]interface{}, options ...Option) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zapcore.DebugLevel)
	logger := logging.Wrap(zap.New(core))

	h := &harness{
		hub:       sentry.NewHub(nil, sentry.NewScope()),
		transport: &recordingTransport{},
		metrics:   monitoring.NewMetrics(prometheus.NewRegistry()),
		logs:      logs,
	}

	opts := append([]Option{
		WithHub(h.hub),
		WithTransport(h.transport),
		WithMetrics(h.metrics),
	}, options...)
	h.fairing = New(logger, opts...)

	cfg := config.NewLayered(profile).Merge(config.Defaults()).Merge(values)
	h.srv = server.New(cfg, logger)
	require.NoError(t, h.srv.Attach(h.fairing))
	require.NoError(t, h.srv.Ignite(context.Background()))
	t.Cleanup(func() { _ = h.srv.Close(context.Background()) })

	r := h.srv.Router()
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "Hello, world!") })
	r.GET("/users/:id", func(c *gin.Context) { c.String(http.StatusOK, c.Param("id")) })
	r.GET("/limited", func(c *gin.Context) { c.Status(http.StatusTooManyRequests) })
	r.GET("/error", func(c *gin.Context) {
		_ = c.Error(errors.New("handler failed"))
		c.Status(http.StatusBadRequest)
	})
	r.GET("/panic", func(c *gin.Context) { panic("You asked for it!") })
	r.GET("/twice", func(c *gin.Context) {
		h.fairing.OnRequest(c)
		c.Status(http.StatusOK)
	})
	r.GET("/hub", func(c *gin.Context) {
		hub := sentry.GetHubFromContext(c.Request.Context())
		if hub == nil || hub == h.hub {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	return h
}

func (h *harness) do(method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(w, req)
	return w
}

func tracedConfig() map[string]interface{} {
	return map[string]interface{}{
		KeyDSN:              testDSN,
		KeyTracesSampleRate: 1.0,
	}
}

func TestTransactionsEnabled(t *testing.T) {
	never := func(string) float64 { return 0 }

	tests := []struct {
		name    string
		values  map[string]interface{}
		options []Option
		want    bool
	}{
		{
			name:   "zero rate without sampler",
			values: map[string]interface{}{KeyDSN: testDSN},
			want:   false,
		},
		{
			name:   "explicit zero rate",
			values: map[string]interface{}{KeyDSN: testDSN, KeyTracesSampleRate: 0.0},
			want:   false,
		},
		{
			name:   "positive rate",
			values: map[string]interface{}{KeyDSN: testDSN, KeyTracesSampleRate: 0.1},
			want:   true,
		},
		{
			name:    "sampler with zero rate",
			values:  map[string]interface{}{KeyDSN: testDSN},
			options: []Option{WithSampler(never)},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, config.ProfileDebug, tt.values, tt.options...)

			assert.True(t, h.fairing.Enabled())
			assert.Equal(t, tt.want, h.fairing.TransactionsEnabled())
			require.NotNil(t, h.hub.Client())
			assert.Equal(t, tt.want, h.hub.Client().Options().EnableTracing)
		})
	}
}

func TestEnvironmentFromProfile(t *testing.T) {
	tests := []struct {
		profile string
		want    string
	}{
		{config.ProfileDebug, "development"},
		{config.ProfileRelease, "production"},
		{"staging", "staging"},
	}

	for _, tt := range tests {
		t.Run(tt.profile, func(t *testing.T) {
			h := newHarness(t, tt.profile, tracedConfig())

			require.NotNil(t, h.hub.Client())
			assert.Equal(t, tt.want, h.hub.Client().Options().Environment)

			h.do(http.MethodGet, "/", nil)
			txs := h.transport.Transactions()
			require.Len(t, txs, 1)
			assert.Equal(t, tt.want, txs[0].Environment)
		})
	}
}

func TestInertConfigurations(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]interface{}
		message string
	}{
		{"missing dsn", map[string]interface{}{}, "Sentry disabled"},
		{"empty dsn", map[string]interface{}{KeyDSN: ""}, "Sentry disabled"},
		{"malformed dsn", map[string]interface{}{KeyDSN: "invalid"}, "Sentry did not initialize"},
		{"bad sample rate", map[string]interface{}{KeyDSN: testDSN, KeyTracesSampleRate: "often"}, "Sentry not configured"},
		{"sample rate out of range", map[string]interface{}{KeyDSN: testDSN, KeyTracesSampleRate: 2}, "Sentry not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, config.ProfileDebug, tt.values)

			assert.False(t, h.fairing.Enabled())
			assert.False(t, h.fairing.TransactionsEnabled())
			assert.Nil(t, h.fairing.Guard())
			assert.Nil(t, h.hub.Client())
			assert.Equal(t, 1, h.logs.FilterMessage(tt.message).Len())

			w := h.do(http.MethodGet, "/", nil)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Empty(t, h.transport.Events())
		})
	}
}

func TestTransactionPerRequest(t *testing.T) {
	h := newHarness(t, config.ProfileDebug, tracedConfig())

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("custom-key", "custom-value")
	header.Set(RequestIDHeader, "req-123")

	w := h.do(http.MethodGet, "/users/6?param1=value1&param2=value2", header)
	require.Equal(t, http.StatusOK, w.Code)

	txs := h.transport.Transactions()
	require.Len(t, txs, 1)

	tx := txs[0]
	assert.Equal(t, "GET /users/6", tx.Transaction)
	assert.Equal(t, OpHTTPServer, tx.Contexts["trace"]["op"])
	assert.Equal(t, sentry.SpanStatusOK.String(), traceStatus(tx))
	assert.Equal(t, "req-123", tx.Tags["request_id"])

	data := traceData(tx)
	require.NotNil(t, data)
	assert.Equal(t, http.MethodGet, data[DataMethod])
	assert.Equal(t, "param1=value1&param2=value2", data[DataQuery])

	headers, ok := data[DataHeaders].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "application/json", headers["Content-Type"])
	assert.Equal(t, "custom-value", headers["Custom-Key"])

	require.NotNil(t, tx.Request)
	assert.Equal(t, http.MethodGet, tx.Request.Method)
	assert.Equal(t, "param1=value1&param2=value2", tx.Request.QueryString)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.TransactionsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.TransactionsFinished.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.EventsSent.WithLabelValues("transaction")))
	assert.GreaterOrEqual(t, h.logs.FilterMessage("Sending event").Len(), 1)
}

func TestTransactionStatus(t *testing.T) {
	tests := []struct {
		target string
		name   string
		want   sentry.SpanStatus
	}{
		{"/", "GET /", sentry.SpanStatusOK},
		{"/nowhere", "GET /nowhere", sentry.SpanStatusNotFound},
		{"/limited", "GET /limited", sentry.SpanStatusResourceExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			h := newHarness(t, config.ProfileDebug, tracedConfig())
			h.do(http.MethodGet, tt.target, nil)

			txs := h.transport.Transactions()
			require.Len(t, txs, 1)
			assert.Equal(t, tt.name, txs[0].Transaction)
			assert.Equal(t, tt.want.String(), traceStatus(txs[0]))
		})
	}
}

func TestOnRequestIsIdempotent(t *testing.T) {
	h := newHarness(t, config.ProfileDebug, tracedConfig())

	w := h.do(http.MethodGet, "/twice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Len(t, h.transport.Transactions(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.TransactionsStarted))
	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.TransactionsMissing))
}

func TestMissingTransactionUsesPlaceholder(t *testing.T) {
	h := newHarness(t, config.ProfileDebug, tracedConfig())

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/orphan", nil)

	assert.NotPanics(t, func() { h.fairing.OnResponse(c) })

	assert.Empty(t, h.transport.Events())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.TransactionsMissing))
	assert.Equal(t, 1, h.logs.FilterMessage("No transaction for request, finishing placeholder").Len())
}

func TestCustomSampler(t *testing.T) {
	var (
		mu    sync.Mutex
		names []string
	)
	sampler := func(name string) float64 {
		mu.Lock()
		names = append(names, name)
		mu.Unlock()

		if name == "GET /" {
			return 0
		}
		return 1
	}

	h := newHarness(t, config.ProfileDebug, map[string]interface{}{KeyDSN: testDSN}, WithSampler(sampler))

	h.do(http.MethodGet, "/", nil)
	h.do(http.MethodGet, "/users/6", nil)

	txs := h.transport.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, "GET /users/6", txs[0].Transaction)
	assert.ElementsMatch(t, []string{"GET /", "GET /users/6"}, names)
}

func TestHandlerErrorsAreCaptured(t *testing.T) {
	h := newHarness(t, config.ProfileDebug, tracedConfig())

	w := h.do(http.MethodGet, "/error", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	errs := h.transport.Errors()
	require.Len(t, errs, 1)
	require.NotEmpty(t, errs[0].Exception)
	assert.Equal(t, "handler failed", errs[0].Exception[len(errs[0].Exception)-1].Value)

	txs := h.transport.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, sentry.SpanStatusInvalidArgument.String(), traceStatus(txs[0]))
}

func TestPanicsAreCaptured(t *testing.T) {
	h := newHarness(t, config.ProfileDebug, tracedConfig())

	w := h.do(http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	errs := h.transport.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "You asked for it!", errs[0].Message)

	txs := h.transport.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, "GET /panic", txs[0].Transaction)
	assert.Equal(t, sentry.SpanStatusInternalError.String(), traceStatus(txs[0]))

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Panics))
}

func TestErrorsWithoutTransactions(t *testing.T) {
	h := newHarness(t, config.ProfileDebug, map[string]interface{}{KeyDSN: testDSN})

	h.do(http.MethodGet, "/panic", nil)
	h.do(http.MethodGet, "/", nil)

	assert.Len(t, h.transport.Errors(), 1)
	assert.Empty(t, h.transport.Transactions())
}

func TestRequestHubIsCloned(t *testing.T) {
	h := newHarness(t, config.ProfileDebug, map[string]interface{}{KeyDSN: testDSN})

	w := h.do(http.MethodGet, "/hub", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestContinuesIncomingTrace(t *testing.T) {
	h := newHarness(t, config.ProfileDebug, tracedConfig())

	traceID := "0123456789abcdef0123456789abcdef"
	header := http.Header{}
	header.Set(sentry.SentryTraceHeader, traceID+"-0123456789abcdef-1")

	h.do(http.MethodGet, "/", header)

	txs := h.transport.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, traceID, fmt.Sprint(txs[0].Contexts["trace"]["trace_id"]))
}

func TestConcurrentRequests(t *testing.T) {
	h := newHarness(t, config.ProfileDebug, tracedConfig())

	var (
		wg   sync.WaitGroup
		want []string
	)
	for i := 0; i < 20; i++ {
		path := fmt.Sprintf("/users/%d", i)
		want = append(want, "GET "+path)

		wg.Add(1)
		go func() {
			defer wg.Done()
			h.do(http.MethodGet, path, nil)
		}()
	}
	wg.Wait()

	var got []string
	for _, tx := range h.transport.Transactions() {
		got = append(got, tx.Transaction)
	}
	assert.ElementsMatch(t, want, got)
}

func TestShutdownReleasesClient(t *testing.T) {
	h := newHarness(t, config.ProfileDebug, tracedConfig())

	guard := h.fairing.Guard()
	require.NotNil(t, guard)

	require.NoError(t, h.srv.Close(context.Background()))

	assert.True(t, guard.Closed())
	assert.Nil(t, h.hub.Client())
	assert.Nil(t, h.fairing.Guard())
	assert.False(t, h.fairing.Enabled())
	assert.False(t, h.fairing.TransactionsEnabled())
}

func TestReigniteReplacesGuard(t *testing.T) {
	hub := sentry.NewHub(nil, sentry.NewScope())
	f := New(nil, WithHub(hub), WithTransport(&recordingTransport{}))

	cfg := config.NewLayered(config.ProfileRelease).Merge(tracedConfig())
	require.NoError(t, f.OnIgnite(context.Background(), cfg))
	first := f.Guard()
	require.NotNil(t, first)

	require.NoError(t, f.OnIgnite(context.Background(), cfg))
	second := f.Guard()
	require.NotNil(t, second)

	assert.NotSame(t, first, second)
	assert.True(t, first.Closed())
	assert.Same(t, second.Client(), hub.Client())

	// Disabling on re-ignition leaves nothing bound
	require.NoError(t, f.OnIgnite(context.Background(), config.NewLayered(config.ProfileRelease)))
	assert.Nil(t, f.Guard())
	assert.Nil(t, hub.Client())
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	hub := sentry.NewHub(nil, sentry.NewScope())
	transport := &recordingTransport{}
	f := New(nil, WithHub(hub), WithTransport(transport))
	require.NoError(t, f.OnIgnite(context.Background(), config.NewLayered(config.ProfileDebug).Merge(tracedConfig())))
	t.Cleanup(func() { _ = f.OnShutdown(context.Background()) })

	r := gin.New()
	r.Use(f.Middleware())
	r.GET("/performance", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/performance", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	txs := transport.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, "GET /performance", txs[0].Transaction)
}
