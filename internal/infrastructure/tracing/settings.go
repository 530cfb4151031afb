package tracing

import (
	"errors"
	"fmt"
	"math"

	"github.com/getsentry/sentry-go"

	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/config"
)

// Configuration keys read at ignition.
const (
	KeyDSN              = "sentry_dsn"
	KeyTracesSampleRate = "sentry_traces_sample_rate"
	KeyRelease          = "sentry_release"
)

// Settings is the Sentry configuration extracted from a config source.
type Settings struct {
	DSN              string
	TracesSampleRate float64
	Release          string
	Environment      string
}

// Enabled reports whether a connection string was configured.
func (s Settings) Enabled() bool {
	return s.DSN != ""
}

// LoadSettings extracts Settings from src. A missing DSN yields disabled
// settings; a value that cannot be coerced, or a sample rate outside [0,1],
// is an error.
func LoadSettings(src config.Source) (Settings, error) {
	s := Settings{Environment: EnvironmentFor(src.Profile())}

	dsn, err := config.String(src, KeyDSN)
	switch {
	case errors.Is(err, config.ErrMissing):
		return s, nil
	case err != nil:
		return s, err
	}
	s.DSN = dsn

	rate, err := config.Float64Or(src, KeyTracesSampleRate, 0)
	if err != nil {
		return s, err
	}
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return s, fmt.Errorf("config: %s must be within [0, 1], got %v", KeyTracesSampleRate, rate)
	}
	s.TracesSampleRate = rate

	release, err := config.String(src, KeyRelease)
	if err != nil && !errors.Is(err, config.ErrMissing) {
		return s, err
	}
	s.Release = release

	return s, nil
}

// EnvironmentFor maps a configuration profile to a Sentry environment.
func EnvironmentFor(profile string) string {
	switch profile {
	case config.ProfileDebug:
		return "development"
	case config.ProfileRelease:
		return "production"
	default:
		return profile
	}
}

// Sampler decides the probability, in [0,1], that the transaction with the
// given name is sent.
type Sampler func(name string) float64

// tracesSampler adapts s to the client's sampling hook. Results outside
// [0,1] are clamped.
func (s Sampler) tracesSampler() sentry.TracesSampler {
	return func(ctx sentry.SamplingContext) float64 {
		var name string
		if ctx.Span != nil {
			name = ctx.Span.Name
		}

		p := s(name)
		switch {
		case math.IsNaN(p) || p < 0:
			return 0
		case p > 1:
			return 1
		default:
			return p
		}
	}
}
