package http

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/tracing"
)

// Transactions the demo sampler treats specially.
const (
	SkippedTransaction = "GET /performance/skip"
	RandomTransaction  = "GET /performance/random"
)

// DemoSampler drops the skip route, keeps half of the random route and
// samples everything else at defaultRate.
func DemoSampler(defaultRate float64, logger *logging.Logger) tracing.Sampler {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("sampler")

	return func(name string) float64 {
		switch name {
		case SkippedTransaction:
			logger.Debug("Dropping performance transaction", zap.String("transaction", name))
			return 0
		case RandomTransaction:
			logger.Debug("Sending performance transaction half the time", zap.String("transaction", name))
			return 0.5
		default:
			return defaultRate
		}
	}
}
