package cli

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"salesdw/internal/config"
	"salesdw/internal/metrics"
	"salesdw/internal/metrics/datadog"
	"salesdw/internal/metrics/prompush"
)

// setupMetrics installs the configured backend. The returned func flushes
// it and restores the previous backend; call it once the run is over.
func setupMetrics(m config.Metrics, log *zap.Logger) (func(), error) {
	var (
		b   metrics.Backend
		err error
	)
	switch strings.ToLower(m.Backend) {
	case "", "none":
		log.Debug("metrics disabled")
		return func() {}, nil
	case "pushgateway":
		b, err = prompush.NewBackend(m.Job, m.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       m.DatadogAddr,
			Namespace:  m.DatadogNamespace,
			GlobalTags: m.DatadogTags,
		})
	default:
		return nil, fmt.Errorf("unknown metrics backend %q", m.Backend)
	}
	if err != nil {
		return nil, err
	}

	log.Info("metrics enabled", zap.String("backend", m.Backend), zap.String("job", m.Job))
	prev := metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush failed", zap.Error(err))
		}
		metrics.SetBackend(prev)
	}, nil
}
