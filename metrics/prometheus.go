package metrics

import (
	"sync"

	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

var (
	initOnce sync.Once
	initErr  error
)

// InitPrometheus installs a global meter provider backed by the Prometheus
// exporter. Instruments created earlier through otel.Meter, such as the mail
// counters, are bound to it. Only the first call has an effect.
func InitPrometheus() error {
	initOnce.Do(func() {
		exporter, err := prometheus.New()
		if err != nil {
			initErr = errors.Wrap(err, "failed to create prometheus instance")
			return
		}
		provider := metric.NewMeterProvider(metric.WithReader(exporter))

		otel.SetMeterProvider(provider)

		if err := runtime.Start(runtime.WithMeterProvider(provider)); err != nil {
			initErr = errors.Wrap(err, "failed to start runtime")
		}
	})
	return initErr
}
