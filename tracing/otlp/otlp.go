// Package otlp exports mail spans over OTLP/HTTP, e.g. to Jaeger.
package otlp

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"

	"github.com/pure-golang/mailer/tracing"
)

var _ tracing.Provider = (*Provider)(nil)

type Config struct {
	EndPoint    string  `envconfig:"TRACING_ENDPOINT" required:"true"`
	ServiceName string  `envconfig:"SERVICE_NAME" default:"mailer"`
	AppVersion  string  `envconfig:"APP_VERSION"`
	SampleRatio float64 `envconfig:"TRACING_SAMPLE_RATIO" default:"1"`
}

type Provider struct {
	*tracesdk.TracerProvider
}

// Close flushes pending spans and shuts the provider down. Shutdown runs even
// when the flush fails.
func (p *Provider) Close() error {
	ctx := context.Background()
	flushErr := p.ForceFlush(ctx)
	shutdownErr := p.Shutdown(ctx)

	switch {
	case flushErr != nil && shutdownErr != nil:
		return errors.Wrapf(flushErr, "otlp force flush failed (also shutdown failed: %v)", shutdownErr)
	case flushErr != nil:
		return errors.Wrap(flushErr, "otlp force flush failed")
	default:
		return errors.Wrap(shutdownErr, "shutdown otlp provider")
	}
}

func NewProviderBuilder(conf Config) tracing.ProviderBuilder {
	return func() (tracing.Provider, error) {
		if conf.EndPoint == "" {
			return nil, errors.New("empty connection string")
		}
		if conf.ServiceName == "" {
			return nil, errors.New("service name is empty")
		}

		exp, err := otlptrace.New(
			context.Background(),
			otlptracehttp.NewClient(otlptracehttp.WithEndpointURL(conf.EndPoint)),
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create otlp exporter")
		}

		tp := tracesdk.NewTracerProvider(
			tracesdk.WithBatcher(exp),
			tracesdk.WithResource(resource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceNameKey.String(conf.ServiceName),
				semconv.ServiceVersionKey.String(conf.AppVersion),
			)),
			tracesdk.WithSampler(sampler(conf.SampleRatio)),
		)

		return &Provider{TracerProvider: tp}, nil
	}
}

func sampler(ratio float64) tracesdk.Sampler {
	switch {
	case ratio >= 1:
		return tracesdk.AlwaysSample()
	case ratio <= 0:
		return tracesdk.NeverSample()
	default:
		return tracesdk.ParentBased(tracesdk.TraceIDRatioBased(ratio))
	}
}
