// Package tracing installs the global tracer provider that the mail
// pipeline and its transports report spans to.
package tracing

import (
	"io"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type Provider interface {
	trace.TracerProvider
	io.Closer
}

// ProviderBuilder hides how a concrete provider is configured.
type ProviderBuilder func() (Provider, error)

// Init builds the provider and makes it global. On a build error a
// NoopProvider is returned together with the error, so callers may keep
// sending mail without tracing.
func Init(build ProviderBuilder) (Provider, error) {
	provider, err := build()
	if err != nil {
		return &NoopProvider{}, errors.Wrap(err, "failed to load tracing provider")
	}
	if provider == nil {
		return &NoopProvider{}, errors.New("failed to load tracing provider: builder returned nil")
	}

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return provider, nil
}

type NoopProvider struct{ *tracesdk.TracerProvider }

func (NoopProvider) Close() error { return nil }
