package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/mailer/logger"
)

var (
	meter = otel.Meter("github.com/pure-golang/mailer/httpserver")
	// nolint:errcheck // Sync OpenTelemetry instruments never return errors
	requestsCount, _   = meter.Int64Counter("http.request_count")
	requestTimeHist, _ = meter.Int64Histogram("http.request_time", metric.WithUnit("ms"))
	tracer             = otel.Tracer("github.com/pure-golang/mailer/httpserver")
)

// Monitoring traces requests, records request metrics and puts a request
// scoped logger into the context.
func Monitoring(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		log := slog.Default().With("method", r.Method, "path", r.URL.Path, "trace_id", traceID)
		ctx = logger.NewContext(ctx, log)

		w.Header().Set("X-Trace-Id", traceID)
		srw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(srw, r.WithContext(ctx))

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.target", r.URL.Path),
			attribute.Int("http.status_code", srw.status),
		)
		labels := metric.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.Int("http.response.code", srw.status),
		)
		requestsCount.Add(ctx, 1, labels)
		requestTimeHist.Record(ctx, time.Since(started).Milliseconds(), labels)

		if srw.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(srw.status))
			return
		}
		span.SetStatus(codes.Ok, "")
	})
}

// statusWriter keeps the status sent by the handler.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
