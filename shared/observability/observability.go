package observability

import (
	"context"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// SetupTracing initializes OpenTelemetry tracing with stdout exporter (replace with OTLP in prod)
func SetupTracing(serviceName string) func() {
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		log.Fatalf("failed to initialize stdouttrace exporter: %v", err)
	}
	res, _ := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	provider := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return func() { _ = provider.Shutdown(context.Background()) }
}

// SetupPrometheusMetrics initializes the Prometheus metrics exporter and exposes /metrics
func SetupPrometheusMetrics() *sdkmetric.MeterProvider {
	exp, err := otelprom.New()
	if err != nil {
		log.Fatalf("failed to initialize prometheus exporter: %v", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
	otel.SetMeterProvider(mp)
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		_ = http.ListenAndServe(":2112", nil)
	}()
	return mp
}

// ChatMetrics carries the counters the fan-out routers report to.
type ChatMetrics struct {
	MessagesPublished metric.Int64Counter
	DeliveryFailures  metric.Int64Counter
}

// NewChatMetrics registers the chat delivery counters on the global meter.
func NewChatMetrics() *ChatMetrics {
	meter := otel.Meter("taskmanager/backend/chat")

	published, err := meter.Int64Counter("chat_messages_published",
		metric.WithDescription("Messages handed to the fan-out router"))
	if err != nil {
		log.Printf("failed to register chat_messages_published counter: %v", err)
	}
	failures, err := meter.Int64Counter("chat_delivery_failures",
		metric.WithDescription("Per-recipient delivery failures (logged and swallowed)"))
	if err != nil {
		log.Printf("failed to register chat_delivery_failures counter: %v", err)
	}

	return &ChatMetrics{
		MessagesPublished: published,
		DeliveryFailures:  failures,
	}
}
