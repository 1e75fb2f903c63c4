package proteinagent

import (
	"context"
	"errors"

	"github.com/joeshaw/envdecode"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	TracerNameAnalyzer = "meal-analyzer"
	TracerNameServer   = "protein-server"
	TracerNameLambda   = "protein-lambda"
)

// Resource attribute keys describing how this process analyses meals.
const (
	AttrVisionBackend = attribute.Key("vision.backend")
	AttrVisionModel   = attribute.Key("vision.model_id")
	AttrEntrypoint    = attribute.Key("protein.entrypoint")
)

// OtelConfig names the service in exported telemetry. Exporter endpoints and headers
// are read by the OTLP exporters from the standard OTEL_EXPORTER_OTLP_* variables.
type OtelConfig struct {
	ServiceVersion string `env:"OTEL_SERVICE_VERSION,default=0.1.0"`
	ServiceName    string `env:"OTEL_SERVICE_NAME,default=protein-agent"`
	DeployEnv      string `env:"OTEL_DEPLOY_ENV,default=development"`
}

type otelShutdown func(ctx context.Context) error

// NewResource describes the service plus any analysis attributes, such as the
// vision backend, on top of the SDK defaults.
func NewResource(cfg OtelConfig, attrs ...attribute.KeyValue) (*resource.Resource, error) {
	base := []attribute.KeyValue{
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
		attribute.String("deployment.environment", cfg.DeployEnv),
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(append(base, attrs...)...))
	if err != nil {
		return nil, eris.Wrap(err, "failed to build otel resource")
	}
	return res, nil
}

// InitOtel installs OTLP trace and metric providers as the globals, tagged with attrs,
// and returns them with a shutdown function.
func InitOtel(ctx context.Context, attrs ...attribute.KeyValue) (*sdktrace.TracerProvider, *metric.MeterProvider, otelShutdown, error) {
	var cfg OtelConfig
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, nil, nil, eris.Wrap(err, "failed to decode otel config")
	}

	res, err := NewResource(cfg, attrs...)
	if err != nil {
		return nil, nil, nil, err
	}

	traceExporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient())
	if err != nil {
		return nil, nil, nil, eris.Wrap(err, "failed to create trace exporter")
	}

	metricExporter, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		return nil, nil, nil, eris.Wrap(err, "failed to create metric exporter")
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	meterProvider := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(metricExporter)),
		metric.WithResource(res),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	shutdown := func(ctx context.Context) error {
		err := errors.Join(
			tracerProvider.Shutdown(ctx),
			meterProvider.Shutdown(ctx),
		)
		if err != nil && err.Error() == "gRPC exporter is shutdown" {
			return nil
		}
		return err
	}

	return tracerProvider, meterProvider, shutdown, nil
}
