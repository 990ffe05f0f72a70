// Package otel owns the OpenTelemetry log pipeline: an sdk/log provider
// exporting to the session log file and, when an endpoint is configured,
// to an OTLP collector. The provider plugs into internal/logging through
// the otelslog bridge.
package otel

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config selects the export targets. When Enabled, at least one of
// LogWriter and Endpoint must be set.
type Config struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	LogWriter    io.Writer // pretty-printed record export, usually the session log file
	Endpoint     string    // OTLP/HTTP collector, exported alongside the file when set
	Insecure     bool      // plain HTTP for the OTLP exporter
}

// Provider holds the log provider for the bridge handler. The zero-ish
// provider returned for a disabled Config is inert: LoggerProvider is nil
// and Shutdown is a no-op.
type Provider struct {
	logProvider *sdklog.LoggerProvider
}

// New builds the provider. Disabled configs yield an inert provider and
// no error.
func New(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}

	ctx := context.Background()
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var processors []sdklog.Processor

	if cfg.LogWriter != nil {
		proc, err := fileProcessor(cfg)
		if err != nil {
			return nil, err
		}
		processors = append(processors, proc)
	}
	if cfg.Endpoint != "" {
		proc, err := otlpProcessor(ctx, cfg)
		if err != nil {
			return nil, err
		}
		processors = append(processors, proc)
	}
	if len(processors) == 0 {
		return nil, fmt.Errorf("OTel enabled but no log writer or endpoint configured")
	}

	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	for _, proc := range processors {
		opts = append(opts, sdklog.WithProcessor(proc))
	}

	return &Provider{logProvider: sdklog.NewLoggerProvider(opts...)}, nil
}

// fileProcessor batches records into the configured writer as
// pretty-printed JSON.
func fileProcessor(cfg Config) (sdklog.Processor, error) {
	exporter, err := stdoutlog.New(
		stdoutlog.WithWriter(cfg.LogWriter),
		stdoutlog.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create file log exporter: %w", err)
	}
	return sdklog.NewBatchProcessor(exporter,
		sdklog.WithExportTimeout(cfg.BatchTimeout),
	), nil
}

// otlpProcessor batches records to the configured OTLP/HTTP endpoint.
func otlpProcessor(ctx context.Context, cfg Config) (sdklog.Processor, error) {
	opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploghttp.WithInsecure())
	}
	exporter, err := otlploghttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}
	return sdklog.NewBatchProcessor(exporter,
		sdklog.WithExportTimeout(cfg.BatchTimeout),
	), nil
}

// LoggerProvider exposes the provider for the otelslog bridge. Nil when
// the provider is inert.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logProvider
}

// Shutdown flushes pending records and stops the exporters.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.logProvider == nil {
		return nil
	}
	if err := p.logProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("log shutdown failed: %w", err)
	}
	return nil
}
