// Package trace builds the OpenTelemetry tracer provider configured by the
// --traces-output option and wraps backends so every call becomes a span.
package trace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/grafana/pincers/internal/build"
	"github.com/grafana/pincers/internal/lib/strvals"
)

const serviceName = "pincers"

var (
	// ErrInvalidTracesOutput indicates that the defined traces output is not valid.
	ErrInvalidTracesOutput = errors.New("invalid traces output")
	// ErrInvalidProto indicates that the defined exporter protocol is not valid.
	ErrInvalidProto = errors.New("invalid protocol")
	// ErrInvalidURLScheme indicates that the defined exporter URL scheme is not valid.
	ErrInvalidURLScheme = errors.New("invalid URL scheme")
	// ErrInvalidGRPCWithURLPath indicates that an exporter using gRPC protocol does not support URL path.
	ErrInvalidGRPCWithURLPath = errors.New("grpc protocol does not support URL path")
)

// TracerProvider hands out tracers and flushes them on Shutdown.
type TracerProvider struct {
	trace.TracerProvider
	shutdown func(ctx context.Context) error
}

type otlpParams struct {
	proto    string
	endpoint string
	urlPath  string
	insecure bool
	headers  map[string]string
}

func defaultOTLPParams() otlpParams {
	return otlpParams{
		proto:    "grpc",
		endpoint: "127.0.0.1:4317",
		insecure: true,
		headers:  make(map[string]string),
	}
}

func newProvider(exporter sdktrace.SpanExporter) *TracerProvider {
	prov := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(build.Version),
		)),
	)

	// Keep third-party instrumentation quiet, only our spans are exported.
	otel.SetTracerProvider(noop.NewTracerProvider())

	return &TracerProvider{TracerProvider: prov, shutdown: prov.Shutdown}
}

func newOTLPProvider(ctx context.Context, params otlpParams) (*TracerProvider, error) {
	var client otlptrace.Client
	switch params.proto {
	case "http":
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(params.endpoint),
			otlptracehttp.WithURLPath(params.urlPath),
			otlptracehttp.WithHeaders(params.headers),
		}
		if params.insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		client = otlptracehttp.NewClient(opts...)
	case "grpc":
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(params.endpoint),
			otlptracegrpc.WithHeaders(params.headers),
		}
		if params.insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		client = otlptracegrpc.NewClient(opts...)
	default:
		return nil, ErrInvalidProto
	}

	exporter, err := otlptrace.New(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}
	return newProvider(exporter), nil
}

// NewNoopTracerProvider returns a provider whose spans go nowhere.
func NewNoopTracerProvider() *TracerProvider {
	return &TracerProvider{
		TracerProvider: noop.NewTracerProvider(),
		shutdown:       func(context.Context) error { return nil },
	}
}

// Shutdown flushes pending spans and releases the exporter. After Shutdown
// all methods are no-ops.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	return tp.shutdown(ctx)
}

// TracerProviderFromConfigLine builds a TracerProvider from a traces output
// line. Supported forms:
//
//	none
//	stdout
//	otel[=<url>][,proto=http|grpc][,header.<name>=<value>]...
//
// stdout writes pretty printed spans to stdout. otel exports over OTLP to
// 127.0.0.1:4317 with gRPC unless told otherwise; an http(s) URL switches to
// the HTTP protocol.
//
// Example: otel=http://127.0.0.1:4318/v1/traces,header.Authorization=token
func TracerProviderFromConfigLine(ctx context.Context, line string, stdout io.Writer) (*TracerProvider, error) {
	output, _, _ := strings.Cut(line, "=")
	switch output {
	case "", "none":
		return NewNoopTracerProvider(), nil
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(stdout), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating stdout exporter: %w", err)
		}
		return newProvider(exporter), nil
	case "otel":
		params, err := otlpParamsFromConfigLine(line)
		if err != nil {
			return nil, err
		}
		return newOTLPProvider(ctx, params)
	default:
		return nil, fmt.Errorf("%w %q", ErrInvalidTracesOutput, output)
	}
}

func otlpParamsFromConfigLine(line string) (otlpParams, error) {
	params := defaultOTLPParams()
	if line == "otel" {
		return params, nil
	}
	line = strings.TrimPrefix(line, "otel,")

	tokens, err := strvals.Parse(line)
	if err != nil {
		return params, fmt.Errorf("error while parsing otel configuration %w", err)
	}

	for _, token := range tokens {
		switch key := token.Key; {
		case key == "otel":
			if err := params.parseURL(token.Value); err != nil {
				return params, fmt.Errorf("couldn't parse the otel URL: %w", err)
			}
		case key == "proto":
			if token.Value != "http" && token.Value != "grpc" {
				return params, fmt.Errorf("couldn't parse the otel proto: %w: %q", ErrInvalidProto, token.Value)
			}
			params.proto = token.Value
		case strings.HasPrefix(key, "header."):
			params.headers[strings.TrimPrefix(key, "header.")] = token.Value
		default:
			return params, fmt.Errorf("unknown otel config key %s", key)
		}
	}

	if params.proto == "grpc" && params.urlPath != "" {
		return params, ErrInvalidGRPCWithURLPath
	}
	return params, nil
}

func (p *otlpParams) parseURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q", ErrInvalidURLScheme, u.Scheme)
	}

	p.proto = "http"
	p.endpoint = u.Host
	p.urlPath = u.Path
	p.insecure = u.Scheme == "http"
	return nil
}
