// Package service runs WKD lookups: it resolves both discovery methods for a
// user ID concurrently and joins them into a Report.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"wkd-tester/internal/wkd/domain"
	"wkd-tester/internal/wkd/fetch"
	"wkd-tester/internal/wkd/metrics"
	"wkd-tester/internal/wkd/validate"
	"wkd-tester/pkg/requestcontext"
)

const tracerName = "wkd-tester/internal/wkd/service"

// Service checks a user ID against both WKD methods.
type Service struct {
	fetcher fetch.Fetcher
	probes  bool
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger used for lookup summaries.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithProbes enables or disables the HEAD, index and policy hygiene probes.
func WithProbes(enabled bool) Option {
	return func(s *Service) {
		s.probes = enabled
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// New creates a Service that performs all HTTP through fetcher.
func New(fetcher fetch.Fetcher, opts ...Option) *Service {
	s := &Service{
		fetcher: fetcher,
		probes:  true,
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup parses raw and checks both methods. An invalid user ID fails before
// any network activity; every other problem is reported inside the Report.
func (s *Service) Lookup(ctx context.Context, raw string) (*domain.Report, error) {
	id, err := domain.ParseUserID(raw)
	if err != nil {
		s.metrics.IncrementInvalidUserID()
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "wkd.Lookup", trace.WithAttributes(
		attribute.String("wkd.domain", id.Domain()),
	))
	defer span.End()

	start := time.Now()
	uris := domain.BuildURIs(id, domain.HashLocalPart(id.Local()))
	p := pipeline{fetcher: s.fetcher, validator: s.validator(), id: id}

	// The group only joins; no method cancels or short-circuits the other.
	var g errgroup.Group
	methods := domain.Methods()
	results := make([]domain.MethodResult, len(methods))
	for i, m := range methods {
		g.Go(func() error {
			results[i] = s.check(ctx, p, built{method: m, uri: uris.For(m)})
			return nil
		})
	}
	_ = g.Wait()

	report := domain.NewReport(raw, results[0], results[1])
	duration := time.Since(start)
	s.metrics.ObserveLookupLatency(duration)

	if !report.Direct.OK() && !report.Advanced.OK() {
		span.SetStatus(codes.Error, "no method resolved a key")
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "wkd lookup completed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", raw,
			"direct_ok", report.Direct.OK(),
			"advanced_ok", report.Advanced.OK(),
			"duration_ms", duration.Milliseconds(),
		)
	}

	return report, nil
}

func (s *Service) check(ctx context.Context, p pipeline, start built) domain.MethodResult {
	ctx, span := s.tracer.Start(ctx, "wkd.Method", trace.WithAttributes(
		attribute.String("wkd.method", start.method.String()),
		attribute.String("wkd.uri", start.uri.String()),
	))
	defer span.End()

	begin := time.Now()
	final := p.run(ctx, start)
	result := final.result()

	s.metrics.ObserveMethodLatency(start.method.String(), time.Since(begin))
	s.metrics.IncrementOutcome(start.method.String(), final.outcome())

	span.SetAttributes(
		attribute.String("wkd.outcome", final.outcome()),
		attribute.Int("wkd.errors", len(result.Errors)),
		attribute.Int("wkd.warnings", len(result.Warnings)),
	)
	if len(result.Errors) > 0 {
		span.SetStatus(codes.Error, string(result.Errors[0].Code))
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "wkd method checked",
			"method", start.method.String(),
			"uri", start.uri.String(),
			"outcome", final.outcome(),
			"errors", len(result.Errors),
			"warnings", len(result.Warnings),
		)
	}
	return result
}

func (s *Service) validator() *validate.Validator {
	opts := []validate.Option{validate.WithLogger(s.logger)}
	if s.probes {
		opts = append(opts, validate.WithProbes(s.fetcher))
	}
	return validate.New(opts...)
}
