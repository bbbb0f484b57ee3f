package service

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/Freeeeeet/thesis_tracker/internal/service")

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal), trace.WithAttributes(attrs...))
}

// endSpan закрывает span, помечая его ошибкой операции
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

var (
	guidanceTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guidance_transitions_total",
			Help: "Guidance session lifecycle operations by action and result",
		},
		[]string{"action", "result"},
	)
	availabilityChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "availability_checks_total",
			Help: "Supervisor availability checks by outcome",
		},
		[]string{"status"},
	)
)

func observeTransition(action string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	guidanceTransitionsTotal.WithLabelValues(action, result).Inc()
}
