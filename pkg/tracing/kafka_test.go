package tracing

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestKafkaHeaders_RoundTripTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	if err != nil {
		t.Fatalf("trace id: %v", err)
	}
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	if err != nil {
		t.Fatalf("span id: %v", err)
	}
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := InjectKafkaHeaders(ctx, []kafka.Header{
		{Key: "correlation_id", Value: []byte("c1")},
	})

	var traceparent string
	for _, h := range headers {
		if h.Key == "traceparent" {
			traceparent = string(h.Value)
		}
	}
	if traceparent == "" {
		t.Fatal("traceparent header not injected")
	}

	// A reply carrying these headers resumes the originating trace.
	got := trace.SpanContextFromContext(ExtractKafkaHeaders(context.Background(), headers))
	if got.TraceID() != traceID {
		t.Errorf("extracted trace id = %s, want %s", got.TraceID(), traceID)
	}
	if got.SpanID() != spanID {
		t.Errorf("extracted span id = %s, want %s", got.SpanID(), spanID)
	}
}

func TestExtractKafkaHeaders_NoTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	ctx := ExtractKafkaHeaders(context.Background(), []kafka.Header{
		{Key: "correlation_id", Value: []byte("c1")},
	})
	if trace.SpanContextFromContext(ctx).IsValid() {
		t.Error("expected no span context from headers without traceparent")
	}
}
