package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jonwraymond/thumbnails/cache"
)

func newRecordingTracer() (Tracer, *tracetest.SpanRecorder) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return NewTracer(tp.Tracer("test")), sr
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracer_FoundSpan(t *testing.T) {
	tracer, sr := newRecordingTracer()

	_, span := tracer.StartSpan(context.Background(), "#small")
	tracer.EndSpan(span, cache.Present("/conf/global/small"), nil)

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != SpanResolve {
		t.Errorf("span name = %q", s.Name())
	}
	if v, _ := attrValue(s.Attributes(), "transformation.name"); v.AsString() != "#small" {
		t.Errorf("transformation.name = %q", v.AsString())
	}
	if v, _ := attrValue(s.Attributes(), "transformation.path"); v.AsString() != "/conf/global/small" {
		t.Errorf("transformation.path = %q", v.AsString())
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v", s.Status().Code)
	}
}

func TestTracer_ErrorSpan(t *testing.T) {
	tracer, sr := newRecordingTracer()

	_, span := tracer.StartSpan(context.Background(), "#small")
	tracer.EndSpan(span, cache.Location{}, errors.New("repository unavailable"))

	s := sr.Ended()[0]
	if s.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", s.Status().Code)
	}
	if v, _ := attrValue(s.Attributes(), "resolve.outcome"); v.AsString() != "error" {
		t.Errorf("resolve.outcome = %q", v.AsString())
	}
	if len(s.Events()) == 0 {
		t.Error("expected error event")
	}
}

func TestTracer_NilUsesNoop(t *testing.T) {
	tracer := NewTracer(nil)
	_, span := tracer.StartSpan(context.Background(), "#x")
	tracer.EndSpan(span, cache.Absent(), nil)
}
