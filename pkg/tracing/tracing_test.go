package tracing

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpansReachExporter(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	if err := InitWithExporter("heartx-test", "test", exporter); err != nil {
		t.Fatalf("InitWithExporter: %v", err)
	}

	ctx, parent := StartSpan(context.Background(), "pipeline.Submit")
	parent.SetAttributes(map[string]string{"mode": "attack"})
	_, child := StartSpan(ctx, "remote.Translate")
	child.End(errors.New("connection refused"))
	parent.End(nil)

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	byName := map[string]int{}
	for i, s := range spans {
		byName[s.Name] = i
	}
	childSpan := spans[byName["remote.Translate"]]
	parentSpan := spans[byName["pipeline.Submit"]]
	if childSpan.Status.Code != codes.Error {
		t.Fatalf("child status = %v, want Error", childSpan.Status.Code)
	}
	if childSpan.Parent.SpanID() != parentSpan.SpanContext.SpanID() {
		t.Fatal("child span should be parented to pipeline.Submit")
	}
	if parentSpan.Status.Code != codes.Ok {
		t.Fatalf("parent status = %v, want Ok", parentSpan.Status.Code)
	}
}

func TestNilSpanIsSafe(t *testing.T) {
	var s *Span
	s.SetAttributes(map[string]string{"k": "v"})
	s.End(errors.New("ignored"))
}

type traceFile struct {
	bytes.Buffer
	closed bool
}

func (f *traceFile) Close() error {
	f.closed = true
	return nil
}

func TestShutdownClosesTraceFile(t *testing.T) {
	f := &traceFile{}
	orig := openOutput
	openOutput = func(string) (io.WriteCloser, error) { return f, nil }
	t.Cleanup(func() { openOutput = orig })

	if err := Init("heartx-test", "test", "trace.jsonl"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !f.closed {
		t.Fatal("trace file left open after Shutdown")
	}
	if err := Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}
