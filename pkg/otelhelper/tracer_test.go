package otelhelper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpanAndSetError(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer("test")

	_, span := StartSpan(context.Background(), tracer, "workflow.save", attribute.String(WorkflowIDKey, "wf-1"))
	SetError(span, errors.New("store offline"), attribute.String(WorkflowIDKey, "wf-1"))
	span.End()

	spans := recorder.Ended()
	if assert.Len(t, spans, 1) {
		assert.Equal(t, "workflow.save", spans[0].Name())
		assert.Equal(t, codes.Error, spans[0].Status().Code)
		assert.Equal(t, "store offline", spans[0].Status().Description)
		assert.Contains(t, spans[0].Attributes(), attribute.String(WorkflowIDKey, "wf-1"))

		if assert.Len(t, spans[0].Events(), 2) {
			// RecordError adds the exception event before ours
			assert.Equal(t, "error_occurred", spans[0].Events()[1].Name)
			assert.Contains(t, spans[0].Events()[1].Attributes, attribute.String(ErrorTypeKey, "*errors.errorString"))
		}
	}
}

func TestSetError_Nil(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := StartSpan(context.Background(), provider.Tracer("test"), "workflow.load")
	SetError(span, nil)
	span.End()

	spans := recorder.Ended()
	if assert.Len(t, spans, 1) {
		assert.Equal(t, codes.Unset, spans[0].Status().Code)
		assert.Empty(t, spans[0].Events())
	}
}

func TestNoopTracer(t *testing.T) {
	t.Parallel()

	_, span := StartSpan(context.Background(), NoopTracer(), "noop")
	defer span.End()

	assert.False(t, span.IsRecording())
}
