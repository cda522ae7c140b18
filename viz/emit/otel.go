package emit

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter turns each event into an OpenTelemetry span.
//
// The span is named after event.Msg and ended immediately; events are points
// in time. Standard fields become algostep.run_id, algostep.index and
// algostep.state; Meta entries become attributes under their own keys, with
// a few well-known keys moved into the algostep namespace.
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	emitter := emit.NewOTelEmitter(tp.Tracer("algostep"))
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter creates an OTelEmitter that records spans on tracer.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit records event as a span.
func (o *OTelEmitter) Emit(event Event) {
	o.emit(context.Background(), event)
}

// EmitBatch records each event as a span under ctx, so a caller holding a
// parent span can group a replayed history beneath it.
func (o *OTelEmitter) EmitBatch(ctx context.Context, events []Event) {
	for _, event := range events {
		o.emit(ctx, event)
	}
}

func (o *OTelEmitter) emit(ctx context.Context, event Event) {
	_, span := o.tracer.Start(ctx, event.Msg)
	defer span.End()

	span.SetAttributes(
		attribute.String("algostep.run_id", event.RunID),
		attribute.Int("algostep.index", event.Index),
		attribute.String("algostep.state", event.State),
	)
	addMetadataAttributes(span, event.Meta)
}

var namespaced = map[string]string{
	"algorithm":   "algostep.algorithm",
	"steps":       "algostep.steps",
	"source":      "algostep.source",
	"interval_ms": "algostep.interval_ms",
}

func addMetadataAttributes(span trace.Span, meta map[string]interface{}) {
	for key, value := range meta {
		attrKey := key
		if ns, ok := namespaced[key]; ok {
			attrKey = ns
		}

		switch v := value.(type) {
		case string:
			span.SetAttributes(attribute.String(attrKey, v))
		case int:
			span.SetAttributes(attribute.Int(attrKey, v))
		case int64:
			span.SetAttributes(attribute.Int64(attrKey, v))
		case float64:
			span.SetAttributes(attribute.Float64(attrKey, v))
		case bool:
			span.SetAttributes(attribute.Bool(attrKey, v))
		case time.Duration:
			span.SetAttributes(attribute.Int64(attrKey, int64(v/time.Millisecond)))
		default:
			span.SetAttributes(attribute.String(attrKey, fmt.Sprintf("%v", v)))
		}
	}
}
