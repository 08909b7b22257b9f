package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/vsdcard/internal/executor"
)

// WrapHandler records a span around every invocation of h. A nil tracer
// returns h unchanged.
func WrapHandler(tracer trace.Tracer, h executor.Handler) executor.Handler {
	if tracer == nil {
		return h
	}
	return func(ctx context.Context, cmd *executor.Command) error {
		src := executor.SourceFrom(ctx)
		ctx, span := tracer.Start(ctx, SpanCommandPrefix+cmd.Name,
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(
				attribute.String(AttrCommand, cmd.Raw),
				attribute.Bool(AttrFromFile, src.FromFile),
			),
		)
		defer span.End()

		err := h(ctx, cmd)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		span.SetStatus(codes.Ok, "")
		return nil
	}
}
