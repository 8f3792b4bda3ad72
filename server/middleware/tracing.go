package middleware

import (
	"context"

	"github.com/absmach/hetfl/pkg/weights"
	"github.com/absmach/hetfl/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ server.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    server.Service
}

func Tracing(tracer trace.Tracer, svc server.Service) server.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) Step(ctx context.Context) (resp server.RoundSummary, err error) {
	ctx, span := tm.tracer.Start(ctx, "step")
	defer func() {
		span.SetAttributes(
			attribute.Int("round", resp.Round),
			attribute.Float64("loss", resp.Loss),
			attribute.StringSlice("participants", resp.Participants),
		)
		end(span, err)
	}()

	return tm.svc.Step(ctx)
}

func (tm *tracing) Analytics(ctx context.Context) (resp server.Analytics, err error) {
	ctx, span := tm.tracer.Start(ctx, "analytics")
	defer func() {
		span.SetAttributes(attribute.Float64("mean", resp.Mean), attribute.Float64("std", resp.Std))
		end(span, err)
	}()

	return tm.svc.Analytics(ctx)
}

func (tm *tracing) Evaluate(ctx context.Context) (resp server.Evaluation, err error) {
	ctx, span := tm.tracer.Start(ctx, "evaluate")
	defer func() {
		span.SetAttributes(attribute.Float64("accuracy", resp.Accuracy), attribute.Int("active_params", resp.ActiveParams))
		end(span, err)
	}()

	return tm.svc.Evaluate(ctx)
}

func (tm *tracing) Params(ctx context.Context) weights.Tree {
	_, span := tm.tracer.Start(ctx, "params")
	defer span.End()

	return tm.svc.Params(ctx)
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
