package middleware

import (
	"context"
	"time"

	"github.com/absmach/hetfl/pkg/weights"
	"github.com/absmach/hetfl/server"
	"github.com/go-kit/kit/metrics"
)

var _ server.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	loss    metrics.Gauge
	svc     server.Service
}

// Metrics counts and times every call. loss tracks the latest round loss and
// evaluation accuracy, labelled by "measure".
func Metrics(counter metrics.Counter, latency metrics.Histogram, loss metrics.Gauge, svc server.Service) server.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		loss:    loss,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) Step(ctx context.Context) (server.RoundSummary, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "step").Add(1)
		mm.latency.With("method", "step").Observe(time.Since(begin).Seconds())
	}(time.Now())

	resp, err := mm.svc.Step(ctx)
	if err == nil {
		mm.loss.With("measure", "round-loss").Set(resp.Loss)
		mm.loss.With("measure", "update-norm").Set(resp.UpdateNorm)
	}

	return resp, err
}

func (mm *metricsMiddleware) Analytics(ctx context.Context) (server.Analytics, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "analytics").Add(1)
		mm.latency.With("method", "analytics").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Analytics(ctx)
}

func (mm *metricsMiddleware) Evaluate(ctx context.Context) (server.Evaluation, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "evaluate").Add(1)
		mm.latency.With("method", "evaluate").Observe(time.Since(begin).Seconds())
	}(time.Now())

	resp, err := mm.svc.Evaluate(ctx)
	if err == nil {
		mm.loss.With("measure", "test-accuracy").Set(resp.Accuracy)
	}

	return resp, err
}

func (mm *metricsMiddleware) Params(ctx context.Context) weights.Tree {
	return mm.svc.Params(ctx)
}
