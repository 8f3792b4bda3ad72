package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/hetfl/pkg/weights"
	"github.com/absmach/hetfl/server"
)

var _ server.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    server.Service
}

func Logging(logger *slog.Logger, svc server.Service) server.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) Step(ctx context.Context) (resp server.RoundSummary, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("round",
				slog.Int("number", resp.Round),
				slog.Float64("loss", resp.Loss),
				slog.Float64("update_norm", resp.UpdateNorm),
				slog.Int("participants", len(resp.Participants)),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.WarnContext(ctx, "Round failed", args...)

			return
		}
		lm.logger.InfoContext(ctx, "Round completed successfully", args...)
	}(time.Now())

	return lm.svc.Step(ctx)
}

func (lm *loggingMiddleware) Analytics(ctx context.Context) (resp server.Analytics, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("analytics",
				slog.Float64("mean", resp.Mean),
				slog.Float64("std", resp.Std),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.WarnContext(ctx, "Client analytics failed", args...)

			return
		}
		lm.logger.InfoContext(ctx, "Client analytics completed successfully", args...)
	}(time.Now())

	return lm.svc.Analytics(ctx)
}

func (lm *loggingMiddleware) Evaluate(ctx context.Context) (resp server.Evaluation, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("evaluation",
				slog.Float64("accuracy", resp.Accuracy),
				slog.Float64("loss", resp.Loss),
				slog.Int("active_params", resp.ActiveParams),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.WarnContext(ctx, "Evaluation failed", args...)

			return
		}
		lm.logger.InfoContext(ctx, "Evaluation completed successfully", args...)
	}(time.Now())

	return lm.svc.Evaluate(ctx)
}

func (lm *loggingMiddleware) Params(ctx context.Context) weights.Tree {
	return lm.svc.Params(ctx)
}
