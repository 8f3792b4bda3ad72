package client

import (
	"context"
	"log/slog"
	"math/rand/v2"
)

// Local trains c on its own for rounds times its epochs, starting from a fresh
// initialisation, and returns the final mean loss and test accuracy.
func Local(ctx context.Context, c *Client, rounds int, src rand.Source) (loss, accuracy float64, err error) {
	params := c.model.Init(src)
	loss, params, err = c.train(ctx, params, c.cfg.Epochs*max(rounds, 1), nil)
	if err != nil {
		return 0, 0, err
	}
	accuracy, err = c.Analytics(ctx, params)
	if err != nil {
		return 0, 0, err
	}
	c.logger.Info("Local training completed",
		slog.String("client", c.id),
		slog.Float64("loss", loss),
		slog.Float64("accuracy", accuracy),
	)

	return loss, accuracy, nil
}
