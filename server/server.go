// Package server coordinates federated training rounds over simulated clients.
package server

import (
	"context"
	"errors"

	"github.com/absmach/hetfl/pkg/weights"
)

var (
	ErrNoClients  = errors.New("server has no clients")
	ErrParams     = errors.New("initial parameters do not match the model")
	ErrNoTestData = errors.New("server has no test data")
)

type Service interface {
	// Step runs one round: select clients, train, aggregate and checkpoint.
	Step(ctx context.Context) (RoundSummary, error)
	// Analytics evaluates every client's share of the global model on its own
	// test data.
	Analytics(ctx context.Context) (Analytics, error)
	// Evaluate scores the global model on the held-out test split.
	Evaluate(ctx context.Context) (Evaluation, error)
	Params(ctx context.Context) weights.Tree
}

type RoundSummary struct {
	Round        int      `json:"round"`
	Loss         float64  `json:"loss"`
	UpdateNorm   float64  `json:"update_norm"`
	Participants []string `json:"participants"`
}

type Analytics struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

type Evaluation struct {
	Accuracy     float64 `json:"accuracy"`
	Loss         float64 `json:"loss"`
	ActiveParams int     `json:"active_params"`
}
