package fl

import (
	"time"

	"github.com/absmach/hetfl/pkg/weights"
)

// RoundState is the persisted record of one training round.
type RoundState struct {
	RoundID      string    `json:"round_id"`
	Round        int       `json:"round"`
	Framework    Framework `json:"framework"`
	Participants []string  `json:"participants"`
	Updates      []Update  `json:"updates"`
	Loss         float64   `json:"loss"`
	UpdateNorm   float64   `json:"update_norm"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Completed    bool      `json:"completed"`
}

// Update is a client's contribution to a round. Weights and Mask follow the
// client's Skeleton; a nil Mask covers every element and an empty Skeleton
// means the client holds the full global model.
type Update struct {
	RoundID    string             `json:"round_id"`
	ClientID   string             `json:"client_id"`
	NumSamples int                `json:"num_samples"`
	Loss       float64            `json:"loss"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	Weights    weights.Tree       `json:"-"`
	Mask       weights.Tree       `json:"-"`
	Skeleton   weights.Skeleton   `json:"-"`
	ReceivedAt time.Time          `json:"received_at"`
}

// Model is a snapshot of the global parameters.
type Model struct {
	Version  int            `json:"version"`
	Weights  weights.Tree   `json:"weights"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type Aggregator interface {
	// Aggregate merges client updates into a new global tree shaped like skel.
	Aggregate(global weights.Tree, skel weights.Skeleton, updates []Update) (weights.Tree, error)
}
