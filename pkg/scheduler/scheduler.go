// Package scheduler selects the clients that take part in a round.
package scheduler

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

var (
	ErrNoClients = errors.New("no clients were provided")
	ErrFraction  = errors.New("client fraction must be in (0, 1]")
	ErrUnknown   = errors.New("unknown scheduler")
)

type Scheduler interface {
	// Select returns the ascending positions of the clients taking part in round.
	Select(round, nclients int, fraction float64) ([]int, error)
}

func New(kind string, src rand.Source) (Scheduler, error) {
	switch kind {
	case "random", "":
		return NewRandom(src), nil
	case "roundrobin":
		return NewRoundRobin(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknown, kind)
	}
}

// count is max(1, round(fraction * nclients)).
func count(nclients int, fraction float64) (int, error) {
	if nclients <= 0 {
		return 0, ErrNoClients
	}
	if fraction <= 0 || fraction > 1 || math.IsNaN(fraction) {
		return 0, fmt.Errorf("%w: got %v", ErrFraction, fraction)
	}

	return max(1, int(math.Round(fraction*float64(nclients)))), nil
}
