package scheduler

import "slices"

type roundRobin struct {
	next int
}

// NewRoundRobin walks the clients cyclically, continuing where the previous
// round stopped.
func NewRoundRobin() Scheduler {
	return &roundRobin{}
}

func (r *roundRobin) Select(_, nclients int, fraction float64) ([]int, error) {
	k, err := count(nclients, fraction)
	if err != nil {
		return nil, err
	}

	idx := make([]int, k)
	for i := range idx {
		idx[i] = (r.next + i) % nclients
	}
	r.next = (r.next + k) % nclients
	slices.Sort(idx)

	return idx, nil
}
