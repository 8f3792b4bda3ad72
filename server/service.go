package server

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/absmach/hetfl/client"
	"github.com/absmach/hetfl/pkg/fl"
	"github.com/absmach/hetfl/pkg/nn"
	"github.com/absmach/hetfl/pkg/scheduler"
	"github.com/absmach/hetfl/pkg/storage"
	"github.com/absmach/hetfl/pkg/tensor"
	"github.com/absmach/hetfl/pkg/weights"
	"gonum.org/v1/gonum/stat"
)

type Config struct {
	Framework fl.Framework
	// Fraction of the clients selected every round.
	Fraction float64
	TestX    tensor.Tensor
	TestY    []int
}

type service struct {
	mu sync.Mutex

	model       nn.Model
	skel        weights.Skeleton
	params      weights.Tree
	round       int
	clients     []client.Participant
	aggregator  fl.Aggregator
	scheduler   scheduler.Scheduler
	checkpoints *storage.Checkpoints
	rounds      *fl.PersistentStorage
	cfg         Config
	logger      *slog.Logger
}

// NewService builds a server around the global model. checkpoints and rounds
// may be nil to skip persisting models and round records.
func NewService(model nn.Model, params weights.Tree, clients []client.Participant, agg fl.Aggregator, sched scheduler.Scheduler, checkpoints *storage.Checkpoints, rounds *fl.PersistentStorage, cfg Config, logger *slog.Logger) (Service, error) {
	if len(clients) == 0 {
		return nil, ErrNoClients
	}
	if cfg.TestX.Rank() == 0 || len(cfg.TestY) == 0 {
		return nil, ErrNoTestData
	}
	skel := nn.Skeleton(model)
	if _, err := weights.Sub(params, skel.Zeros(tensor.Float64)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParams, err)
	}

	return &service{
		model:       model,
		skel:        skel,
		params:      params.Clone(),
		clients:     clients,
		aggregator:  agg,
		scheduler:   sched,
		checkpoints: checkpoints,
		rounds:      rounds,
		cfg:         cfg,
		logger:      logger,
	}, nil
}

func (svc *service) Step(ctx context.Context) (RoundSummary, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	round := svc.round + 1
	start := time.Now()

	idx, err := svc.scheduler.Select(round, len(svc.clients), svc.cfg.Fraction)
	if err != nil {
		return RoundSummary{}, err
	}

	updates := make([]fl.Update, 0, len(idx))
	participants := make([]string, 0, len(idx))
	var loss float64
	for _, i := range idx {
		c := svc.clients[i]
		local, err := weights.Partition(svc.params, svc.skel, c.Skeleton())
		if err != nil {
			return RoundSummary{}, fmt.Errorf("partition for client %s: %w", c.ID(), err)
		}
		u, err := c.Step(ctx, round, local)
		if err != nil {
			return RoundSummary{}, err
		}
		updates = append(updates, u)
		participants = append(participants, c.ID())
		loss += u.Loss
	}
	loss /= float64(len(updates))

	next, err := svc.aggregator.Aggregate(svc.params, svc.skel, updates)
	if err != nil {
		return RoundSummary{}, err
	}
	delta, err := weights.Sub(next, svc.params)
	if err != nil {
		return RoundSummary{}, err
	}
	norm := weights.Norm(delta, 2)
	svc.params = next
	svc.round = round

	if svc.checkpoints != nil {
		if err := svc.checkpoints.Save(ctx, round, next); err != nil {
			return RoundSummary{}, fmt.Errorf("checkpoint round %d: %w", round, err)
		}
	}
	if svc.rounds != nil {
		state := &fl.RoundState{
			RoundID:      strconv.Itoa(round),
			Round:        round,
			Framework:    svc.cfg.Framework,
			Participants: participants,
			Updates:      updates,
			Loss:         loss,
			UpdateNorm:   norm,
			StartTime:    start,
			EndTime:      time.Now(),
			Completed:    true,
		}
		if err := svc.rounds.SaveRound(state.RoundID, state); err != nil {
			svc.logger.Warn("Failed to persist round state", slog.Int("round", round), slog.Any("error", err))
		}
	}

	return RoundSummary{
		Round:        round,
		Loss:         loss,
		UpdateNorm:   norm,
		Participants: participants,
	}, nil
}

func (svc *service) Analytics(ctx context.Context) (Analytics, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	accs := make([]float64, len(svc.clients))
	for i, c := range svc.clients {
		local, err := weights.Partition(svc.params, svc.skel, c.Skeleton())
		if err != nil {
			return Analytics{}, fmt.Errorf("partition for client %s: %w", c.ID(), err)
		}
		if accs[i], err = c.Analytics(ctx, local); err != nil {
			return Analytics{}, err
		}
	}
	mean, std := stat.PopMeanStdDev(accs, nil)

	return Analytics{Mean: mean, Std: std}, nil
}

func (svc *service) Evaluate(ctx context.Context) (Evaluation, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Evaluation{}, err
	}
	m, err := svc.model.Evaluate(svc.params, svc.cfg.TestX, svc.cfg.TestY)
	if err != nil {
		return Evaluation{}, err
	}

	return Evaluation{
		Accuracy:     m.Accuracy,
		Loss:         m.Loss,
		ActiveParams: int(weights.Sum(weights.Counter(svc.params))),
	}, nil
}

func (svc *service) Params(_ context.Context) weights.Tree {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	return svc.params.Clone()
}
