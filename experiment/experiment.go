package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"time"

	"github.com/absmach/hetfl"
	"github.com/absmach/hetfl/client"
	"github.com/absmach/hetfl/pkg/dataset"
	"github.com/absmach/hetfl/pkg/fl"
	"github.com/absmach/hetfl/pkg/nn"
	"github.com/absmach/hetfl/pkg/partition"
	"github.com/absmach/hetfl/pkg/scheduler"
	"github.com/absmach/hetfl/pkg/storage"
	"github.com/absmach/hetfl/pkg/tensor"
	"github.com/absmach/hetfl/server"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

// Random streams derived from the seed, one per component.
const (
	streamPartition uint64 = iota + 1
	streamBatches
	streamInit
	streamScheduler
	streamLocal
	streamClient = 1 << 16
)

// Middleware decorates the server, e.g. with logging or metrics.
type Middleware func(server.Service) server.Service

type Results struct {
	Name        string                `json:"name,omitempty"`
	RunID       string                `json:"run_id"`
	Config      Config                `json:"config"`
	Clients     int                   `json:"clients"`
	Analytics   server.Analytics      `json:"analytics"`
	Evaluation  *server.Evaluation    `json:"evaluation,omitempty"`
	Rounds      []server.RoundSummary `json:"rounds,omitempty"`
	Duration    string                `json:"duration"`
	Checkpoints string                `json:"checkpoints,omitempty"`
	Path        string                `json:"path,omitempty"`
}

type run struct {
	cfg       Config
	framework fl.Framework
	alloc     fl.Allocation
	ds        *dataset.Dataset
	logger    *slog.Logger
}

// Run executes a whole experiment and writes its results under cfg.ResultsDir.
func Run(ctx context.Context, cfg Config, logger *slog.Logger, mw ...Middleware) (Results, error) {
	start := time.Now()
	r, err := prepare(ctx, cfg, logger)
	if err != nil {
		return Results{}, err
	}

	clients, err := r.clients(ctx)
	if err != nil {
		return Results{}, err
	}
	res := Results{
		Name:    cfg.RunName,
		RunID:   uuid.NewString(),
		Config:  r.cfg,
		Clients: len(clients),
	}

	ps, err := fl.NewPersistentStorage(
		filepath.Join(cfg.ResultsDir, "rounds", res.RunID),
		filepath.Join(cfg.ResultsDir, "models", res.RunID),
		cfg.ResultsDir,
	)
	if err != nil {
		return Results{}, err
	}

	if r.framework == fl.Local {
		if res.Analytics, err = r.local(ctx, clients); err != nil {
			return Results{}, err
		}
	} else if err := r.federated(ctx, clients, ps, &res, mw); err != nil {
		return Results{}, err
	}

	res.Duration = time.Since(start).String()
	if res.Path, err = ps.SaveResults(cfg.Name(), res); err != nil {
		return Results{}, err
	}
	logger.InfoContext(ctx, "Experiment finished",
		slog.String("run_id", res.RunID),
		slog.String("path", res.Path),
		slog.String("duration", res.Duration),
	)

	return res, nil
}

func prepare(ctx context.Context, cfg Config, logger *slog.Logger) (*run, error) {
	if cfg.Rounds <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrRounds, cfg.Rounds)
	}
	framework, err := fl.ParseFramework(cfg.Framework)
	if err != nil {
		return nil, err
	}
	scheme, err := fl.ParseScheme(cfg.Allocation)
	if err != nil {
		return nil, err
	}
	var sims map[fl.Framework]fl.Allocation
	if scheme == fl.Sim {
		file, err := hetfl.LoadConfig(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		sims = file.Allocations.Sims()
	}
	alloc, err := fl.NewAllocation(scheme, framework, sims)
	if err != nil {
		return nil, err
	}

	kind, err := dataset.ParseKind(cfg.Dataset)
	if err != nil {
		return nil, err
	}
	data := cfg.Data
	data.Seed = cfg.Seed
	ad, err := dataset.NewAdapter(kind, data)
	if err != nil {
		return nil, err
	}
	ds, err := ad.Load(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.Clients <= 0 {
		cfg.Clients = ds.Classes()
		if keys := ds.Groups(); len(keys) > 0 {
			cfg.Clients = len(partition.Groups(keys))
		}
	}
	logger.InfoContext(ctx, "Dataset loaded",
		slog.String("dataset", cfg.Dataset),
		slog.Int("samples", ds.Len()),
		slog.Int("classes", ds.Classes()),
		slog.Int("clients", cfg.Clients),
	)

	return &run{
		cfg:       cfg,
		framework: framework,
		alloc:     alloc,
		ds:        ds,
		logger:    logger,
	}, nil
}

func (r *run) source(stream uint64) rand.Source {
	return rand.NewPCG(r.cfg.Seed, stream)
}

// mapping assigns training samples to clients: one client per grouping key,
// split further when more clients are asked for, or a Dirichlet split when the
// dataset has no keys.
func (r *run) mapping() (dataset.Mapping, int, error) {
	keys := r.ds.Groups()
	if len(keys) == 0 {
		return partition.Dirichlet(r.cfg.Alpha), r.cfg.Clients, nil
	}
	idx, err := partition.Subdivide(partition.Groups(keys), r.cfg.Clients, r.source(streamPartition))
	if err != nil {
		return nil, 0, err
	}

	return func(tensor.Tensor, []int, int, int, rand.Source) ([][]int, error) {
		return idx, nil
	}, len(idx), nil
}

func (r *run) spec() nn.Spec {
	return nn.Spec{
		Classes:      r.ds.Classes(),
		InputShape:   r.ds.InputShape(),
		Hidden:       r.cfg.Hidden,
		Layers:       r.cfg.Depth,
		LearningRate: r.cfg.LearningRate,
	}
}

func (r *run) clients(ctx context.Context) ([]*participant, error) {
	mapping, n, err := r.mapping()
	if err != nil {
		return nil, err
	}
	batches := make([]int, n)
	for i := range batches {
		batches[i] = r.cfg.BatchSize
	}
	iters, err := r.ds.FedSplit(batches, mapping, r.source(streamBatches))
	if err != nil {
		return nil, err
	}
	testX, testY := r.ds.Test()
	ccfg := client.Config{
		Epochs:        r.cfg.Epochs,
		StepsPerEpoch: r.cfg.StepsPerEpoch,
		Noise:         r.cfg.Noise,
		Clip:          r.cfg.Clip,
	}

	var out []*participant
	for i, it := range iters {
		id := fmt.Sprintf("client-%03d", i)
		if it.Len() == 0 {
			r.logger.WarnContext(ctx, "Skipping client without training data", slog.String("client", id))

			continue
		}
		width, depth := r.alloc.At(len(out))
		spec := r.spec()
		if r.framework != fl.FedDrop {
			spec.Width, spec.Depth, spec.Scale = width, depth, r.framework.ModelScale(width)
		}
		m, err := nn.New(nn.FCNKind, spec)
		if err != nil {
			return nil, err
		}
		src := r.source(streamClient + uint64(i))
		c, err := client.New(id, m, client.Data{Train: it, TestX: testX, TestY: testY}, ccfg, src, r.logger)
		if err != nil {
			return nil, err
		}
		p := &participant{client: c, role: c}
		if r.framework == fl.FedDrop {
			if p.role, err = client.NewFedDrop(c, width, src); err != nil {
				return nil, err
			}
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, ErrNoClient
	}

	return out, nil
}

// participant keeps the plain client next to the role it plays in rounds.
type participant struct {
	client *client.Client
	role   client.Participant
}

func (r *run) local(ctx context.Context, clients []*participant) (server.Analytics, error) {
	accs := make([]float64, len(clients))
	src := r.source(streamLocal)
	for i, p := range clients {
		var err error
		if _, accs[i], err = client.Local(ctx, p.client, r.cfg.Rounds, src); err != nil {
			return server.Analytics{}, err
		}
	}
	mean, std := stat.PopMeanStdDev(accs, nil)

	return server.Analytics{Mean: mean, Std: std}, nil
}

func (r *run) federated(ctx context.Context, clients []*participant, ps *fl.PersistentStorage, res *Results, mw []Middleware) error {
	agg, err := fl.NewAggregator(r.framework)
	if err != nil {
		return err
	}
	sched, err := scheduler.New(r.cfg.Scheduler, r.source(streamScheduler))
	if err != nil {
		return err
	}
	scfg := r.cfg.Storage.ForRun(res.RunID)
	store, err := storage.New(scfg)
	if err != nil {
		return err
	}
	defer store.Close()
	if scfg.Type == "badger" {
		res.Checkpoints = scfg.BadgerPath
	}

	global, err := nn.New(nn.FCNKind, r.spec())
	if err != nil {
		return err
	}
	params := global.Init(r.source(streamInit))
	participants := make([]client.Participant, len(clients))
	for i, p := range clients {
		participants[i] = p.role
	}
	testX, testY := r.ds.Test()

	svc, err := server.NewService(global, params, participants, agg, sched, storage.NewCheckpoints(store), ps, server.Config{
		Framework: r.framework,
		Fraction:  r.cfg.ProportionClients,
		TestX:     testX,
		TestY:     testY,
	}, r.logger)
	if err != nil {
		return err
	}
	for _, m := range mw {
		svc = m(svc)
	}

	for range r.cfg.Rounds {
		sum, err := svc.Step(ctx)
		if err != nil {
			return err
		}
		res.Rounds = append(res.Rounds, sum)
	}
	if res.Analytics, err = svc.Analytics(ctx); err != nil {
		return err
	}
	eval, err := svc.Evaluate(ctx)
	if err != nil {
		return err
	}
	res.Evaluation = &eval

	return ps.SaveModel(fl.Model{
		Version:  r.cfg.Rounds,
		Weights:  svc.Params(ctx),
		Metadata: map[string]any{"framework": r.framework, "accuracy": eval.Accuracy},
	})
}
