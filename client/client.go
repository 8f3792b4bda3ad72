// Package client holds the simulated participants of a federated run.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/absmach/hetfl/pkg/dataset"
	"github.com/absmach/hetfl/pkg/fl"
	"github.com/absmach/hetfl/pkg/nn"
	"github.com/absmach/hetfl/pkg/tensor"
	"github.com/absmach/hetfl/pkg/weights"
)

var (
	ErrEpochs = errors.New("epochs must be positive")
	ErrNoData = errors.New("client has no training data")
)

type Participant interface {
	ID() string
	// Skeleton describes the parameters the participant trains.
	Skeleton() weights.Skeleton
	NumSamples() int
	Step(ctx context.Context, round int, params weights.Tree) (fl.Update, error)
	// Analytics is the accuracy of params on the participant's test data.
	Analytics(ctx context.Context, params weights.Tree) (float64, error)
}

type Config struct {
	Epochs int
	// StepsPerEpoch of 0 makes an epoch one pass over the client's samples.
	StepsPerEpoch int
	// Noise is the standard deviation of Gaussian noise added to each update.
	Noise float64
	// Clip bounds every element of an update to [-Clip, Clip].
	Clip float64
}

// Data is what a client trains and evaluates on.
type Data struct {
	Train *dataset.DataIter
	TestX tensor.Tensor
	TestY []int
}

var _ Participant = (*Client)(nil)

type Client struct {
	id     string
	model  nn.Model
	skel   weights.Skeleton
	data   Data
	cfg    Config
	src    rand.Source
	logger *slog.Logger
}

func New(id string, model nn.Model, data Data, cfg Config, src rand.Source, logger *slog.Logger) (*Client, error) {
	if cfg.Epochs <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrEpochs, cfg.Epochs)
	}
	if data.Train == nil || data.Train.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, id)
	}
	if err := data.Train.Err(); err != nil {
		return nil, fmt.Errorf("client %s: %w", id, err)
	}

	return &Client{
		id:     id,
		model:  model,
		skel:   nn.Skeleton(model),
		data:   data,
		cfg:    cfg,
		src:    src,
		logger: logger,
	}, nil
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) Skeleton() weights.Skeleton {
	return c.skel
}

func (c *Client) NumSamples() int {
	return c.data.Train.Len()
}

func (c *Client) Model() nn.Model {
	return c.model
}

// stepsPerEpoch defaults to ceil(samples / batch).
func (c *Client) stepsPerEpoch() int {
	if c.cfg.StepsPerEpoch > 0 {
		return c.cfg.StepsPerEpoch
	}
	b := c.data.Train.BatchSize()

	return (c.data.Train.Len() + b - 1) / b
}

func (c *Client) Step(ctx context.Context, round int, params weights.Tree) (fl.Update, error) {
	loss, trained, err := c.train(ctx, params, c.cfg.Epochs, nil)
	if err != nil {
		return fl.Update{}, err
	}
	trained, err = c.postprocess(params, trained)
	if err != nil {
		return fl.Update{}, err
	}

	return c.update(round, loss, trained, nil), nil
}

func (c *Client) Analytics(ctx context.Context, params weights.Tree) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m, err := c.model.Evaluate(params, c.data.TestX, c.data.TestY)
	if err != nil {
		return 0, fmt.Errorf("client %s: %w", c.id, err)
	}

	return m.Accuracy, nil
}

// train runs epochs of SGD steps and returns the mean batch loss. A non-nil
// mask is reapplied after every step so masked elements stay zero.
func (c *Client) train(ctx context.Context, params weights.Tree, epochs int, mask weights.Tree) (float64, weights.Tree, error) {
	p := params
	if mask != nil {
		var err error
		if p, err = weights.Mul(params, mask); err != nil {
			return 0, nil, err
		}
	}

	steps := epochs * c.stepsPerEpoch()
	var total float64
	for i := range steps {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		b := c.data.Train.Next()
		if err := c.data.Train.Err(); err != nil {
			return 0, nil, fmt.Errorf("client %s step %d: %w", c.id, i, err)
		}
		loss, next, err := c.model.Step(p, b)
		if err != nil {
			return 0, nil, fmt.Errorf("client %s step %d: %w", c.id, i, err)
		}
		if mask != nil {
			if next, err = weights.Mul(next, mask); err != nil {
				return 0, nil, err
			}
		}
		p = next
		total += loss
	}
	if steps == 0 {
		return 0, p, nil
	}

	return total / float64(steps), p, nil
}

// postprocess clips and perturbs the difference between trained and params.
func (c *Client) postprocess(params, trained weights.Tree) (weights.Tree, error) {
	if c.cfg.Clip <= 0 && c.cfg.Noise <= 0 {
		return trained, nil
	}
	delta, err := weights.Sub(trained, params)
	if err != nil {
		return nil, err
	}
	if c.cfg.Clip > 0 {
		delta = weights.Maximum(weights.Minimum(delta, c.cfg.Clip), -c.cfg.Clip)
	}
	if c.cfg.Noise > 0 {
		delta = weights.AddNormal(delta, 0, c.cfg.Noise, c.src)
	}

	return weights.Add(params, delta)
}

func (c *Client) update(round int, loss float64, trained, mask weights.Tree) fl.Update {
	c.logger.Debug("Client step completed",
		slog.String("client", c.id),
		slog.Int("round", round),
		slog.Float64("loss", loss),
	)

	return fl.Update{
		RoundID:    strconv.Itoa(round),
		ClientID:   c.id,
		NumSamples: c.NumSamples(),
		Loss:       loss,
		Metrics:    map[string]float64{"loss": loss},
		Weights:    trained,
		Mask:       mask,
		Skeleton:   c.skel,
		ReceivedAt: time.Now(),
	}
}
