package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	pkgerrors "github.com/absmach/hetfl/pkg/errors"
	"github.com/absmach/hetfl/pkg/weights"
)

const modelPrefix = "model/v"

// Checkpoints stores versions of the global model as CBOR-encoded trees.
type Checkpoints struct {
	store Storage
}

func NewCheckpoints(store Storage) *Checkpoints {
	return &Checkpoints{store: store}
}

func modelKey(version int) string {
	return fmt.Sprintf("%s%08d", modelPrefix, version)
}

// Save writes a version, overwriting any previous checkpoint of it.
func (c *Checkpoints) Save(ctx context.Context, version int, t weights.Tree) error {
	data, err := weights.Marshal(t)
	if err != nil {
		return err
	}
	key := modelKey(version)
	err = c.store.Create(ctx, key, data)
	if errors.Is(err, pkgerrors.ErrEntityExists) {
		return c.store.Update(ctx, key, data)
	}

	return err
}

func (c *Checkpoints) Load(ctx context.Context, version int) (weights.Tree, error) {
	data, err := c.store.Get(ctx, modelKey(version))
	if err != nil {
		return nil, fmt.Errorf("model v%d: %w", version, err)
	}
	t, err := weights.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: model v%d: %w", ErrCheckpointData, version, err)
	}

	return t, nil
}

// Versions lists the stored versions in ascending order.
func (c *Checkpoints) Versions(ctx context.Context) ([]int, error) {
	var versions []int
	for offset := uint64(0); ; {
		entries, total, err := c.store.List(ctx, modelPrefix, offset, 100)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			v, err := strconv.Atoi(strings.TrimPrefix(e.Key, modelPrefix))
			if err != nil {
				return nil, fmt.Errorf("%w: key %q", pkgerrors.ErrInvalidData, e.Key)
			}
			versions = append(versions, v)
		}
		offset += uint64(len(entries))
		if offset >= total || len(entries) == 0 {
			return versions, nil
		}
	}
}
