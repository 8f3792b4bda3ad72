// Package storage provides key/value storage for model checkpoints.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
)

// Entry is a stored key with its value.
type Entry struct {
	Key   string
	Value []byte
}

type Storage interface {
	Create(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Update(ctx context.Context, key string, value []byte) error
	// List returns entries whose key starts with prefix, in key order.
	List(ctx context.Context, prefix string, offset, limit uint64) ([]Entry, uint64, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

type Config struct {
	Type       string `env:"STORAGE_TYPE" envDefault:"memory"`
	BadgerPath string `env:"BADGER_PATH"  envDefault:"./data"`
}

// ForRun gives a run its own badger directory under BadgerPath, so runs that
// share a path never mix checkpoints.
func (c Config) ForRun(runID string) Config {
	if c.Type == "badger" && runID != "" {
		c.BadgerPath = filepath.Join(c.BadgerPath, runID)
	}

	return c
}

func New(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "memory", "":
		return NewInMemoryStorage(), nil
	case "badger":
		return NewBadgerStorage(cfg.BadgerPath)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, cfg.Type)
	}
}

func page(total, offset, limit uint64) (start, end uint64) {
	if offset >= total {
		return total, total
	}

	if limit > total-offset {
		return offset, total
	}

	return offset, offset + limit
}
