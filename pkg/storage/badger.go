package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	pkgerrors "github.com/absmach/hetfl/pkg/errors"
	"github.com/dgraph-io/badger/v4"
)

type badgerStorage struct {
	sync.RWMutex

	db *badger.DB
}

// NewBadgerStorage opens (or creates) a badger database under dataDir.
func NewBadgerStorage(dataDir string) (Storage, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	opts := badger.DefaultOptions(filepath.Join(dataDir, "badger.db"))
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBConnection, err)
	}

	return &badgerStorage{db: db}, nil
}

func (s *badgerStorage) Create(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return pkgerrors.ErrEmptyKey
	}

	s.Lock()
	defer s.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if err == nil {
			return pkgerrors.ErrEntityExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %w", ErrDBQuery, err)
		}

		return txn.Set([]byte(key), value)
	})
}

func (s *badgerStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, pkgerrors.ErrEmptyKey
	}

	s.RLock()
	defer s.RUnlock()

	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return pkgerrors.ErrNotFound
			}

			return fmt.Errorf("%w: %w", ErrDBQuery, err)
		}
		val, err = item.ValueCopy(nil)

		return err
	})

	return val, err
}

func (s *badgerStorage) Update(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return pkgerrors.ErrEmptyKey
	}

	s.Lock()
	defer s.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		if err := exists(txn, key); err != nil {
			return err
		}
		if err := txn.Set([]byte(key), value); err != nil {
			return fmt.Errorf("%w: %w", ErrUpdate, err)
		}

		return nil
	})
}

func (s *badgerStorage) List(ctx context.Context, prefix string, offset, limit uint64) (result []Entry, total uint64, err error) {
	s.RLock()
	defer s.RUnlock()

	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if total >= offset && total-offset < limit {
				item := it.Item()
				val, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				result = append(result, Entry{Key: string(item.KeyCopy(nil)), Value: val})
			}
			total++
		}

		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return result, total, nil
}

func (s *badgerStorage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return pkgerrors.ErrEmptyKey
	}

	s.Lock()
	defer s.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		if err := exists(txn, key); err != nil {
			return err
		}
		if err := txn.Delete([]byte(key)); err != nil {
			return fmt.Errorf("%w: %w", ErrDelete, err)
		}

		return nil
	})
}

func (s *badgerStorage) Close() error {
	s.Lock()
	defer s.Unlock()

	return s.db.Close()
}

func exists(txn *badger.Txn, key string) error {
	_, err := txn.Get([]byte(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return pkgerrors.ErrNotFound
		}

		return fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return nil
}
