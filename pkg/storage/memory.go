package storage

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/absmach/hetfl/pkg/errors"
)

type inMemoryStorage struct {
	sync.Mutex

	data   map[string][]byte
	closed bool
}

func NewInMemoryStorage() Storage {
	return &inMemoryStorage{
		data: make(map[string][]byte),
	}
}

func (s *inMemoryStorage) Create(_ context.Context, key string, value []byte) error {
	if key == "" {
		return errors.ErrEmptyKey
	}

	s.Lock()
	defer s.Unlock()

	if s.closed {
		return errors.ErrClosed
	}
	if _, ok := s.data[key]; ok {
		return errors.ErrEntityExists
	}

	s.data[key] = slices.Clone(value)

	return nil
}

func (s *inMemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.ErrEmptyKey
	}

	s.Lock()
	defer s.Unlock()

	if s.closed {
		return nil, errors.ErrClosed
	}
	if val, ok := s.data[key]; ok {
		return slices.Clone(val), nil
	}

	return nil, errors.ErrNotFound
}

func (s *inMemoryStorage) Update(_ context.Context, key string, value []byte) error {
	if key == "" {
		return errors.ErrEmptyKey
	}

	s.Lock()
	defer s.Unlock()

	if s.closed {
		return errors.ErrClosed
	}
	if _, ok := s.data[key]; !ok {
		return errors.ErrNotFound
	}

	s.data[key] = slices.Clone(value)

	return nil
}

func (s *inMemoryStorage) List(_ context.Context, prefix string, offset, limit uint64) (result []Entry, total uint64, err error) {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return nil, 0, errors.ErrClosed
	}

	keys := make([]string, 0)
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	total = uint64(len(keys))
	start, end := page(total, offset, limit)
	for _, k := range keys[start:end] {
		result = append(result, Entry{Key: k, Value: slices.Clone(s.data[k])})
	}

	return result, total, nil
}

func (s *inMemoryStorage) Delete(_ context.Context, key string) error {
	if key == "" {
		return errors.ErrEmptyKey
	}

	s.Lock()
	defer s.Unlock()

	if s.closed {
		return errors.ErrClosed
	}
	if _, ok := s.data[key]; !ok {
		return errors.ErrNotFound
	}
	delete(s.data, key)

	return nil
}

func (s *inMemoryStorage) Close() error {
	s.Lock()
	defer s.Unlock()

	s.closed = true
	s.data = nil

	return nil
}
