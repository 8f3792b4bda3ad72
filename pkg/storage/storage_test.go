package storage_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/absmach/hetfl/pkg/errors"
	"github.com/absmach/hetfl/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]storage.Storage {
	t.Helper()

	db, err := storage.New(storage.Config{Type: "badger", BadgerPath: t.TempDir()})
	require.NoError(t, err)
	mem, err := storage.New(storage.Config{Type: "memory"})
	require.NoError(t, err)

	stores := map[string]storage.Storage{"memory": mem, "badger": db}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})

	return stores
}

func TestCreateGet(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Create(ctx, "model/v1", []byte("one")))

			cases := []struct {
				desc  string
				key   string
				value []byte
				err   error
			}{
				{desc: "existing key", key: "model/v1", value: []byte("one")},
				{desc: "missing key", key: "model/v2", err: errors.ErrNotFound},
				{desc: "empty key", key: "", err: errors.ErrEmptyKey},
			}

			for _, tc := range cases {
				t.Run(tc.desc, func(t *testing.T) {
					got, err := s.Get(ctx, tc.key)
					if tc.err != nil {
						assert.ErrorIs(t, err, tc.err)

						return
					}
					require.NoError(t, err)
					assert.Equal(t, tc.value, got)
				})
			}

			assert.ErrorIs(t, s.Create(ctx, "model/v1", []byte("again")), errors.ErrEntityExists)
			assert.ErrorIs(t, s.Create(ctx, "", nil), errors.ErrEmptyKey)
		})
	}
}

func TestUpdateDelete(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			assert.ErrorIs(t, s.Update(ctx, "k", []byte("v")), errors.ErrNotFound)
			require.NoError(t, s.Create(ctx, "k", []byte("v")))
			require.NoError(t, s.Update(ctx, "k", []byte("w")))

			got, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, []byte("w"), got)

			require.NoError(t, s.Delete(ctx, "k"))
			assert.ErrorIs(t, s.Delete(ctx, "k"), errors.ErrNotFound)
			_, err = s.Get(ctx, "k")
			assert.ErrorIs(t, err, errors.ErrNotFound)
		})
	}
}

func TestList(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := range 5 {
				require.NoError(t, s.Create(ctx, fmt.Sprintf("model/v%d", i), []byte{byte(i)}))
			}
			require.NoError(t, s.Create(ctx, "round/1", []byte("x")))

			cases := []struct {
				desc   string
				prefix string
				offset uint64
				limit  uint64
				keys   []string
				total  uint64
			}{
				{desc: "all models", prefix: "model/", limit: 10, keys: []string{"model/v0", "model/v1", "model/v2", "model/v3", "model/v4"}, total: 5},
				{desc: "page", prefix: "model/", offset: 1, limit: 2, keys: []string{"model/v1", "model/v2"}, total: 5},
				{desc: "offset past end", prefix: "model/", offset: 9, limit: 2, total: 5},
				{desc: "unbounded limit", prefix: "round/", limit: ^uint64(0), keys: []string{"round/1"}, total: 1},
				{desc: "everything", limit: 100, total: 6, keys: []string{"model/v0", "model/v1", "model/v2", "model/v3", "model/v4", "round/1"}},
			}

			for _, tc := range cases {
				t.Run(tc.desc, func(t *testing.T) {
					entries, total, err := s.List(ctx, tc.prefix, tc.offset, tc.limit)
					require.NoError(t, err)
					assert.Equal(t, tc.total, total)
					var keys []string
					for _, e := range entries {
						keys = append(keys, e.Key)
					}
					assert.Equal(t, tc.keys, keys)
				})
			}
		})
	}
}

func TestReturnedValuesAreCopies(t *testing.T) {
	s := storage.NewInMemoryStorage()
	ctx := context.Background()
	v := []byte("abc")
	require.NoError(t, s.Create(ctx, "k", v))
	v[0] = 'z'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
	got[1] = 'z'

	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)

	require.NoError(t, s.Close())
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, errors.ErrClosed)
}

func TestUnsupportedBackend(t *testing.T) {
	_, err := storage.New(storage.Config{Type: "postgres"})
	assert.ErrorIs(t, err, storage.ErrUnsupported)
}

func TestConfigForRun(t *testing.T) {
	cases := []struct {
		desc string
		cfg  storage.Config
		run  string
		want string
	}{
		{desc: "badger gets a run directory", cfg: storage.Config{Type: "badger", BadgerPath: "data"}, run: "r1", want: filepath.Join("data", "r1")},
		{desc: "badger without run id", cfg: storage.Config{Type: "badger", BadgerPath: "data"}, want: "data"},
		{desc: "memory is untouched", cfg: storage.Config{Type: "memory", BadgerPath: "data"}, run: "r1", want: "data"},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			got := tc.cfg.ForRun(tc.run)
			assert.Equal(t, tc.want, got.BadgerPath)
			assert.Equal(t, tc.cfg.Type, got.Type)
		})
	}
}
