package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInMemoryRepositoryRoundTrip(t *testing.T) {
	repo := NewInMemoryRepository()

	path, err := repo.Upload(context.Background(), "ws/artifacts/a1", []byte("hello"), map[string]string{"k": "v"})
	require.NoError(t, err)
	require.Equal(t, "ws/artifacts/a1", path)

	data, err := repo.Read(context.Background(), "ws/artifacts/a1")
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestInMemoryRepositoryReadMissing(t *testing.T) {
	repo := NewInMemoryRepository()
	_, err := repo.Read(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryRepositoryCopiesBuffers(t *testing.T) {
	repo := NewInMemoryRepository()
	buf := []byte("original")
	_, err := repo.Upload(context.Background(), "k", buf, nil)
	require.NoError(t, err)
	buf[0] = 'X'

	data, err := repo.Read(context.Background(), "k")
	require.NoError(t, err)
	require.Equal(t, "original", string(data))

	data[0] = 'Y'
	again, err := repo.Read(context.Background(), "k")
	require.NoError(t, err)
	require.Equal(t, "original", string(again))
}

func TestInMemoryRepositoryList(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	for _, key := range []string{"ws1/a", "ws1/b", "ws2/c"} {
		_, err := repo.Upload(ctx, key, []byte("x"), nil)
		require.NoError(t, err)
	}

	infos, err := repo.List(ctx, "ws1/")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	require.Equal(t, "ws1/a", infos[0].Key)
	require.Equal(t, "a", infos[0].Filename)
	require.Equal(t, int64(1), infos[0].Size)
}
