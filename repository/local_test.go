package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalRepositoryRoundTrip(t *testing.T) {
	repo, err := NewLocalRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = repo.Upload(ctx, "ws/chunks/a1/0001", []byte("chunk body"), nil)
	require.NoError(t, err)

	data, err := repo.Read(ctx, "ws/chunks/a1/0001")
	require.NoError(t, err)
	require.Equal(t, "chunk body", string(data))
}

func TestLocalRepositoryReadMissing(t *testing.T) {
	repo, err := NewLocalRepository(t.TempDir())
	require.NoError(t, err)

	_, err = repo.Read(context.Background(), "missing/key")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalRepositoryRejectsTraversal(t *testing.T) {
	repo, err := NewLocalRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = repo.Upload(ctx, "../escape", []byte("x"), nil)
	require.Error(t, err)
	_, err = repo.Read(ctx, "/etc/passwd")
	require.Error(t, err)
}

func TestLocalRepositoryList(t *testing.T) {
	repo, err := NewLocalRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"ws/a.txt", "ws/nested/b.txt", "other/c.txt"} {
		_, err := repo.Upload(ctx, key, []byte("data"), nil)
		require.NoError(t, err)
	}

	infos, err := repo.List(ctx, "ws/")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	for _, info := range infos {
		require.Contains(t, info.Key, "ws/")
		require.Equal(t, int64(4), info.Size)
	}
}
