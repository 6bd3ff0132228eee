package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GuelfoNero-beep/D117/internal/persistence"
)

func TestStorage(t *testing.T) {
	t.Parallel()

	t.Run("memory bucket reports missing keys", func(t *testing.T) {
		t.Parallel()
		s := OpenMemory()
		t.Cleanup(func() { _ = s.Close() })

		_, err := s.Get(context.Background(), persistence.KeyEvents)
		require.ErrorIs(t, err, persistence.ErrNotFound)
	})

	t.Run("directory bucket writes one file per key", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "nested")
		s, err := OpenDir(dir)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })

		ctx := context.Background()
		require.NoError(t, s.Put(ctx, persistence.KeyUsers, []byte(`[1]`)))
		require.NoError(t, s.Put(ctx, persistence.KeyUsers, []byte(`[2]`)))

		got, err := s.Get(ctx, persistence.KeyUsers)
		require.NoError(t, err)
		assert.Equal(t, `[2]`, string(got))

		onDisk, err := os.ReadFile(filepath.Join(dir, persistence.KeyUsers+".json"))
		require.NoError(t, err)
		assert.Equal(t, `[2]`, string(onDisk))
	})
}
