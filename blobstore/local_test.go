package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()

	t.Run("PutAndGet", func(t *testing.T) {
		s := NewLocalStore(t.TempDir())

		require.NoError(t, s.Put(ctx, "blob.bin", []byte("payload")))

		data, err := s.Get(ctx, "blob.bin")
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), data)
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := NewLocalStore(t.TempDir())

		_, err := s.Get(ctx, "missing.bin")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("PutCreatesRoot", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "nested", "dir")
		s := NewLocalStore(root)

		require.NoError(t, s.Put(ctx, "blob.bin", []byte("x")))

		_, err := os.Stat(filepath.Join(root, "blob.bin"))
		assert.NoError(t, err)
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		s := NewLocalStore(t.TempDir())

		require.NoError(t, s.Put(ctx, "blob.bin", []byte("old")))
		require.NoError(t, s.Put(ctx, "blob.bin", []byte("new")))

		data, err := s.Get(ctx, "blob.bin")
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), data)
	})

	t.Run("PutAllWritesGroup", func(t *testing.T) {
		s := NewLocalStore(t.TempDir())

		require.NoError(t, s.PutAll(ctx, map[string][]byte{
			"a.bin": []byte("aaa"),
			"b.bin": []byte("bbb"),
		}))

		a, err := s.Get(ctx, "a.bin")
		require.NoError(t, err)
		assert.Equal(t, []byte("aaa"), a)
		b, err := s.Get(ctx, "b.bin")
		require.NoError(t, err)
		assert.Equal(t, []byte("bbb"), b)
	})

	t.Run("PutAllLeavesNoTempFiles", func(t *testing.T) {
		root := t.TempDir()
		s := NewLocalStore(root)

		require.NoError(t, s.PutAll(ctx, map[string][]byte{
			"a.bin": []byte("aaa"),
			"b.bin": []byte("bbb"),
		}))

		entries, err := os.ReadDir(root)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("DeleteMissingIsNoError", func(t *testing.T) {
		s := NewLocalStore(t.TempDir())
		assert.NoError(t, s.Delete(ctx, "missing.bin"))
	})

	t.Run("Delete", func(t *testing.T) {
		s := NewLocalStore(t.TempDir())

		require.NoError(t, s.Put(ctx, "blob.bin", []byte("x")))
		require.NoError(t, s.Delete(ctx, "blob.bin"))

		_, err := s.Get(ctx, "blob.bin")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("List", func(t *testing.T) {
		s := NewLocalStore(t.TempDir())

		require.NoError(t, s.PutAll(ctx, map[string][]byte{
			"vectors.mvix":  []byte("x"),
			"metadata.mvmd": []byte("y"),
			"other.txt":     []byte("z"),
		}))

		names, err := s.List(ctx, "vectors")
		require.NoError(t, err)
		assert.Equal(t, []string{"vectors.mvix"}, names)

		names, err = s.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, names, 3)
	})

	t.Run("ListMissingRoot", func(t *testing.T) {
		s := NewLocalStore(filepath.Join(t.TempDir(), "never-created"))

		names, err := s.List(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, names)
	})
}
