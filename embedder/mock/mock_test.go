package mock

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("Deterministic", func(t *testing.T) {
		emb := New()

		a, err := emb.Embed(ctx, "the same text")
		require.NoError(t, err)
		b, err := emb.Embed(ctx, "the same text")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("DifferentTextsDiffer", func(t *testing.T) {
		emb := New()

		a, err := emb.Embed(ctx, "first")
		require.NoError(t, err)
		b, err := emb.Embed(ctx, "second")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("UnitNorm", func(t *testing.T) {
		emb := New()

		vec, err := emb.Embed(ctx, "normalize me")
		require.NoError(t, err)
		require.Len(t, vec, DefaultDimensions)

		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-4)
	})

	t.Run("CustomDimensions", func(t *testing.T) {
		emb := New(func(o *Options) {
			o.Dimensions = 8
		})
		assert.Equal(t, 8, emb.Dimensions())

		vec, err := emb.Embed(ctx, "small")
		require.NoError(t, err)
		assert.Len(t, vec, 8)
	})
}
