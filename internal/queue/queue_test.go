package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateQueue(t *testing.T) {
	t.Run("KeepsBestK", func(t *testing.T) {
		q := NewCandidateQueue(3)
		for slot, score := range []float32{0.1, 0.9, 0.5, 0.7, 0.3} {
			q.Push(Candidate{Slot: slot, Score: score})
		}

		ranked := q.Ranked()
		require.Len(t, ranked, 3)
		assert.Equal(t, Candidate{Slot: 1, Score: 0.9}, ranked[0])
		assert.Equal(t, Candidate{Slot: 3, Score: 0.7}, ranked[1])
		assert.Equal(t, Candidate{Slot: 2, Score: 0.5}, ranked[2])
	})

	t.Run("TiesRankEarlierSlotFirst", func(t *testing.T) {
		q := NewCandidateQueue(4)
		for _, slot := range []int{3, 0, 2, 1} {
			q.Push(Candidate{Slot: slot, Score: 1.0})
		}

		ranked := q.Ranked()
		require.Len(t, ranked, 4)
		for i, c := range ranked {
			assert.Equal(t, i, c.Slot)
		}
	})

	t.Run("TiedNewcomerDoesNotDisplace", func(t *testing.T) {
		q := NewCandidateQueue(2)
		q.Push(Candidate{Slot: 0, Score: 0.5})
		q.Push(Candidate{Slot: 1, Score: 0.5})
		q.Push(Candidate{Slot: 2, Score: 0.5})

		ranked := q.Ranked()
		require.Len(t, ranked, 2)
		assert.Equal(t, 0, ranked[0].Slot)
		assert.Equal(t, 1, ranked[1].Slot)
	})

	t.Run("FewerThanK", func(t *testing.T) {
		q := NewCandidateQueue(10)
		q.Push(Candidate{Slot: 0, Score: 0.2})
		q.Push(Candidate{Slot: 1, Score: 0.8})

		ranked := q.Ranked()
		require.Len(t, ranked, 2)
		assert.Equal(t, 1, ranked[0].Slot)
		assert.Equal(t, 0, ranked[1].Slot)
	})

	t.Run("ZeroLimit", func(t *testing.T) {
		q := NewCandidateQueue(0)
		q.Push(Candidate{Slot: 0, Score: 1.0})
		assert.Empty(t, q.Ranked())
	})
}
