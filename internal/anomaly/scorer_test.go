package anomaly

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryHistory is an in-process History with the same list semantics as Redis.
type memoryHistory struct {
	lists map[string][]float64
	err   error
}

func newMemoryHistory() *memoryHistory {
	return &memoryHistory{lists: map[string][]float64{}}
}

func (m *memoryHistory) Push(_ context.Context, key string, amount float64, keep int) ([]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	l := append([]float64{amount}, m.lists[key]...)
	if len(l) > keep {
		l = l[:keep]
	}
	m.lists[key] = l
	return append([]float64(nil), l...), nil
}

func (m *memoryHistory) Range(_ context.Context, key string, limit int) ([]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	l := m.lists[key]
	if limit < len(l) {
		l = l[:limit]
	}
	return append([]float64(nil), l...), nil
}

func (m *memoryHistory) Delete(_ context.Context, key string) error {
	if m.err != nil {
		return m.err
	}
	delete(m.lists, key)
	return nil
}

func TestKey(t *testing.T) {
	assert.Equal(t, "vendor:ACME:amounts", Key("ACME"))
	assert.Equal(t, "vendor:UNKNOWN:amounts", Key(""))
}

func TestZScore(t *testing.T) {
	assert.Equal(t, 0.0, ZScore([]float64{1, 2, 3, 4}, 4), "too few samples")
	assert.Equal(t, 0.0, ZScore([]float64{5, 5, 5, 5, 5}, 5), "no variance")

	// mean 30, population stdev sqrt(200)
	assert.Equal(t, 1.41, ZScore([]float64{50, 40, 30, 20, 10}, 50))
	assert.Equal(t, -1.41, ZScore([]float64{10, 20, 30, 40, 50}, 10))
}

func TestScorer_Score(t *testing.T) {
	ctx := context.Background()
	store := newMemoryHistory()
	s := NewScorer(store)

	for _, amt := range []float64{10, 20, 30, 40} {
		assert.Equal(t, 0.0, s.Score(ctx, "ACME", amt, 1, "INV"))
	}
	assert.Equal(t, 1.41, s.Score(ctx, "ACME", 50, 1, "INV-5"))

	// other vendors keep separate history
	assert.Equal(t, 0.0, s.Score(ctx, "GLOBEX", 1000, 1, "INV-6"))
	assert.Len(t, store.lists[Key("ACME")], 5)
}

func TestScorer_TrimsHistory(t *testing.T) {
	ctx := context.Background()
	store := newMemoryHistory()
	s := NewScorer(store)

	for i := 0; i < MaxHistory+10; i++ {
		s.Score(ctx, "", float64(i), 1, "")
	}

	hist, err := s.History(ctx, "", 100)
	require.NoError(t, err)
	assert.Len(t, hist, MaxHistory)
	assert.Equal(t, float64(MaxHistory+9), hist[0])
}

func TestScorer_StoreFailureIsNeutral(t *testing.T) {
	store := newMemoryHistory()
	store.err = errors.New("connection refused")

	s := NewScorer(store)
	assert.Equal(t, 0.0, s.Score(context.Background(), "ACME", 99, 1, "INV"))
}

func TestScorer_Unconfigured(t *testing.T) {
	ctx := context.Background()
	s := NewScorer(nil)

	assert.Equal(t, 0.0, s.Score(ctx, "ACME", 10, 1, ""))
	_, err := s.History(ctx, "ACME", 10)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, s.Reset(ctx, "ACME"), ErrNotConfigured)
}

func TestScorer_HistoryAndReset(t *testing.T) {
	ctx := context.Background()
	s := NewScorer(newMemoryHistory())
	s.Score(ctx, "ACME", 1, 1, "")
	s.Score(ctx, "ACME", 2, 1, "")
	s.Score(ctx, "ACME", 3, 1, "")

	hist, err := s.History(ctx, "ACME", 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 2}, hist)

	require.NoError(t, s.Reset(ctx, "ACME"))
	hist, err = s.History(ctx, "ACME", 10)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestRedisHistory_UnreachableServerScoresNeutral(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	s := NewScorer(NewRedisHistory(client))
	assert.Equal(t, 0.0, s.Score(context.Background(), "ACME", 10, 1, "INV"))
}

func TestConnect(t *testing.T) {
	client, err := Connect(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, client)

	_, err = Connect(context.Background(), "not a url")
	assert.ErrorContains(t, err, "parse redis URL")
}

func TestParseAmounts(t *testing.T) {
	assert.Equal(t, []float64{1.5, 20}, parseAmounts([]string{"1.5", "junk", "20"}))
}
