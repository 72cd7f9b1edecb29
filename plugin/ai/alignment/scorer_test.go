package alignment

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	vectors [][]float32
	err     error
	enabled bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[0], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors, nil
}

func (f *fakeEmbedder) Dimensions() int { return 3 }
func (f *fakeEmbedder) Model() string   { return "fake-embed" }
func (f *fakeEmbedder) Enabled() bool   { return f.enabled }

func TestCosine(t *testing.T) {
	t.Run("identical vectors score one", func(t *testing.T) {
		v := []float32{0.3, -0.1, 0.9}
		score, err := Cosine(v, v)
		require.NoError(t, err)
		require.InDelta(t, 1.0, score, 1e-9)
	})

	t.Run("opposite vectors score minus one", func(t *testing.T) {
		score, err := Cosine([]float32{1, 2, 3}, []float32{-1, -2, -3})
		require.NoError(t, err)
		require.InDelta(t, -1.0, score, 1e-9)
	})

	t.Run("orthogonal vectors score zero", func(t *testing.T) {
		score, err := Cosine([]float32{1, 0}, []float32{0, 1})
		require.NoError(t, err)
		require.InDelta(t, 0.0, score, 1e-9)
	})

	t.Run("score stays within bounds", func(t *testing.T) {
		a := []float32{0.12, -3.4, 2.2, 0.001}
		b := []float32{-1.7, 0.5, 9.1, -0.3}
		score, err := Cosine(a, b)
		require.NoError(t, err)
		require.LessOrEqual(t, score, 1.0+1e-9)
		require.GreaterOrEqual(t, score, -1.0-1e-9)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := Cosine([]float32{1, 2}, []float32{1, 2, 3})
		require.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("zero vector", func(t *testing.T) {
		_, err := Cosine([]float32{0, 0}, []float32{1, 2})
		require.Error(t, err)
	})
}

func TestTierOf(t *testing.T) {
	tests := []struct {
		score float64
		want  Tier
	}{
		{0.9, TierHigh},
		{0.75, TierHigh},
		{0.74999, TierPartial},
		{0.55, TierPartial},
		{0.54999, TierLow},
		{0.0, TierLow},
		{-0.8, TierLow},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, TierOf(tt.score), "score %f", tt.score)
	}
}

func TestScore(t *testing.T) {
	t.Run("empty narrative yields empty result", func(t *testing.T) {
		s := NewScorer(&fakeEmbedder{enabled: true}, nil)
		res := s.Score(context.Background(), "note", "")
		require.Nil(t, res.Score)
		require.Nil(t, res.Summary)
	})

	t.Run("nil embedder yields empty result", func(t *testing.T) {
		s := NewScorer(nil, nil)
		res := s.Score(context.Background(), "note", "narrative")
		require.Nil(t, res.Score)
	})

	t.Run("disabled embedder yields empty result", func(t *testing.T) {
		s := NewScorer(&fakeEmbedder{enabled: false}, nil)
		res := s.Score(context.Background(), "note", "narrative")
		require.Nil(t, res.Score)
	})

	t.Run("provider error is swallowed", func(t *testing.T) {
		s := NewScorer(&fakeEmbedder{enabled: true, err: errors.New("timeout")}, nil)
		res := s.Score(context.Background(), "note", "narrative")
		require.Nil(t, res.Score)
		require.Nil(t, res.Summary)
	})

	t.Run("dimension mismatch is swallowed", func(t *testing.T) {
		s := NewScorer(&fakeEmbedder{
			enabled: true,
			vectors: [][]float32{{1, 2, 3}, {1, 2}},
		}, nil)
		res := s.Score(context.Background(), "note", "narrative")
		require.Nil(t, res.Score)
	})

	t.Run("high alignment", func(t *testing.T) {
		s := NewScorer(&fakeEmbedder{
			enabled: true,
			vectors: [][]float32{{1, 1, 0}, {1, 1, 0.1}},
		}, nil)
		res := s.Score(context.Background(), "note", "narrative")
		require.NotNil(t, res.Score)
		require.NotNil(t, res.Summary)
		require.Equal(t, TierHigh, TierOf(*res.Score))
		require.Contains(t, *res.Summary, "High alignment")
		require.False(t, math.IsNaN(*res.Score))
	})
}
