package embeddings

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHashProvider(t *testing.T) {
	tests := []struct {
		name      string
		dimension int
		want      int
		wantErr   bool
	}{
		{name: "default dimension", dimension: 0, want: DefaultHashDimension},
		{name: "custom dimension", dimension: 128, want: 128},
		{name: "negative dimension", dimension: -1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewHashProvider(tt.dimension)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Dimension())
		})
	}
}

func TestHashProvider_Deterministic(t *testing.T) {
	p, err := NewHashProvider(0)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := p.EmbedQuery(ctx, "a lantern in the fog")
	require.NoError(t, err)
	second, err := p.EmbedQuery(ctx, "a lantern in the fog")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestHashProvider_UnitNorm(t *testing.T) {
	p, err := NewHashProvider(64)
	require.NoError(t, err)

	texts := []string{
		"x",
		"two words",
		"a considerably longer sentence with many distinct tokens inside it",
	}
	for _, text := range texts {
		emb, err := p.EmbedQuery(context.Background(), text)
		require.NoError(t, err)
		require.Len(t, emb, 64)

		var sumSq float64
		for _, v := range emb {
			sumSq += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, sumSq, 1e-6, "text %q", text)
	}
}

func TestHashProvider_EmptyInput(t *testing.T) {
	p, err := NewHashProvider(0)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = p.EmbedQuery(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = p.EmbedQuery(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = p.EmbedDocuments(ctx, nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestHashProvider_EmbedDocuments(t *testing.T) {
	p, err := NewHashProvider(0)
	require.NoError(t, err)

	texts := []string{"first document", "second document", "third"}
	embs, err := p.EmbedDocuments(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, embs, len(texts))

	// Documents and queries share one feature space.
	query, err := p.EmbedQuery(context.Background(), "second document")
	require.NoError(t, err)
	assert.Equal(t, embs[1], query)
}

func TestHashProvider_SharedTokensScoreHigher(t *testing.T) {
	p, err := NewHashProvider(0)
	require.NoError(t, err)
	ctx := context.Background()

	query, err := p.EmbedQuery(ctx, "the brave knight rode north")
	require.NoError(t, err)
	related, err := p.EmbedQuery(ctx, "the brave knight rode north at dawn")
	require.NoError(t, err)
	unrelated, err := p.EmbedQuery(ctx, "quarterly spreadsheet maintenance window")
	require.NoError(t, err)

	assert.Greater(t, cosine(query, related), cosine(query, unrelated))
}

func TestHashProvider_ContextCancellation(t *testing.T) {
	p, err := NewHashProvider(0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.EmbedQuery(ctx, "anything")
	assert.ErrorIs(t, err, context.Canceled)
}

func cosine(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestNewProvider_Dispatch(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Provider: "hash", Dimension: 32})
	require.NoError(t, err)
	assert.Equal(t, 32, p.Dimension())
	require.NoError(t, p.Close())

	p, err = NewProvider(ProviderConfig{})
	require.NoError(t, err)
	assert.Equal(t, DefaultHashDimension, p.Dimension())
	require.NoError(t, p.Close())

	_, err = NewProvider(ProviderConfig{Provider: "openai"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestHashProvider_DifferentTextsDiffer(t *testing.T) {
	p, err := NewHashProvider(0)
	require.NoError(t, err)
	ctx := context.Background()

	a, err := p.EmbedQuery(ctx, "stormlit harbor")
	require.NoError(t, err)
	b, err := p.EmbedQuery(ctx, "desert caravan")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, math.Abs(cosine(a, b)) < 0.5, "unrelated texts should not be strongly correlated")
}
