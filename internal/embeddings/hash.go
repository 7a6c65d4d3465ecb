package embeddings

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashDimension matches the bge-small/MiniLM family so stores can
// switch providers without re-dimensioning.
const DefaultHashDimension = 384

// HashProvider generates deterministic embeddings via feature hashing.
//
// Each token (word unigrams plus character trigrams) is hashed into a bucket
// with a sign, accumulated and unit-normalized. The result is stable across
// runs and platforms, requires no model files and supports cosine similarity,
// at the cost of real semantic understanding. Intended for tests, CI and
// offline use.
type HashProvider struct {
	dimension int
}

// NewHashProvider creates a hash provider with the given dimension.
// A dimension of 0 selects DefaultHashDimension.
func NewHashProvider(dimension int) (*HashProvider, error) {
	if dimension < 0 {
		return nil, fmt.Errorf("%w: dimension cannot be negative", ErrInvalidConfig)
	}
	if dimension == 0 {
		dimension = DefaultHashDimension
	}
	return &HashProvider{dimension: dimension}, nil
}

// EmbedDocuments generates embeddings for multiple texts.
func (p *HashProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		emb, err := p.embed(text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// EmbedQuery generates an embedding for a single query. Queries and documents
// share the same feature space, so no prefixing is needed.
func (p *HashProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return p.embed(text)
}

// Dimension returns the embedding dimension.
func (p *HashProvider) Dimension() int {
	return p.dimension
}

// Close is a no-op for the hash provider.
func (p *HashProvider) Close() error {
	return nil
}

func (p *HashProvider) embed(text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	vec := make([]float32, p.dimension)
	for _, feature := range features(text) {
		h := fnv.New64a()
		h.Write([]byte(feature))
		sum := h.Sum64()

		bucket := int(sum % uint64(p.dimension))
		// One hash bit decides the sign, which keeps the expected dot
		// product of unrelated texts near zero.
		if sum&(1<<63) != 0 {
			vec[bucket] -= 1
		} else {
			vec[bucket] += 1
		}
	}

	normalize(vec)
	return vec, nil
}

// features splits text into lowercase word unigrams and character trigrams.
func features(text string) []string {
	var feats []string
	for _, word := range tokenize(text) {
		feats = append(feats, word)
		runes := []rune(word)
		for i := 0; i+3 <= len(runes); i++ {
			feats = append(feats, "3g:"+string(runes[i:i+3]))
		}
	}
	return feats
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func normalize(vec []float32) {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(sumSq))
	for i := range vec {
		vec[i] *= norm
	}
}
