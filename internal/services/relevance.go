package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	gocache "github.com/patrickmn/go-cache"
	"math"
	"time"
)

type embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RelevanceScorer compares texts by the cosine similarity of their embeddings.
type RelevanceScorer struct {
	embedder embedder
	cache    *gocache.Cache
}

func NewRelevanceScorer(embedder embedder) *RelevanceScorer {
	return &RelevanceScorer{embedder: embedder, cache: gocache.New(24*time.Hour, time.Hour)}
}

func (s *RelevanceScorer) Similarity(ctx context.Context, a, b string) (float64, error) {

	first, err := s.embedding(ctx, a)
	if err != nil {
		return 0, err
	}

	second, err := s.embedding(ctx, b)
	if err != nil {
		return 0, err
	}

	return cosineSimilarity(first, second)
}

func (s *RelevanceScorer) embedding(ctx context.Context, text string) ([]float32, error) {

	key := textHash(text)
	if cached, found := s.cache.Get(key); found {
		return cached.([]float32), nil
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("error embedding text: %w", err)
	}

	s.cache.Set(key, vector, gocache.DefaultExpiration)
	return vector, nil
}

func textHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

func cosineSimilarity(a, b []float32) (float64, error) {

	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimensions differ: %d and %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("zero embedding vector")
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(-1, math.Min(1, similarity)), nil
}
