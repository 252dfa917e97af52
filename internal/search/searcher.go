package search

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"
)

const (
	defaultTopK      = 3
	defaultThreshold = 0.25
)

// Embedder lifts texts into vectors. Implemented by EmbeddingClient.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Document is one searchable catalog entry.
type Document struct {
	ID   int64
	Text string
}

// Searcher ranks documents by cosine similarity to a query. It is an
// explicitly constructed dependency with lifecycle owned by startup wiring,
// not module-level state.
type Searcher struct {
	logger    *zap.SugaredLogger
	embedder  Embedder
	topK      int
	threshold float64
}

// Option alters Searcher construction defaults
type Option func(*Searcher)

// TopK caps how many document ids a search returns
func TopK(k int) Option {
	return func(s *Searcher) { s.topK = k }
}

// Threshold drops documents whose similarity falls below the given score
func Threshold(score float64) Option {
	return func(s *Searcher) { s.threshold = score }
}

func NewSearcher(logger *zap.SugaredLogger, embedder Embedder, opts ...Option) *Searcher {
	s := &Searcher{
		logger:    logger,
		embedder:  embedder,
		topK:      defaultTopK,
		threshold: defaultThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search returns ids of the most similar documents, best first. Both query
// and documents are embedded in a single request.
func (s *Searcher) Search(ctx context.Context, query string, docs []Document) ([]int64, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	texts := make([]string, 0, len(docs)+1)
	texts = append(texts, query)
	for _, d := range docs {
		texts = append(texts, d.Text)
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	queryVec := vectors[0]

	type scored struct {
		id    int64
		score float64
	}
	ranked := make([]scored, 0, len(docs))
	for i, d := range docs {
		ranked = append(ranked, scored{id: d.ID, score: cosine(queryVec, vectors[i+1])})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	var ids []int64
	for _, r := range ranked {
		if r.score < s.threshold {
			continue
		}
		if len(ids) >= s.topK {
			break
		}
		ids = append(ids, r.id)
	}

	s.logger.Debugf("Semantic search matched %d of %d documents", len(ids), len(docs))

	return ids, nil
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
