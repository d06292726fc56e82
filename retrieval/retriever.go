package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// Retriever answers ranked-snippet queries over a loaded index.
//
// Ranking is deterministic lexical scoring: chunks are ordered by how many
// query terms they contain, weighted by term frequency. The index is loaded
// lazily on first search and shared read-only across concurrent requests.
type Retriever struct {
	index *Index

	mu     sync.RWMutex
	chunks []Chunk
	loaded bool
}

// NewRetriever creates a Retriever over the given index.
func NewRetriever(index *Index) *Retriever {
	return &Retriever{index: index}
}

// Invalidate drops the in-memory chunk cache so the next search reloads from
// disk. Called after ingestion rebuilds the index.
func (r *Retriever) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = false
	r.chunks = nil
}

// Search returns the k best-matching chunks for a city and interest tags.
func (r *Retriever) Search(ctx context.Context, city string, interests []string, k int) ([]Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chunks, err := r.load()
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = 8
	}

	query := city + " travel guide tips " + strings.Join(interests, " ")
	terms := tokenize(query)

	type scored struct {
		chunk Chunk
		score float64
		pos   int
	}

	results := make([]scored, 0, len(chunks))
	for i, chunk := range chunks {
		s := score(terms, chunk.Content)
		if s > 0 {
			results = append(results, scored{chunk: chunk, score: s, pos: i})
		}
	}

	// Stable by construction: ties keep index order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if len(results) > k {
		results = results[:k]
	}
	out := make([]Chunk, len(results))
	for i, res := range results {
		out[i] = res.chunk
	}
	return out, nil
}

func (r *Retriever) load() ([]Chunk, error) {
	r.mu.RLock()
	if r.loaded {
		chunks := r.chunks
		r.mu.RUnlock()
		return chunks, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return r.chunks, nil
	}
	chunks, err := r.index.Load()
	if err != nil {
		return nil, fmt.Errorf("retrieval index unavailable: %w", err)
	}
	r.chunks = chunks
	r.loaded = true
	return chunks, nil
}

// score sums per-term frequencies of the query terms in the chunk text.
// City and interest terms are all weighted equally; the generic filler words
// in the query template simply match nothing in most chunks.
func score(terms []string, content string) float64 {
	if len(terms) == 0 {
		return 0
	}
	freq := map[string]int{}
	for _, tok := range tokenize(content) {
		freq[tok]++
	}
	total := 0.0
	for _, term := range terms {
		total += float64(freq[term])
	}
	return total
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
