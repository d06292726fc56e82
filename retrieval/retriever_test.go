package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T, chunks []Chunk) *Index {
	t.Helper()
	ix := NewIndex(t.TempDir())
	require.NoError(t, ix.Write(chunks))
	return ix
}

func TestIndexExists(t *testing.T) {
	ix := NewIndex(t.TempDir())
	assert.False(t, ix.Exists())

	require.NoError(t, ix.Write([]Chunk{{Content: "x"}}))
	assert.True(t, ix.Exists())
}

func TestIndexRoundTrip(t *testing.T) {
	chunks := []Chunk{
		{Content: "# Rome\nThe Colosseum", Metadata: map[string]any{"source": "wikivoyage", "title": "Rome"}},
		{Content: "# Tokyo\nSenso-ji"},
	}
	ix := newTestIndex(t, chunks)

	loaded, err := ix.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "# Rome\nThe Colosseum", loaded[0].Content)
	assert.Equal(t, "wikivoyage", loaded[0].Metadata["source"])
}

func TestSearchRanksByQueryTerms(t *testing.T) {
	ix := newTestIndex(t, []Chunk{
		{Content: "# Tokyo Guide\nSushi and temples in Tokyo"},
		{Content: "# Rome Guide\nRome art and ruins. Rome is dense with art museums."},
		{Content: "# Paris Guide\nCafes along the Seine"},
	})
	r := NewRetriever(ix)

	results, err := r.Search(context.Background(), "Rome", []string{"art"}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Content, "Rome")
}

func TestSearchLimitsToK(t *testing.T) {
	chunks := make([]Chunk, 20)
	for i := range chunks {
		chunks[i] = Chunk{Content: "Rome walking route"}
	}
	r := NewRetriever(newTestIndex(t, chunks))

	results, err := r.Search(context.Background(), "Rome", nil, 10)
	require.NoError(t, err)
	assert.Len(t, results, 10)
}

func TestSearchNoIndex(t *testing.T) {
	r := NewRetriever(NewIndex(t.TempDir()))

	_, err := r.Search(context.Background(), "Rome", nil, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index unavailable")
}

func TestInvalidateReloads(t *testing.T) {
	ix := newTestIndex(t, []Chunk{{Content: "Rome before"}})
	r := NewRetriever(ix)

	results, err := r.Search(context.Background(), "Rome", nil, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	require.NoError(t, ix.Write([]Chunk{{Content: "Rome after"}, {Content: "Rome again"}}))
	r.Invalidate()

	results, err = r.Search(context.Background(), "Rome", nil, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
