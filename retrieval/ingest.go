package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default public sources for city guide text.
const (
	DefaultWikivoyageAPI = "https://en.wikivoyage.org/w/api.php"
	DefaultWikipediaAPI  = "https://en.wikipedia.org/w/api.php"
)

// Wikimedia asks API clients to identify themselves.
const ingestUserAgent = "concierge/0.1 (travel planning service)"

const (
	chunkSize    = 800
	chunkOverlap = 120
)

// DefaultCities is the default ingestion city list.
var DefaultCities = []string{
	"Rome", "Tokyo", "Paris", "London", "Barcelona", "Berlin",
	"Amsterdam", "Prague", "Vienna", "Istanbul", "Athens",
}

// Logger is the logging interface the ingestor uses.
type Logger interface {
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
}

// Ingestor builds the retrieval index from Wikivoyage and Wikipedia city
// guides. Per-city fetch failures are logged and skipped; the job only fails
// when nothing at all could be indexed or the index cannot be written.
type Ingestor struct {
	Index         *Index
	Client        *http.Client
	WikivoyageAPI string
	WikipediaAPI  string
	Cities        []string
	Logger        Logger
}

// NewIngestor creates an Ingestor with defaults filled in.
func NewIngestor(index *Index, logger Logger) *Ingestor {
	return &Ingestor{
		Index:         index,
		Client:        &http.Client{Timeout: 30 * time.Second},
		WikivoyageAPI: DefaultWikivoyageAPI,
		WikipediaAPI:  DefaultWikipediaAPI,
		Cities:        DefaultCities,
		Logger:        logger,
	}
}

// Run fetches, dedupes, chunks and persists guide text for all configured
// cities. Returns the number of chunks indexed.
func (g *Ingestor) Run(ctx context.Context) (int, error) {
	type doc struct {
		content string
		source  string
		title   string
	}

	docs := make([]doc, 0, len(g.Cities)*2)
	for _, city := range g.Cities {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		if text, err := g.fetchExtract(ctx, g.WikivoyageAPI, city); err != nil {
			g.Logger.Warn("ingest_fetch_failed", "source", "wikivoyage", "city", city, "error", err.Error())
		} else if text != "" {
			docs = append(docs, doc{content: text, source: "wikivoyage", title: city})
		}

		if text, err := g.fetchExtract(ctx, g.WikipediaAPI, city); err != nil {
			g.Logger.Warn("ingest_fetch_failed", "source", "wikipedia", "city", city, "error", err.Error())
		} else if text != "" {
			docs = append(docs, doc{content: text, source: "wikipedia", title: city})
		}
	}

	if len(docs) == 0 {
		return 0, fmt.Errorf("no guide documents could be fetched")
	}

	// Dedupe by content hash before chunking.
	seen := map[string]bool{}
	chunks := make([]Chunk, 0, len(docs)*4)
	for _, d := range docs {
		id := docID(d.content, d.source, d.title)
		if seen[id] {
			continue
		}
		seen[id] = true

		for _, piece := range SplitText(d.content, chunkSize, chunkOverlap) {
			chunks = append(chunks, Chunk{
				Content: piece,
				Metadata: map[string]any{
					"source": d.source,
					"title":  d.title,
				},
			})
		}
	}

	if err := g.Index.Write(chunks); err != nil {
		return 0, err
	}

	g.Logger.Info("ingest_completed",
		"documents", len(docs),
		"chunks", len(chunks),
		"index_dir", g.Index.Dir(),
	)
	return len(chunks), nil
}

// fetchExtract pulls the plain-text extract of a titled page from a MediaWiki
// API endpoint.
func (g *Ingestor) fetchExtract(ctx context.Context, api, title string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts")
	params.Set("explaintext", "1")
	params.Set("format", "json")
	params.Set("formatversion", "2")
	params.Set("redirects", "1")
	params.Set("titles", title)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, api+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", ingestUserAgent)

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("extract fetch error: %s", resp.Status)
	}

	var payload struct {
		Query struct {
			Pages []struct {
				Extract string `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if len(payload.Query.Pages) == 0 {
		return "", nil
	}
	return strings.TrimSpace(payload.Query.Pages[0].Extract), nil
}

// SplitText splits text into chunks of at most size runes with the given
// overlap, preferring paragraph boundaries.
func SplitText(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}
	if overlap >= size {
		overlap = size / 4
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			// Back up to the nearest paragraph or line break inside the window.
			window := string(runes[start:end])
			if cut := lastBreak(window, "\n\n"); cut > size/2 {
				end = start + cut
			} else if cut := lastBreak(window, "\n"); cut > size/2 {
				end = start + cut
			}
		}

		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			chunks = append(chunks, piece)
		}
		if end == len(runes) {
			break
		}
		start = end - overlap
	}
	return chunks
}

// lastBreak returns the rune offset of the last sep in window, or -1.
// strings.LastIndex reports bytes; chunk arithmetic is in runes, so the
// offset has to be converted before it is used to slice the rune buffer.
func lastBreak(window, sep string) int {
	cut := strings.LastIndex(window, sep)
	if cut < 0 {
		return -1
	}
	return len([]rune(window[:cut]))
}

func docID(content, source, title string) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(content)))
	h.Write([]byte(source))
	h.Write([]byte(title))
	return hex.EncodeToString(h.Sum(nil))
}
