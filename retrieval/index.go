// Package retrieval provides the travel-guide knowledge index: ingestion of
// city guide text into chunked documents on disk, and ranked search over them.
package retrieval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultIndexDir is the directory holding the persisted index. Its existence
// gates the /plan endpoint: no index, no planning.
const DefaultIndexDir = "vectorstore"

const chunksFile = "chunks.json"

// Chunk is one indexed piece of guide text.
type Chunk struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Index is the persisted chunk store.
type Index struct {
	dir string
}

// NewIndex creates an Index rooted at dir. Empty dir uses DefaultIndexDir.
func NewIndex(dir string) *Index {
	if dir == "" {
		dir = DefaultIndexDir
	}
	return &Index{dir: dir}
}

// Dir returns the index directory.
func (ix *Index) Dir() string {
	return ix.dir
}

// Exists reports whether the index has been built.
func (ix *Index) Exists() bool {
	_, err := os.Stat(filepath.Join(ix.dir, chunksFile))
	return err == nil
}

// Load reads all chunks from disk.
func (ix *Index) Load() ([]Chunk, error) {
	raw, err := os.ReadFile(filepath.Join(ix.dir, chunksFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	var chunks []Chunk
	if err := json.Unmarshal(raw, &chunks); err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}
	return chunks, nil
}

// Write replaces the persisted index with the given chunks.
func (ix *Index) Write(chunks []Chunk) error {
	if err := os.MkdirAll(ix.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index dir: %w", err)
	}
	raw, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(ix.dir, chunksFile), raw, 0o644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}
