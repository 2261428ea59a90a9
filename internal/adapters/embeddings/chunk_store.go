// Package embeddings serves the precomputed corpus embeddings and caches query
// embeddings produced by the embedding provider.
package embeddings

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/zatekoja/keywordscout/internal/domain/providers"
	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/keywordscout/pkg/errors"
	"github.com/zatekoja/keywordscout/pkg/utils"
)

const (
	// FormatVersion is written into metadata produced by WriteChunkStore
	FormatVersion = "3.0.0"

	// DefaultChunkSize is the number of vectors per chunk file
	DefaultChunkSize = 2000

	float32Size = 4
)

// Metadata describes a chunked embedding store on disk.
type Metadata struct {
	Version             string          `json:"version"`
	CreatedAt           string          `json:"created_at"`
	TotalKeywords       int             `json:"total_keywords"`
	EmbeddingDimensions int             `json:"embedding_dimensions"`
	ChunkSize           int             `json:"chunk_size"`
	Chunks              []ChunkInfo     `json:"chunks"`
	Keywords            []KeywordVector `json:"keywords"`
}

// ChunkInfo locates one chunk file. EndIndex is inclusive.
type ChunkInfo struct {
	ChunkID      int    `json:"chunk_id"`
	StartIndex   int    `json:"start_index"`
	EndIndex     int    `json:"end_index"`
	KeywordCount int    `json:"keyword_count"`
	FilePath     string `json:"file_path"`
}

// KeywordVector places a keyword inside a chunk.
type KeywordVector struct {
	Keyword    string `json:"keyword"`
	ChunkID    int    `json:"chunk_id"`
	LocalIndex int    `json:"local_index"`
}

// ChunkStore holds every corpus embedding in memory. It is read-only once
// loaded and safe for concurrent use.
type ChunkStore struct {
	dims     int
	keywords []string
	vectors  []float32
	norms    []float64
}

var _ providers.VectorStore = (*ChunkStore)(nil)

// LoadChunkStore reads the metadata file and every chunk it references.
// Chunk file paths are resolved against chunksDir.
func LoadChunkStore(ctx context.Context, metadataPath, chunksDir string) (*ChunkStore, error) {
	logger := observability.LoggerFromContext(ctx)
	start := time.Now()

	raw, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil, storeError(fmt.Sprintf("failed to read embeddings metadata %s", metadataPath), err)
	}

	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, storeError("failed to parse embeddings metadata", err)
	}
	if meta.EmbeddingDimensions <= 0 {
		return nil, storeError(fmt.Sprintf("invalid embedding dimensions %d", meta.EmbeddingDimensions), nil)
	}
	if meta.TotalKeywords != len(meta.Keywords) {
		return nil, storeError(fmt.Sprintf("metadata lists %d keywords but declares %d", len(meta.Keywords), meta.TotalKeywords), nil)
	}

	dims := meta.EmbeddingDimensions
	chunks := make(map[int][]float32, len(meta.Chunks))
	for _, chunk := range meta.Chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors, err := readChunk(filepath.Join(chunksDir, chunk.FilePath), chunk.KeywordCount, dims)
		if err != nil {
			return nil, storeError(fmt.Sprintf("chunk %d", chunk.ChunkID), err)
		}
		chunks[chunk.ChunkID] = vectors
	}

	store := &ChunkStore{
		dims:     dims,
		keywords: make([]string, len(meta.Keywords)),
		vectors:  make([]float32, len(meta.Keywords)*dims),
		norms:    make([]float64, len(meta.Keywords)),
	}
	for i, kv := range meta.Keywords {
		chunk, ok := chunks[kv.ChunkID]
		if !ok {
			return nil, storeError(fmt.Sprintf("keyword %q references unknown chunk %d", kv.Keyword, kv.ChunkID), nil)
		}
		offset := kv.LocalIndex * dims
		if kv.LocalIndex < 0 || offset+dims > len(chunk) {
			return nil, storeError(fmt.Sprintf("keyword %q has local index %d outside chunk %d", kv.Keyword, kv.LocalIndex, kv.ChunkID), nil)
		}
		store.keywords[i] = kv.Keyword
		vec := store.vectors[i*dims : (i+1)*dims]
		copy(vec, chunk[offset:offset+dims])
		store.norms[i] = utils.Norm(vec)
	}

	logger.Info().
		Int("keywords", len(store.keywords)).
		Int("dimensions", dims).
		Int("chunks", len(meta.Chunks)).
		Dur("duration", time.Since(start)).
		Msg("Embedding store loaded")

	return store, nil
}

func readChunk(path string, count, dims int) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	want := count * dims * float32Size
	if len(data) != want {
		return nil, fmt.Errorf("%s is %d bytes, expected %d for %d vectors of %d dimensions", path, len(data), want, count, dims)
	}

	vectors := make([]float32, count*dims)
	for i := range vectors {
		vectors[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*float32Size:]))
	}
	return vectors, nil
}

// WriteChunkStore writes vectors in the chunked format LoadChunkStore reads.
// vectors[i] belongs to keywords[i].
func WriteChunkStore(metadataPath, chunksDir string, keywords []string, vectors [][]float32, chunkSize int) error {
	if len(keywords) != len(vectors) {
		return fmt.Errorf("got %d keywords but %d vectors", len(keywords), len(vectors))
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	dims := 0
	if len(vectors) > 0 {
		dims = len(vectors[0])
	}

	if err := os.MkdirAll(chunksDir, 0o755); err != nil {
		return fmt.Errorf("failed to create chunks dir: %w", err)
	}

	meta := Metadata{
		Version:             FormatVersion,
		CreatedAt:           time.Now().UTC().Format(time.RFC3339),
		TotalKeywords:       len(keywords),
		EmbeddingDimensions: dims,
		ChunkSize:           chunkSize,
		Keywords:            make([]KeywordVector, 0, len(keywords)),
	}

	for chunkID, start := 0, 0; start < len(keywords); chunkID, start = chunkID+1, start+chunkSize {
		end := min(start+chunkSize, len(keywords))
		buf := make([]byte, 0, (end-start)*dims*float32Size)
		for i := start; i < end; i++ {
			if len(vectors[i]) != dims {
				return fmt.Errorf("vector for %q has %d dimensions, expected %d", keywords[i], len(vectors[i]), dims)
			}
			for _, f := range vectors[i] {
				buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
			}
			meta.Keywords = append(meta.Keywords, KeywordVector{Keyword: keywords[i], ChunkID: chunkID, LocalIndex: i - start})
		}

		name := fmt.Sprintf("chunk_%03d.bin", chunkID)
		if err := os.WriteFile(filepath.Join(chunksDir, name), buf, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		meta.Chunks = append(meta.Chunks, ChunkInfo{
			ChunkID:      chunkID,
			StartIndex:   start,
			EndIndex:     end - 1,
			KeywordCount: end - start,
			FilePath:     name,
		})
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := os.WriteFile(metadataPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// Len returns the number of stored vectors
func (s *ChunkStore) Len() int {
	return len(s.keywords)
}

// Dimensions returns the vector length
func (s *ChunkStore) Dimensions() int {
	return s.dims
}

// Keyword returns the keyword of the i-th vector
func (s *ChunkStore) Keyword(i int) string {
	return s.keywords[i]
}

// Vector returns the i-th vector and its precomputed norm. The slice aliases
// store memory and must not be modified.
func (s *ChunkStore) Vector(i int) ([]float32, float64) {
	return s.vectors[i*s.dims : (i+1)*s.dims], s.norms[i]
}

func storeError(message string, err error) error {
	if err == nil {
		err = apperrors.ErrCorpusUnavailable
	} else {
		err = fmt.Errorf("%w: %w", apperrors.ErrCorpusUnavailable, err)
	}
	return apperrors.NewFatalError(message, err)
}
