package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/zatekoja/keywordscout/pkg/errors"
)

func writeFixture(t *testing.T, keywords []string, vectors [][]float32, chunkSize int) (string, string) {
	t.Helper()
	dir := t.TempDir()
	metadataPath := filepath.Join(dir, "embeddings_metadata.json")
	chunksDir := filepath.Join(dir, "chunks")
	require.NoError(t, WriteChunkStore(metadataPath, chunksDir, keywords, vectors, chunkSize))
	return metadataPath, chunksDir
}

func TestChunkStore_RoundTrip(t *testing.T) {
	keywords := []string{"alpha", "beta", "gamma"}
	vectors := [][]float32{{1, 0}, {0, 1}, {0.6, 0.8}}
	metadataPath, chunksDir := writeFixture(t, keywords, vectors, 2)

	store, err := LoadChunkStore(context.Background(), metadataPath, chunksDir)
	require.NoError(t, err)

	assert.Equal(t, 3, store.Len())
	assert.Equal(t, 2, store.Dimensions())
	assert.Equal(t, "gamma", store.Keyword(2))

	vec, norm := store.Vector(2)
	assert.Equal(t, []float32{0.6, 0.8}, vec)
	assert.InDelta(t, 1.0, norm, 1e-6)

	files, err := os.ReadDir(chunksDir)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	raw, err := os.ReadFile(metadataPath)
	require.NoError(t, err)
	var meta Metadata
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, 1, meta.Chunks[0].EndIndex)
	assert.Equal(t, "chunk_001.bin", meta.Chunks[1].FilePath)
	assert.Equal(t, KeywordVector{Keyword: "gamma", ChunkID: 1, LocalIndex: 0}, meta.Keywords[2])
}

func TestChunkStore_TruncatedChunk(t *testing.T) {
	metadataPath, chunksDir := writeFixture(t, []string{"alpha", "beta"}, [][]float32{{1, 0}, {0, 1}}, 10)
	require.NoError(t, os.WriteFile(filepath.Join(chunksDir, "chunk_000.bin"), []byte{0, 0, 0}, 0o644))

	_, err := LoadChunkStore(context.Background(), metadataPath, chunksDir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrCorpusUnavailable))
	assert.Equal(t, apperrors.ErrorTypeFatal, apperrors.TypeOf(err))
}

func TestChunkStore_MissingMetadata(t *testing.T) {
	_, err := LoadChunkStore(context.Background(), filepath.Join(t.TempDir(), "nope.json"), t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrCorpusUnavailable))
}

func TestChunkStore_KeywordCountMismatch(t *testing.T) {
	metadataPath, chunksDir := writeFixture(t, []string{"alpha"}, [][]float32{{1, 0}}, 10)

	raw, err := os.ReadFile(metadataPath)
	require.NoError(t, err)
	var meta Metadata
	require.NoError(t, json.Unmarshal(raw, &meta))
	meta.TotalKeywords = 5
	raw, err = json.Marshal(meta)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(metadataPath, raw, 0o644))

	_, err = LoadChunkStore(context.Background(), metadataPath, chunksDir)
	assert.Error(t, err)
}

func TestWriteChunkStore_RejectsRaggedVectors(t *testing.T) {
	dir := t.TempDir()
	err := WriteChunkStore(filepath.Join(dir, "m.json"), dir, []string{"a", "b"}, [][]float32{{1, 0}, {1}}, 10)
	assert.Error(t, err)
}
