package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "notegraph/pkg/errors"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no stray .env
	for _, k := range []string{"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "MAX_EMBED_CHARS", "BUILD_MIN_SIMILARITY", "QUERY_MIN_SIMILARITY", "MAX_RELATIONSHIPS_PER_NOTE"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.EmbeddingProvider)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, 8000, cfg.MaxEmbedChars)
	assert.Equal(t, 20, cfg.MaxRelationshipsPerNote)
	assert.Equal(t, 0.6, cfg.BuildMinSimilarity)
	assert.Equal(t, 0.7, cfg.QueryMinSimilarity)
}

func TestLoad_OllamaDefaultModel(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("EMBEDDING_PROVIDER", "ollama")
	t.Setenv("EMBEDDING_MODEL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", cfg.EmbeddingModel)
}

func TestLoad_UnknownProvider(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("EMBEDDING_PROVIDER", "carrier-pigeon")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConfig))
}

func TestLoad_BadNumberFallsBackToDefault(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("EMBEDDING_PROVIDER", "")
	t.Setenv("MAX_EMBED_CHARS", "lots")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.MaxEmbedChars)
}

func TestValidate_RejectsOutOfRangeFloor(t *testing.T) {
	cfg := &Config{EmbeddingProvider: "openai", EmbedBurst: 1, MaxEmbedChars: 10, BuildMinSimilarity: 2}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BUILD_MIN_SIMILARITY")
}
