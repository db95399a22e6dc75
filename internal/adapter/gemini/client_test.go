package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"paperlens/internal/adapter/gemini"
)

func TestEmbedder_Embed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"embedding": map[string]interface{}{
				"values": []float32{0.1, 0.2, 0.3},
			},
		})
	}))
	defer ts.Close()

	ctx := context.Background()
	embedder, err := gemini.NewEmbedder(ctx, "test-key", "gemini-embedding-001",
		option.WithEndpoint(ts.URL))
	require.NoError(t, err)
	defer embedder.Close()

	t.Run("Success", func(t *testing.T) {
		vec, err := embedder.Embed(ctx, "hello world")
		assert.NoError(t, err)
		if assert.Len(t, vec, 3) {
			assert.Equal(t, float32(0.1), vec[0])
		}
	})
}

func TestEmbedder_EmptyResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{})
	}))
	defer ts.Close()

	ctx := context.Background()
	embedder, err := gemini.NewEmbedder(ctx, "test-key", "gemini-embedding-001",
		option.WithEndpoint(ts.URL))
	require.NoError(t, err)
	defer embedder.Close()

	vec, err := embedder.Embed(ctx, "hello")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "empty embedding")
	assert.Nil(t, vec)
}

func TestGenerator_Generate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{
					"content": map[string]interface{}{
						"role": "model",
						"parts": []map[string]interface{}{
							{"text": `{"hypothesis": "h"}`},
						},
					},
				},
			},
		})
	}))
	defer ts.Close()

	ctx := context.Background()
	generator, err := gemini.NewGenerator(ctx, "test-key", "gemini-2.0-flash",
		option.WithEndpoint(ts.URL))
	require.NoError(t, err)
	defer generator.Close()

	t.Run("Success", func(t *testing.T) {
		out, err := generator.Generate(ctx, "summarize this")
		assert.NoError(t, err)
		assert.Equal(t, `{"hypothesis": "h"}`, out)
	})
}

func TestGenerator_NoCandidates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"candidates": []interface{}{}})
	}))
	defer ts.Close()

	ctx := context.Background()
	generator, err := gemini.NewGenerator(ctx, "test-key", "gemini-2.0-flash",
		option.WithEndpoint(ts.URL))
	require.NoError(t, err)
	defer generator.Close()

	out, err := generator.Generate(ctx, "summarize this")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "empty generation response")
	assert.Empty(t, out)
}
