package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type generateRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		StopSequences []string `json:"stopSequences"`
	} `json:"generationConfig"`
}

func TestGenerate(t *testing.T) {
	var got generateRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"こんにちは"}]},"finishReason":"STOP"}]}`)
	}))
	defer srv.Close()

	client, err := New(context.Background(), "test-key", srv.URL)
	require.NoError(t, err)

	answer, err := client.Generate(context.Background(), "Hello")
	require.NoError(t, err)

	assert.Equal(t, "こんにちは", answer)
	assert.True(t, strings.HasSuffix(path, "/models/"+Model+":generateContent"), "path = %s", path)
	require.Len(t, got.Contents, 1)
	require.Len(t, got.Contents[0].Parts, 1)
	assert.Equal(t, "Hello", got.Contents[0].Parts[0].Text)
	assert.Equal(t, []string{"。"}, got.GenerationConfig.StopSequences)
}

func TestGenerate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`)
	}))
	defer srv.Close()

	client, err := New(context.Background(), "test-key", srv.URL)
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "Hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate content")
}
