package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pippora/pippora/internal/ailink/driver"
)

func TestClientGenerateImageReturnsHostedURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/images/generations", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "dall-e-3", payload["model"])
		require.Equal(t, "portrait prompt", payload["prompt"])
		require.EqualValues(t, 1, payload["n"])
		require.Equal(t, "1024x1792", payload["size"])
		require.Equal(t, "hd", payload["quality"])
		require.Equal(t, "url", payload["response_format"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created":1,"data":[{"url":"https://images.example/p.png","revised_prompt":"revised"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	resp, err := client.GenerateImage(context.Background(), &driver.ImageRequest{
		Model:   "dall-e-3",
		Prompt:  "portrait prompt",
		Count:   1,
		Size:    "1024x1792",
		Quality: "hd",
	})
	require.NoError(t, err)
	require.Equal(t, "https://images.example/p.png", resp.FirstURL())
	require.Equal(t, "revised", resp.Images[0].Text)
}

func TestClientGenerateImageDALLEOmitsOutputFormatAndBackground(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		require.Equal(t, "b64_json", payload["response_format"])
		require.Equal(t, "standard", payload["quality"])
		_, hasOutput := payload["output_format"]
		require.False(t, hasOutput)
		_, hasBackground := payload["background"]
		require.False(t, hasBackground)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created":1,"data":[{"b64_json":"aGVsbG8="}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	resp, err := client.GenerateImage(context.Background(), &driver.ImageRequest{Model: "dall-e-3", Prompt: "hello", ResponseFormat: "b64_json", OutputFormat: "webp", Background: "transparent", Quality: "auto"})
	require.NoError(t, err)
	require.Len(t, resp.Images, 1)
	require.Equal(t, []byte("hello"), resp.Images[0].Data)
	require.Empty(t, resp.FirstURL())
}

func TestClientGenerateImageValidatesInput(t *testing.T) {
	client := NewClient("", "test-key")

	_, err := client.GenerateImage(context.Background(), &driver.ImageRequest{})
	require.ErrorContains(t, err, "prompt")

	_, err = client.GenerateImage(context.Background(), &driver.ImageRequest{Prompt: "x", Count: 11})
	require.ErrorContains(t, err, "count")
}

func TestClientGenerateImageEmptyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"created":1,"data":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.GenerateImage(context.Background(), &driver.ImageRequest{Prompt: "x"})
	require.ErrorContains(t, err, "no images")
}
