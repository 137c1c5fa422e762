package integration

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pippora/pippora/internal/ailink"
	"github.com/pippora/pippora/internal/observability"
	"github.com/pippora/pippora/internal/portrait"
	"github.com/pippora/pippora/internal/ratelimit"
	"github.com/pippora/pippora/internal/server"
	"github.com/pippora/pippora/internal/server/handlers"
)

// fakeOpenAI answers the two endpoints the portrait pipeline calls.
func fakeOpenAI(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var images atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"A grey tabby with amber eyes."},"finish_reason":"stop"}]}`)
	})
	mux.HandleFunc("/images/generations", func(w http.ResponseWriter, r *http.Request) {
		n := images.Add(1)
		_, _ = fmt.Fprintf(w, `{"created":1,"data":[{"url":"https://images.example.com/%d.png"}]}`, n)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, &images
}

func petPNG(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newPortraitServer(t *testing.T, policy ratelimit.PolicyConfig, opts ...server.Option) (string, *http.Client, *atomic.Int64) {
	t.Helper()
	observability.InitServerLogger("test", "error")
	handlers.InitHealthManager("test")

	openai, images := fakeOpenAI(t)
	link, err := ailink.New(ailink.Config{BaseURL: openai.URL, APIKey: "sk-test", Timeout: 5 * time.Second})
	require.NoError(t, err)

	p, err := ratelimit.NewPolicy(policy)
	require.NoError(t, err)

	svc := portrait.New(link, portrait.Config{}, portrait.WithPolicy(p))
	ts, client := newTestServer(t, nil, append([]server.Option{server.WithPortraits(svc)}, opts...)...)
	return ts.URL, client, images
}

func postPortrait(t *testing.T, client *http.Client, url, email, ip string, image string) *http.Response {
	t.Helper()
	body, err := json.Marshal(map[string]string{"email": email, "petImageBase64": image})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url+"/api/generate-portrait", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func TestPortraitAPIConcurrentRequestsHonorEmailLimit(t *testing.T) {
	url, client, images := newPortraitServer(t, ratelimit.PolicyConfig{
		Enabled: true,
		Email:   ratelimit.Rule{Limit: 3, Window: time.Hour},
		IP:      ratelimit.Rule{Limit: 100, Window: time.Hour},
	})
	pet := petPNG(t)

	const attempts = 12
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		limited int
	)
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func(i int) {
			defer wg.Done()
			resp := postPortrait(t, client, url, "Owner@Example.com", fmt.Sprintf("203.0.113.%d", i), pet)
			_ = resp.Body.Close()
			mu.Lock()
			defer mu.Unlock()
			switch resp.StatusCode {
			case http.StatusOK:
				ok++
			case http.StatusTooManyRequests:
				limited++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, attempts-3, limited)
	assert.Equal(t, int64(3), images.Load())
}

func TestPortraitAPIRateLimitResponse(t *testing.T) {
	url, client, _ := newPortraitServer(t, ratelimit.PolicyConfig{
		Enabled: true,
		Email:   ratelimit.Rule{Limit: 5, Window: 24 * time.Hour},
		IP:      ratelimit.Rule{Limit: 1, Window: 24 * time.Hour},
	}, server.WithTrustedProxy(true))
	pet := petPNG(t)

	resp := postPortrait(t, client, url, "a@example.com", "198.51.100.7", pet)
	var result portrait.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, result.Success)
	assert.Equal(t, "https://images.example.com/1.png", result.ImageURL)
	assert.Equal(t, "A grey tabby with amber eyes.", result.PetDescription)

	resp = postPortrait(t, client, url, "b@example.com", "198.51.100.7", pet)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "86400", resp.Header.Get("Retry-After"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	assert.Equal(t, "RATE_LIMITED", envelope.Error.Code)
	assert.Equal(t, "Too many requests from your location. Try again in 1440 minutes.", envelope.Error.Message)
	assert.Equal(t, true, envelope.Error.Details["rateLimitExceeded"])
	assert.EqualValues(t, 1440, envelope.Error.Details["resetIn"])
}

func TestPortraitAPIForwardedForIgnoredByDefault(t *testing.T) {
	url, client, _ := newPortraitServer(t, ratelimit.PolicyConfig{
		Enabled: true,
		Email:   ratelimit.Rule{Limit: 5, Window: 24 * time.Hour},
		IP:      ratelimit.Rule{Limit: 1, Window: 24 * time.Hour},
	})
	pet := petPNG(t)

	resp := postPortrait(t, client, url, "a@example.com", "198.51.100.7", pet)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A different forwarded address still lands in the peer's bucket.
	resp = postPortrait(t, client, url, "b@example.com", "198.51.100.8", pet)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestPortraitAPIPreflightAndMethods(t *testing.T) {
	url, client, _ := newPortraitServer(t, ratelimit.PolicyConfig{})

	req, err := http.NewRequest(http.MethodOptions, url+"/api/generate-portrait", nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

	resp, err = client.Get(url + "/api/generate-portrait")
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.True(t, strings.Contains(string(raw), "Method not allowed"))
}
