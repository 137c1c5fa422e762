package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pippora/pippora/internal/blog"
	apperrors "github.com/pippora/pippora/internal/errors"
	"github.com/pippora/pippora/internal/portrait"
	"github.com/pippora/pippora/internal/server/middleware"
)

type portraitFunc func(ctx context.Context, req portrait.Request) (*portrait.Result, error)

func (f portraitFunc) Generate(ctx context.Context, req portrait.Request) (*portrait.Result, error) {
	return f(ctx, req)
}

type blogFunc func(ctx context.Context, req blog.Request) (*blog.Post, error)

func (f blogFunc) Generate(ctx context.Context, req blog.Request) (*blog.Post, error) {
	return f(ctx, req)
}

func TestPortraitHandlerSuccess(t *testing.T) {
	var got portrait.Request
	h := middleware.ClientIP(true)(PortraitHandler(portraitFunc(func(_ context.Context, req portrait.Request) (*portrait.Result, error) {
		got = req
		return &portrait.Result{Success: true, ImageURL: "https://img/1", PetDescription: "a pug", Email: req.Email}, nil
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/generate-portrait", strings.NewReader(`{"email":"a@b.com","petImageBase64":"data:image/png;base64,AAAA"}`))
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a@b.com", got.Email)
	assert.Equal(t, "data:image/png;base64,AAAA", got.PetImage)
	assert.Equal(t, "198.51.100.1", got.ClientIP)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "https://img/1", body["imageUrl"])
	assert.Equal(t, "a pug", body["petDescription"])
	assert.Equal(t, "a@b.com", body["email"])
}

func TestPortraitHandlerRateLimited(t *testing.T) {
	h := PortraitHandler(portraitFunc(func(context.Context, portrait.Request) (*portrait.Result, error) {
		return nil, apperrors.NewRateLimitedError("Too many requests from your location. Try again in 30 minutes.",
			apperrors.RateLimitInfo{Scope: "ip", ResetIn: 30})
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/generate-portrait", strings.NewReader(`{}`)))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1800", rec.Header().Get("Retry-After"))

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "RATE_LIMITED", body.Error.Code)
	assert.Equal(t, true, body.Error.Details["rateLimitExceeded"])
}

func TestPortraitHandlerInvalidJSON(t *testing.T) {
	h := PortraitHandler(portraitFunc(func(context.Context, portrait.Request) (*portrait.Result, error) {
		t.Fatal("generator must not run")
		return nil, nil
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/generate-portrait", strings.NewReader(`{"email":`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBlogHandler(t *testing.T) {
	h := BlogHandler(blogFunc(func(_ context.Context, req blog.Request) (*blog.Post, error) {
		if req.Topic == "" {
			return nil, apperrors.NewValidationError("Topic and keywords are required")
		}
		return &blog.Post{Success: true, Sections: blog.Sections{Title: "T", Slug: "t"}, FullContent: "x", WordCount: 1}, nil
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/generate-blog",
		strings.NewReader(`{"topic":"Cats","keywords":"cat","wordCount":1500,"includeIntro":true}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "T", body["title"])
	assert.Equal(t, "t", body["slug"])
	assert.EqualValues(t, 1, body["wordCount"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/generate-blog", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errBody apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errBody))
	assert.Equal(t, "Topic and keywords are required", errBody.Error.Message)
}
