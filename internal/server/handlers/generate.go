package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pippora/pippora/internal/blog"
	apperrors "github.com/pippora/pippora/internal/errors"
	"github.com/pippora/pippora/internal/portrait"
	"github.com/pippora/pippora/internal/server/middleware"
)

// MaxRequestBytes caps JSON bodies. Portrait uploads carry a base64 image.
const MaxRequestBytes = 16 << 20

// PortraitGenerator produces portraits. *portrait.Service satisfies it.
type PortraitGenerator interface {
	Generate(ctx context.Context, req portrait.Request) (*portrait.Result, error)
}

// BlogGenerator produces blog posts. *blog.Service satisfies it.
type BlogGenerator interface {
	Generate(ctx context.Context, req blog.Request) (*blog.Post, error)
}

// PortraitHandler serves POST /api/generate-portrait.
func PortraitHandler(gen PortraitGenerator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req portrait.Request
		if !decodeBody(w, r, &req) {
			return
		}
		req.ClientIP = middleware.GetClientIP(r.Context())
		if req.ClientIP == "" {
			req.ClientIP = middleware.ResolveClientIP(r, false)
		}

		result, err := gen.Generate(r.Context(), req)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// BlogHandler serves POST /api/generate-blog.
func BlogHandler(gen BlogGenerator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req blog.Request
		if !decodeBody(w, r, &req) {
			return
		}

		post, err := gen.Generate(r.Context(), req)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, post)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, r, apperrors.NewInvalidInputError("Request body is too large"))
			return false
		}
		respondWithError(w, r, apperrors.NewInvalidInputError("Request body must be valid JSON"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
