package middleware

import (
	"net/http"
	"strings"
)

// CORSConfig controls the headers written by CORS.
type CORSConfig struct {
	AllowOrigin      string   `mapstructure:"allow_origin"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

// DefaultCORSConfig matches the browser clients of the generator pages.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigin:  "*",
		AllowMethods: []string{"GET", "OPTIONS", "PATCH", "DELETE", "POST", "PUT"},
		AllowHeaders: []string{
			"X-CSRF-Token", "X-Requested-With", "Accept", "Accept-Version", "Content-Length",
			"Content-MD5", "Content-Type", "Date", "X-Api-Version",
		},
		AllowCredentials: true,
	}
}

// CORS writes the configured headers on every response and answers
// preflight OPTIONS requests with 200 and no body.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	defaults := DefaultCORSConfig()
	if strings.TrimSpace(cfg.AllowOrigin) == "" {
		cfg.AllowOrigin = defaults.AllowOrigin
	}
	if len(cfg.AllowMethods) == 0 {
		cfg.AllowMethods = defaults.AllowMethods
	}
	if len(cfg.AllowHeaders) == 0 {
		cfg.AllowHeaders = defaults.AllowHeaders
	}
	methods := strings.Join(cfg.AllowMethods, ",")
	headers := strings.Join(cfg.AllowHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			h.Set("Access-Control-Allow-Origin", cfg.AllowOrigin)
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
