// Package blog generates SEO blog posts from a topic and keyword list.
package blog

import (
	"context"
	"errors"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/pippora/pippora/internal/ailink"
	"github.com/pippora/pippora/internal/ailink/content"
	apperrors "github.com/pippora/pippora/internal/errors"
	"github.com/pippora/pippora/internal/metrics"
	"github.com/pippora/pippora/internal/observability"
	"github.com/pippora/pippora/internal/store"
)

// PostPrompt is the prompt slug for blog generation.
const PostPrompt = "seo-blog-post"

// Defaults applied when the request leaves them out.
const (
	DefaultWordCount = 2000
	DefaultTone      = "Professional and informative"
)

// Completer is the AI surface the service needs. *ailink.Link satisfies it.
type Completer interface {
	Configured() bool
	Complete(ctx context.Context, slug string, vars map[string]any, attachments ...content.ContentBlock) (*ailink.Completion, error)
}

// Config holds blog defaults.
type Config struct {
	DefaultWordCount int    `mapstructure:"default_word_count"`
	DefaultTone      string `mapstructure:"default_tone"`
}

// Request mirrors the form fields of the blog generator. Multi-value fields
// arrive as delimited strings.
type Request struct {
	Topic           string `json:"topic"`
	Keywords        string `json:"keywords"`
	WordCount       int    `json:"wordCount,omitempty"`
	Tone            string `json:"tone,omitempty"`
	InternalLinks   string `json:"internalLinks,omitempty"`
	PeopleAlsoAsk   string `json:"peopleAlsoAsk,omitempty"`
	RelatedSearches string `json:"relatedSearches,omitempty"`
	IncludeIntro    bool   `json:"includeIntro,omitempty"`
}

// Post is a generated blog post.
type Post struct {
	Success bool `json:"success"`
	Sections
	FullContent string `json:"fullContent"`
	WordCount   int    `json:"wordCount"`
}

// Service generates blog posts.
type Service struct {
	ai      Completer
	cfg     Config
	history store.Recorder
	logger  *logging.Logger
}

// New builds a Service. history and logger may be nil.
func New(ai Completer, cfg Config, history store.Recorder, logger *logging.Logger) *Service {
	if cfg.DefaultWordCount <= 0 {
		cfg.DefaultWordCount = DefaultWordCount
	}
	if strings.TrimSpace(cfg.DefaultTone) == "" {
		cfg.DefaultTone = DefaultTone
	}
	if logger == nil {
		logger = observability.ServerLogger
	}
	return &Service{ai: ai, cfg: cfg, history: history, logger: logger}
}

// Generate writes a post for req.
func (s *Service) Generate(ctx context.Context, req Request) (*Post, error) {
	if strings.TrimSpace(req.Topic) == "" || strings.TrimSpace(req.Keywords) == "" {
		return nil, apperrors.NewValidationError("Topic and keywords are required")
	}
	if s.ai == nil || !s.ai.Configured() {
		return nil, apperrors.NewConfigInvalidError(ailink.ErrNotConfigured.Error())
	}

	if s.logger != nil {
		s.logger.Info("generating blog post", zap.String("topic", req.Topic))
	}

	completion, err := s.ai.Complete(ctx, PostPrompt, s.Variables(req))
	if err != nil {
		metrics.RecordGeneration(metrics.KindBlog, false)
		return nil, providerError(ctx, err)
	}
	metrics.RecordGeneration(metrics.KindBlog, true)

	raw := completion.Text
	post := &Post{
		Success:     true,
		Sections:    Parse(raw),
		FullContent: raw,
		WordCount:   WordCount(raw),
	}

	if s.history != nil {
		if _, err := s.history.RecordGeneration(ctx, store.Generation{
			Kind:      metrics.KindBlog,
			Subject:   req.Topic,
			WordCount: post.WordCount,
		}); err != nil && s.logger != nil {
			s.logger.Warn("failed to record generation", zap.String("kind", metrics.KindBlog), zap.Error(err))
		}
	}

	if s.logger != nil {
		s.logger.Info("blog post generated", zap.String("slug", post.Slug), zap.Int("word_count", post.WordCount))
	}
	return post, nil
}

// Variables builds the prompt variables for req.
func (s *Service) Variables(req Request) map[string]any {
	wordCount := req.WordCount
	if wordCount <= 0 {
		wordCount = s.cfg.DefaultWordCount
	}
	tone := strings.TrimSpace(req.Tone)
	if tone == "" {
		tone = s.cfg.DefaultTone
	}

	return map[string]any{
		"Topic":        strings.TrimSpace(req.Topic),
		"Keywords":     splitTrim(req.Keywords, ","),
		"WordCount":    wordCount,
		"Tone":         tone,
		"IncludeIntro": req.IncludeIntro,
		"Questions":    splitLines(req.PeopleAlsoAsk),
		"RelatedTerms": splitTrim(req.RelatedSearches, ","),
		"Links":        splitLines(req.InternalLinks),
	}
}

// splitTrim splits on sep and trims each part. Empty input yields nil.
func splitTrim(raw, sep string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// splitLines keeps non-blank lines as written.
func splitLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func providerError(ctx context.Context, err error) error {
	const prefix = "Failed to generate blog post: "
	if errors.Is(err, ailink.ErrNotConfigured) {
		return apperrors.NewConfigInvalidError(err.Error())
	}
	classified := ailink.Classify(err)
	var failure *ailink.ProviderFailure
	if errors.As(classified, &failure) && failure.Timeout() {
		return apperrors.WrapTimeout(ctx, err, prefix+failure.Message)
	}
	return apperrors.WrapExternalService(ctx, err, prefix+classified.Error())
}
