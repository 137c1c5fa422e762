// Package portrait turns a pet photo into a Renaissance-style portrait.
//
// A request is validated, admitted by the rate limit policy, described by a
// vision model and then painted by an image model. Mailing-list registration
// and history recording run afterwards and never fail the request.
package portrait

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/pippora/pippora/internal/ailink"
	"github.com/pippora/pippora/internal/ailink/content"
	"github.com/pippora/pippora/internal/ailink/driver"
	apperrors "github.com/pippora/pippora/internal/errors"
	"github.com/pippora/pippora/internal/mailinglist"
	"github.com/pippora/pippora/internal/metrics"
	"github.com/pippora/pippora/internal/observability"
	"github.com/pippora/pippora/internal/ratelimit"
	"github.com/pippora/pippora/internal/store"
)

// Prompt slugs used by the generator.
const (
	AnalysisPrompt = "pet-analysis"
	PortraitPrompt = "renaissance-portrait"
)

// Generator is the AI surface the service needs. *ailink.Link satisfies it.
type Generator interface {
	Configured() bool
	Complete(ctx context.Context, slug string, vars map[string]any, attachments ...content.ContentBlock) (*ailink.Completion, error)
	Image(ctx context.Context, slug string, vars map[string]any) (*driver.ImageResponse, error)
}

// Config holds portrait limits.
type Config struct {
	MaxImageBytes int `mapstructure:"max_image_bytes"`
}

// Request is one portrait order.
type Request struct {
	Email    string `json:"email"`
	PetImage string `json:"petImageBase64"`
	ClientIP string `json:"-"`
}

// Result is returned to the caller on success.
type Result struct {
	Success        bool   `json:"success"`
	ImageURL       string `json:"imageUrl"`
	PetDescription string `json:"petDescription"`
	Email          string `json:"email"`
}

// Option customizes a Service.
type Option func(*Service)

// WithPolicy enables admission checks.
func WithPolicy(p *ratelimit.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithMailingList registers successful requesters. A nil registrar is ignored.
func WithMailingList(r mailinglist.Registrar) Option {
	return func(s *Service) {
		if r != nil && !isNilClient(r) {
			s.list = r
		}
	}
}

// WithHistory records successful generations.
func WithHistory(r store.Recorder) Option {
	return func(s *Service) { s.history = r }
}

// WithLogger overrides the server logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service generates portraits.
type Service struct {
	ai      Generator
	cfg     Config
	policy  *ratelimit.Policy
	list    mailinglist.Registrar
	history store.Recorder
	logger  *logging.Logger
}

// New builds a Service around ai.
func New(ai Generator, cfg Config, opts ...Option) *Service {
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = DefaultMaxImageBytes
	}
	s := &Service{ai: ai, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate runs the full portrait pipeline. Errors are gofulmen envelopes
// carrying the code and message to show the caller.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("Valid email is required")
	}
	if strings.TrimSpace(req.PetImage) == "" {
		return nil, apperrors.NewValidationError("Pet image is required")
	}
	img, err := DecodeImage(req.PetImage, s.cfg.MaxImageBytes)
	if err != nil {
		return nil, apperrors.WrapValidationError(ctx, err, "Pet image must be a PNG, JPEG, GIF or WebP image")
	}

	if s.ai == nil || !s.ai.Configured() {
		return nil, apperrors.NewConfigInvalidError(ailink.ErrNotConfigured.Error())
	}

	if denied := s.admit(ctx, email, req.ClientIP); denied != nil {
		return nil, denied
	}

	analysis, err := s.ai.Complete(ctx, AnalysisPrompt, nil, img.Block())
	if err != nil {
		metrics.RecordGeneration(metrics.KindPortrait, false)
		return nil, providerError(ctx, err, "Failed to analyze pet image: ")
	}
	description := analysis.Text
	s.debug("pet analyzed", zap.String("model", analysis.Model), zap.Int("description_chars", len(description)))

	painted, err := s.ai.Image(ctx, PortraitPrompt, map[string]any{"Description": description})
	if err != nil {
		metrics.RecordGeneration(metrics.KindPortrait, false)
		return nil, providerError(ctx, err, "Failed to generate portrait: ")
	}
	imageURL := painted.FirstURL()
	metrics.RecordGeneration(metrics.KindPortrait, true)

	s.subscribe(ctx, email)
	s.record(ctx, store.Generation{Kind: metrics.KindPortrait, Email: email, ImageURL: imageURL})

	s.info("portrait generated", zap.String("email", email))
	return &Result{
		Success:        true,
		ImageURL:       imageURL,
		PetDescription: description,
		Email:          email,
	}, nil
}

// admit returns a rate-limited envelope when the policy denies the request.
func (s *Service) admit(ctx context.Context, email, ip string) error {
	if !s.policy.Enabled() {
		return nil
	}
	admission := s.policy.Admit(ctx, email, ip)
	if admission.Whitelisted {
		s.info("whitelisted email", zap.String("email", email))
		return nil
	}
	if admission.Allowed {
		emailRule, ipRule := s.policy.Rules()
		s.info("rate limit status",
			zap.String("email_remaining", fmt.Sprintf("%d/%d", admission.Email.Remaining, emailRule.Limit)),
			zap.String("ip_remaining", fmt.Sprintf("%d/%d", admission.IP.Remaining, ipRule.Limit)))
		return nil
	}

	denial := admission.Denial()
	info := apperrors.RateLimitInfo{Scope: string(admission.Scope), Remaining: denial.Remaining, ResetIn: denial.ResetIn}
	s.warn("rate limit exceeded", zap.String("scope", info.Scope), zap.Int("reset_in_minutes", info.ResetIn))
	return apperrors.NewRateLimitedError(DenialMessage(admission.Scope, denial), info)
}

// DenialMessage is the human-readable text for a rejected request.
func DenialMessage(scope ratelimit.Scope, d ratelimit.Decision) string {
	if scope == ratelimit.ScopeIP {
		return fmt.Sprintf("Too many requests from your location. Try again in %d minutes.", d.ResetIn)
	}
	return fmt.Sprintf("Rate limit exceeded. You can generate %d more portraits. Try again in %d minutes.", d.Remaining, d.ResetIn)
}

func (s *Service) subscribe(ctx context.Context, email string) {
	if s.list == nil {
		return
	}
	if err := s.list.Subscribe(ctx, email); err != nil {
		metrics.RecordSubscription(false)
		s.warn("mailing list registration failed", zap.String("email", email), zap.Error(err))
		return
	}
	metrics.RecordSubscription(true)
	s.info("email added to mailing list", zap.String("email", email))
}

func (s *Service) record(ctx context.Context, g store.Generation) {
	if s.history == nil {
		return
	}
	if _, err := s.history.RecordGeneration(ctx, g); err != nil {
		s.warn("failed to record generation", zap.String("kind", g.Kind), zap.Error(err))
	}
}

func providerError(ctx context.Context, err error, prefix string) error {
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

func isNilClient(r mailinglist.Registrar) bool {
	c, ok := r.(*mailinglist.Client)
	return ok && c == nil
}

func (s *Service) log() *logging.Logger {
	if s.logger != nil {
		return s.logger
	}
	return observability.ServerLogger
}

func (s *Service) info(msg string, fields ...zap.Field) {
	if l := s.log(); l != nil {
		l.Info(msg, fields...)
	}
}

func (s *Service) warn(msg string, fields ...zap.Field) {
	if l := s.log(); l != nil {
		l.Warn(msg, fields...)
	}
}

func (s *Service) debug(msg string, fields ...zap.Field) {
	if l := s.log(); l != nil {
		l.Debug(msg, fields...)
	}
}
