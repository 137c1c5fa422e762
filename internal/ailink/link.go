// Package ailink connects prompt definitions to the OpenAI driver.
package ailink

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pippora/pippora/internal/ailink/content"
	"github.com/pippora/pippora/internal/ailink/driver"
	"github.com/pippora/pippora/internal/ailink/driver/openai"
	"github.com/pippora/pippora/internal/ailink/prompt"
)

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("OpenAI API key not configured")

// Completer is the chat side of a provider.
type Completer interface {
	Complete(ctx context.Context, req *driver.Request) (*driver.Response, error)
}

// Link renders prompts and sends them to a provider.
type Link struct {
	chat    Completer
	images  driver.ImageGenerator
	prompts prompt.Registry
	models  map[string]string
}

// New builds a Link backed by the OpenAI HTTP client. A missing API key is
// not an error here; calls fail with ErrNotConfigured instead.
func New(cfg Config) (*Link, error) {
	prompts, err := loadPrompts(cfg.PromptsDir)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.APIKey) == "" {
		return &Link{prompts: prompts, models: cfg.Models}, nil
	}

	client := openai.NewClient(cfg.BaseURL, cfg.APIKey)
	client.Timeout = cfg.Timeout
	client.Pacer = driver.NewPacer(cfg.RequestsPerMinute, cfg.Burst)

	return &Link{chat: client, images: client, prompts: prompts, models: cfg.Models}, nil
}

// NewWithProviders wires explicit providers, mainly for tests.
func NewWithProviders(chat Completer, images driver.ImageGenerator, prompts prompt.Registry) *Link {
	return &Link{chat: chat, images: images, prompts: prompts}
}

func loadPrompts(dir string) (prompt.Registry, error) {
	if strings.TrimSpace(dir) == "" {
		return prompt.DefaultRegistry()
	}
	defs, err := prompt.LoadFromDir(dir)
	if err != nil {
		return nil, err
	}
	return prompt.NewRegistry(defs)
}

// Configured reports whether provider calls can be made.
func (l *Link) Configured() bool {
	return l != nil && l.chat != nil && l.images != nil
}

// Completion is the text answer to a prompt.
type Completion struct {
	Text  string
	Model string
	Usage *driver.Usage
}

// Complete renders slug with vars and asks the provider for a completion.
// Attachments (images) are appended to the user message.
func (l *Link) Complete(ctx context.Context, slug string, vars map[string]any, attachments ...content.ContentBlock) (*Completion, error) {
	if !l.Configured() {
		return nil, ErrNotConfigured
	}
	def, rendered, err := l.render(slug, vars)
	if err != nil {
		return nil, err
	}
	if len(attachments) > 0 && !def.Config.Input.AcceptsImages {
		return nil, fmt.Errorf("prompt %s does not accept images", slug)
	}
	if limit := def.Config.Input.MaxImages; limit > 0 && len(attachments) > limit {
		return nil, fmt.Errorf("prompt %s accepts at most %d images", slug, limit)
	}

	var messages []content.Message
	if rendered.System != "" {
		messages = append(messages, content.Text("system", rendered.System))
	}
	user := content.Message{Role: "user"}
	if rendered.User != "" {
		user.Content = append(user.Content, content.ContentBlock{Type: content.ContentTypeText, Text: rendered.User})
	}
	user.Content = append(user.Content, attachments...)
	if len(user.Content) > 0 {
		messages = append(messages, user)
	}

	req := &driver.Request{
		Model:       l.model(def),
		Messages:    messages,
		Temperature: def.Config.Model.Temperature,
		PromptSlug:  slug,
	}
	if def.Config.Model.MaxTokens > 0 {
		maxTokens := def.Config.Model.MaxTokens
		req.MaxTokens = &maxTokens
	}

	resp, err := l.chat.Complete(ctx, req)
	if err != nil {
		return nil, Classify(err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, &ProviderFailure{Code: CodeEmptyResponse, Message: "provider returned no content"}
	}
	return &Completion{Text: text, Model: req.Model, Usage: resp.Usage}, nil
}

// Image renders slug with vars and asks the provider for a single hosted image.
func (l *Link) Image(ctx context.Context, slug string, vars map[string]any) (*driver.ImageResponse, error) {
	if !l.Configured() {
		return nil, ErrNotConfigured
	}
	def, rendered, err := l.render(slug, vars)
	if err != nil {
		return nil, err
	}

	promptText := rendered.User
	if promptText == "" {
		promptText = rendered.System
	}

	resp, err := l.images.GenerateImage(ctx, &driver.ImageRequest{
		Model:          l.model(def),
		Prompt:         promptText,
		Count:          1,
		Size:           def.Config.Model.Size,
		Quality:        def.Config.Model.Quality,
		ResponseFormat: "url",
	})
	if err != nil {
		return nil, Classify(err)
	}
	if resp.FirstURL() == "" {
		return nil, &ProviderFailure{Code: CodeEmptyResponse, Message: "provider returned no image url"}
	}
	return resp, nil
}

func (l *Link) render(slug string, vars map[string]any) (*prompt.Prompt, prompt.Rendered, error) {
	def, err := l.prompts.Get(slug)
	if err != nil {
		return nil, prompt.Rendered{}, err
	}
	rendered, err := def.Render(vars)
	if err != nil {
		return nil, prompt.Rendered{}, err
	}
	return def, rendered, nil
}

func (l *Link) model(def *prompt.Prompt) string {
	if override := strings.TrimSpace(l.models[def.Config.Slug]); override != "" {
		return override
	}
	return def.Config.Model.Name
}

// PromptInfo summarizes a loaded prompt and the model it will run on.
type PromptInfo struct {
	Slug        string `json:"slug"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
	Model       string `json:"model"`
}

// Prompts lists the loaded prompts sorted by slug, with model overrides applied.
func (l *Link) Prompts() []PromptInfo {
	if l == nil || l.prompts == nil {
		return nil
	}
	defs := l.prompts.List()
	infos := make([]PromptInfo, 0, len(defs))
	for _, def := range defs {
		if def == nil {
			continue
		}
		infos = append(infos, PromptInfo{
			Slug:        def.Config.Slug,
			Version:     def.Config.Version,
			Description: def.Config.Description,
			Model:       l.model(def),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Slug < infos[j].Slug })
	return infos
}
