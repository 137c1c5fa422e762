package ailink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pippora/pippora/internal/ailink/content"
	"github.com/pippora/pippora/internal/ailink/driver"
	"github.com/pippora/pippora/internal/ailink/prompt"
)

type fakeChat struct {
	last  *driver.Request
	reply string
	err   error
}

func (f *fakeChat) Complete(_ context.Context, req *driver.Request) (*driver.Response, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &driver.Response{Content: []content.ContentBlock{{Type: content.ContentTypeText, Text: f.reply}}}, nil
}

type fakeImages struct {
	last *driver.ImageRequest
	url  string
	err  error
}

func (f *fakeImages) GenerateImage(_ context.Context, req *driver.ImageRequest) (*driver.ImageResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	resp := &driver.ImageResponse{}
	if f.url != "" {
		resp.Images = []content.ContentBlock{{Type: content.ContentTypePNG, URL: f.url}}
	}
	return resp, nil
}

func newTestLink(t *testing.T, chat *fakeChat, images *fakeImages) *Link {
	t.Helper()
	reg, err := prompt.DefaultRegistry()
	require.NoError(t, err)
	return NewWithProviders(chat, images, reg)
}

func TestLinkCompleteWithImageAttachment(t *testing.T) {
	chat := &fakeChat{reply: "  a corgi  "}
	link := newTestLink(t, chat, &fakeImages{})

	out, err := link.Complete(context.Background(), "pet-analysis", nil,
		content.ContentBlock{Type: content.ContentTypePNG, DataURL: "data:image/png;base64,AAAA"})
	require.NoError(t, err)
	assert.Equal(t, "a corgi", out.Text)

	req := chat.last
	require.NotNil(t, req)
	assert.Equal(t, "gpt-4o", req.Model)
	require.NotNil(t, req.MaxTokens)
	assert.Equal(t, 300, *req.MaxTokens)
	require.Len(t, req.Messages, 1)
	require.Len(t, req.Messages[0].Content, 2)
	assert.Equal(t, content.ContentTypeText, req.Messages[0].Content[0].Type)
	assert.Equal(t, "data:image/png;base64,AAAA", req.Messages[0].Content[1].DataURL)
}

func TestLinkCompleteRejectsImagesForTextPrompts(t *testing.T) {
	link := newTestLink(t, &fakeChat{reply: "x"}, &fakeImages{})
	_, err := link.Complete(context.Background(), "seo-blog-post", map[string]any{
		"Topic": "t", "Keywords": []string{"k"}, "WordCount": 10, "Tone": "x",
	}, content.ContentBlock{Type: content.ContentTypePNG, DataURL: "data:,"})
	require.ErrorContains(t, err, "does not accept images")
}

func TestLinkCompleteAppliesModelOverride(t *testing.T) {
	chat := &fakeChat{reply: "ok"}
	link := newTestLink(t, chat, &fakeImages{})
	link.models = map[string]string{"seo-blog-post": "gpt-4.1-mini"}

	_, err := link.Complete(context.Background(), "seo-blog-post", map[string]any{
		"Topic": "t", "Keywords": []string{"k"}, "WordCount": 10, "Tone": "x",
	})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1-mini", chat.last.Model)
	require.NotNil(t, chat.last.Temperature)
	assert.Equal(t, 0.7, *chat.last.Temperature)
	require.Len(t, chat.last.Messages, 2)
	assert.Equal(t, "system", chat.last.Messages[0].Role)
}

func TestLinkCompleteEmptyReply(t *testing.T) {
	link := newTestLink(t, &fakeChat{reply: "   "}, &fakeImages{})
	_, err := link.Complete(context.Background(), "pet-analysis", nil)
	var failure *ProviderFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, CodeEmptyResponse, failure.Code)
}

func TestLinkImageUsesPromptHints(t *testing.T) {
	images := &fakeImages{url: "https://img.example/1.png"}
	link := newTestLink(t, &fakeChat{}, images)

	resp, err := link.Image(context.Background(), "renaissance-portrait", map[string]any{"Description": "a cat"})
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/1.png", resp.FirstURL())
	assert.Equal(t, "dall-e-3", images.last.Model)
	assert.Equal(t, "1024x1792", images.last.Size)
	assert.Equal(t, "hd", images.last.Quality)
	assert.Equal(t, 1, images.last.Count)
	assert.Contains(t, images.last.Prompt, "a cat")
}

func TestLinkImageClassifiesProviderErrors(t *testing.T) {
	images := &fakeImages{err: &driver.ProviderError{Provider: "openai", StatusCode: 400, Message: "content policy"}}
	link := newTestLink(t, &fakeChat{}, images)

	_, err := link.Image(context.Background(), "renaissance-portrait", map[string]any{"Description": "a cat"})
	var failure *ProviderFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, CodeProviderBadRequest, failure.Code)
	assert.Equal(t, "content policy", failure.Message)
}

func TestLinkWithoutKeyIsNotConfigured(t *testing.T) {
	link, err := New(Config{})
	require.NoError(t, err)
	assert.False(t, link.Configured())

	_, err = link.Complete(context.Background(), "pet-analysis", nil)
	require.ErrorIs(t, err, ErrNotConfigured)

	configured, err := New(Config{APIKey: "sk-test", RequestsPerMinute: 60})
	require.NoError(t, err)
	assert.True(t, configured.Configured())
}

func TestLinkPromptsAppliesOverrides(t *testing.T) {
	link, err := New(Config{Models: map[string]string{"seo-blog-post": "gpt-4o"}})
	require.NoError(t, err)

	infos := link.Prompts()
	require.Len(t, infos, 3)
	assert.Equal(t, "pet-analysis", infos[0].Slug)
	assert.Equal(t, "renaissance-portrait", infos[1].Slug)
	assert.Equal(t, "seo-blog-post", infos[2].Slug)
	assert.Equal(t, "gpt-4o", infos[2].Model)
	assert.Equal(t, "dall-e-3", infos[1].Model)
}
