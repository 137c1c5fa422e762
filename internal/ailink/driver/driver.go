package driver

import (
	"context"

	"github.com/pippora/pippora/internal/ailink/content"
)

// Driver defines the interface for AI completion providers.
type Driver interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Name returns the driver identifier (e.g., "openai").
	Name() string
	// Capabilities returns what this driver supports.
	Capabilities() Capabilities
}

// ImageGenerator is implemented by drivers that can render images from a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResponse, error)
}

// Capabilities describes driver features.
type Capabilities struct {
	SupportsVision          bool
	SupportsImageGeneration bool
	SupportedModels         []string
}

// ResponseFormat specifies the expected response format.
type ResponseFormat struct {
	Type string `json:"type"` // "text", "json_object"
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model          string
	Messages       []content.Message
	ResponseFormat *ResponseFormat
	Temperature    *float64
	MaxTokens      *int
	PromptSlug     string
	Metadata       map[string]string
}

// Response is a provider-agnostic completion response.
type Response struct {
	Content      []content.ContentBlock
	FinishReason string
	Usage        *Usage
}

// Text concatenates the text blocks of the response.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	var out string
	for _, block := range r.Content {
		if block.Type == content.ContentTypeText {
			out += block.Text
		}
	}
	return out
}

// ImageRequest asks a provider to render Count images for Prompt.
type ImageRequest struct {
	Model   string
	Prompt  string
	Count   int
	Size    string
	Quality string
	// ResponseFormat is "url" or "b64_json"; empty lets the driver choose.
	ResponseFormat string
	OutputFormat   string
	Background     string
}

// ImageResponse carries generated images. Inline images have Data set;
// hosted images have URL set.
type ImageResponse struct {
	Created      int64
	OutputFormat string
	Size         string
	Quality      string
	Images       []content.ContentBlock
}

// FirstURL returns the first hosted image URL, if any.
func (r *ImageResponse) FirstURL() string {
	if r == nil {
		return ""
	}
	for _, img := range r.Images {
		if img.URL != "" {
			return img.URL
		}
	}
	return ""
}
