package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pippora/pippora/internal/ailink/content"
	"github.com/pippora/pippora/internal/ailink/driver"
	"github.com/pippora/pippora/internal/ailink/encode"
)

type imageGenerationRequest struct {
	Model          string `json:"model,omitempty"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	OutputFormat   string `json:"output_format,omitempty"`
	Background     string `json:"background,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type imageGenerationResponse struct {
	Created      int64  `json:"created"`
	OutputFormat string `json:"output_format,omitempty"`
	Size         string `json:"size,omitempty"`
	Quality      string `json:"quality,omitempty"`
	Data         []struct {
		B64JSON       string `json:"b64_json,omitempty"`
		URL           string `json:"url,omitempty"`
		RevisedPrompt string `json:"revised_prompt,omitempty"`
	} `json:"data"`
}

// GenerateImage calls the images endpoint. DALL·E models return a hosted URL
// unless ResponseFormat asks for b64_json.
func (c *Client) GenerateImage(ctx context.Context, req *driver.ImageRequest) (*driver.ImageResponse, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	count := req.Count
	if count <= 0 {
		count = 1
	}
	if count > 10 {
		return nil, fmt.Errorf("count must be between 1 and 10")
	}

	payload := imageGenerationRequest{
		Model:   strings.TrimSpace(req.Model),
		Prompt:  req.Prompt,
		N:       count,
		Size:    strings.TrimSpace(req.Size),
		Quality: strings.TrimSpace(req.Quality),
	}
	if payload.Model == "" {
		payload.Model = "dall-e-3"
	}

	// DALL·E takes response_format and quality standard|hd, never output_format.
	if strings.HasPrefix(payload.Model, "dall-e") {
		payload.ResponseFormat = strings.TrimSpace(req.ResponseFormat)
		if payload.ResponseFormat == "" {
			payload.ResponseFormat = "url"
		}
		q := strings.ToLower(payload.Quality)
		if q == "" || q == "auto" {
			payload.Quality = "standard"
		}
	} else {
		payload.OutputFormat = strings.TrimSpace(req.OutputFormat)
		payload.Background = strings.TrimSpace(req.Background)
	}

	respBody, err := c.post(ctx, "/images/generations", payload.Model, payload)
	if err != nil {
		return nil, err
	}

	var parsed imageGenerationResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	mime := content.ContentTypePNG
	if parsed.OutputFormat != "" {
		mime = content.ContentType("image/" + parsed.OutputFormat)
	} else if req.OutputFormat != "" {
		mime = content.ContentType("image/" + strings.ToLower(strings.TrimSpace(req.OutputFormat)))
	}

	blocks := make([]content.ContentBlock, 0, len(parsed.Data))
	for _, item := range parsed.Data {
		switch {
		case strings.TrimSpace(item.B64JSON) != "":
			decoded, err := encode.DecodeBase64String(item.B64JSON)
			if err != nil {
				return nil, fmt.Errorf("decode image base64: %w", err)
			}
			blocks = append(blocks, content.ContentBlock{Type: mime, Data: decoded})
		case strings.TrimSpace(item.URL) != "":
			blocks = append(blocks, content.ContentBlock{Type: mime, URL: item.URL, Text: item.RevisedPrompt})
		}
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("no images in response")
	}

	return &driver.ImageResponse{
		Created:      parsed.Created,
		OutputFormat: parsed.OutputFormat,
		Size:         parsed.Size,
		Quality:      parsed.Quality,
		Images:       blocks,
	}, nil
}
