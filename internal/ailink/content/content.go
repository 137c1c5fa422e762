package content

import "strings"

// ContentType represents supported content types using IANA media types.
type ContentType string

const (
	ContentTypeText ContentType = "text/plain"
	ContentTypeJSON ContentType = "application/json"
	ContentTypePNG  ContentType = "image/png"
	ContentTypeJPEG ContentType = "image/jpeg"
	ContentTypeGIF  ContentType = "image/gif"
	ContentTypeWebP ContentType = "image/webp"
)

// IsImage reports whether t is an image media type.
func (t ContentType) IsImage() bool {
	return strings.HasPrefix(string(t), "image/")
}

// ContentBlock represents a single piece of content.
type ContentBlock struct {
	Type    ContentType `json:"type"`
	Text    string      `json:"text,omitempty"`
	Data    []byte      `json:"data,omitempty"`
	DataURL string      `json:"data_url,omitempty"`
	URL     string      `json:"url,omitempty"`
}

// Message represents a chat message.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// Text builds a single-block text message.
func Text(role, text string) Message {
	return Message{Role: role, Content: []ContentBlock{{Type: ContentTypeText, Text: text}}}
}
