package portrait

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"strings"

	_ "golang.org/x/image/webp" // register decoder

	"github.com/pippora/pippora/internal/ailink/content"
	"github.com/pippora/pippora/internal/ailink/encode"
)

// DefaultMaxImageBytes bounds decoded uploads.
const DefaultMaxImageBytes = 10 << 20

// Image is a validated pet photo ready to attach to a vision request.
type Image struct {
	Format  string
	Width   int
	Height  int
	Size    int
	DataURL string
}

// Block returns the image as a content block for the vision prompt.
func (i *Image) Block() content.ContentBlock {
	return content.ContentBlock{Type: content.ContentType("image/" + i.Format), DataURL: i.DataURL}
}

// DecodeImage accepts a data: URL or bare base64, checks the payload is a
// png, jpeg, gif or webp image no larger than maxBytes, and normalizes it to
// a data URL.
func DecodeImage(raw string, maxBytes int) (*Image, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("image is empty")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}

	_, data, err := encode.ParseDataURL(raw)
	if errors.Is(err, encode.ErrNotDataURL) {
		data, err = encode.DecodeBase64String(raw)
	}
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("image is empty")
	}
	if len(data) > maxBytes {
		return nil, fmt.Errorf("image is %d bytes, limit is %d", len(data), maxBytes)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unsupported image: %w", err)
	}

	return &Image{
		Format:  format,
		Width:   cfg.Width,
		Height:  cfg.Height,
		Size:    len(data),
		DataURL: encode.DataURL("image/"+format, data),
	}, nil
}
