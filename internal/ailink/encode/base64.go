package encode

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrNotDataURL is returned by ParseDataURL for input without a data: prefix.
var ErrNotDataURL = errors.New("not a data url")

func DecodeBase64String(value string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(value)
}

func EncodeBase64String(value []byte) string {
	return base64.StdEncoding.EncodeToString(value)
}

// DataURL renders data as a base64 data: URL.
func DataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + EncodeBase64String(data)
}

// ParseDataURL splits a base64 data: URL into its media type and payload.
// Only base64 payloads are accepted.
func ParseDataURL(value string) (string, []byte, error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "data:") {
		return "", nil, ErrNotDataURL
	}
	header, payload, ok := strings.Cut(value[len("data:"):], ",")
	if !ok {
		return "", nil, errors.New("data url has no payload")
	}
	mime, params, _ := strings.Cut(header, ";")
	if !strings.Contains(";"+params+";", ";base64;") {
		return "", nil, errors.New("data url must be base64 encoded")
	}
	decoded, err := DecodeBase64String(payload)
	if err != nil {
		return "", nil, err
	}
	return strings.ToLower(strings.TrimSpace(mime)), decoded, nil
}
