package output

import (
	"github.com/pippora/pippora/internal/blog"
	"github.com/pippora/pippora/internal/portrait"
	"github.com/pippora/pippora/internal/store"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatGenerations renders history entries as a JSON array.
func (f *JSONFormatter) FormatGenerations(generations []store.Generation) (string, error) {
	if generations == nil {
		generations = []store.Generation{}
	}
	return marshal(generations, f.Indent)
}

// FormatPost renders a post using the same shape as the HTTP response.
func (f *JSONFormatter) FormatPost(post *blog.Post) (string, error) {
	if post == nil {
		return "", nil
	}
	return marshal(post, f.Indent)
}

// FormatPortrait renders the portrait result as returned by the API.
func (f *JSONFormatter) FormatPortrait(result *portrait.Result) (string, error) {
	if result == nil {
		return "", nil
	}
	return marshal(result, f.Indent)
}
