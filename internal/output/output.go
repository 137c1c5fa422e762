package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pippora/pippora/internal/blog"
	"github.com/pippora/pippora/internal/portrait"
	"github.com/pippora/pippora/internal/store"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders history listings and generated posts.
type Formatter interface {
	FormatGenerations(generations []store.Generation) (string, error)
	FormatPost(post *blog.Post) (string, error)
	FormatPortrait(result *portrait.Result) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// Extension is the file extension used when writing format to disk.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatMarkdown:
		return "md"
	default:
		return "txt"
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// FormatCounters renders flat name/value counters, such as rate limit
// decision totals, sorted by name.
func FormatCounters(format Format, title string, counters map[string]string) (string, error) {
	names := sortedKeys(counters)
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(counters, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	case FormatMarkdown:
		var sb strings.Builder
		fmt.Fprintf(&sb, "## %s\n\n| Counter | Value |\n|---------|-------|\n", escapeMarkdownCell(title))
		for _, name := range names {
			fmt.Fprintf(&sb, "| %s | %s |\n", escapeMarkdownCell(name), escapeMarkdownCell(counters[name]))
		}
		return sb.String(), nil
	default:
		return renderCounterTable(title, names, counters), nil
	}
}

func marshal(value any, indent bool) (string, error) {
	var (
		data []byte
		err  error
	)
	if indent {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
