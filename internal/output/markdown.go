package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/pippora/pippora/internal/blog"
	"github.com/pippora/pippora/internal/portrait"
	"github.com/pippora/pippora/internal/store"
)

// MarkdownFormatter renders results as Markdown.
type MarkdownFormatter struct{}

// FormatGenerations renders history entries as a Markdown table.
func (f *MarkdownFormatter) FormatGenerations(generations []store.Generation) (string, error) {
	var sb strings.Builder
	sb.WriteString("| Created | Kind | Email | Subject | Result |\n")
	sb.WriteString("|---------|------|-------|---------|--------|\n")
	for _, g := range generations {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			g.CreatedAt.UTC().Format(time.RFC3339),
			escapeMarkdownCell(g.Kind),
			escapeMarkdownCell(dash(g.Email)),
			escapeMarkdownCell(dash(g.Subject)),
			escapeMarkdownCell(resultCell(g)),
		))
	}
	return sb.String(), nil
}

// FormatPost renders the post as a publishable Markdown document with the
// meta description and slug as front matter.
func (f *MarkdownFormatter) FormatPost(post *blog.Post) (string, error) {
	if post == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.WriteString(fmt.Sprintf("title: %q\n", post.Title))
	sb.WriteString(fmt.Sprintf("slug: %q\n", post.Slug))
	sb.WriteString(fmt.Sprintf("description: %q\n", post.Meta))
	sb.WriteString("---\n\n")
	if post.Title != "" {
		sb.WriteString("# " + post.Title + "\n\n")
	}
	for _, part := range []string{post.Intro, post.Body, post.Conclusion} {
		if part = strings.TrimSpace(part); part != "" {
			sb.WriteString(part + "\n\n")
		}
	}
	if images := strings.TrimSpace(post.Images); images != "" {
		sb.WriteString("<!-- image suggestions\n" + images + "\n-->\n")
	}
	return strings.TrimRight(sb.String(), "\n") + "\n", nil
}

// FormatPortrait renders the portrait as an embedded image with the
// description as its caption.
func (f *MarkdownFormatter) FormatPortrait(result *portrait.Result) (string, error) {
	if result == nil {
		return "", nil
	}
	return fmt.Sprintf("![Renaissance portrait](%s)\n\n%s\n", result.ImageURL, strings.TrimSpace(result.PetDescription)), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
