package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/pippora/pippora/internal/blog"
	"github.com/pippora/pippora/internal/portrait"
	"github.com/pippora/pippora/internal/store"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatGenerations renders history entries, newest first as given.
func (f *TableFormatter) FormatGenerations(generations []store.Generation) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"Created", "Kind", "Email", "Subject", "Result"})

	for _, g := range generations {
		t.AppendRow(table.Row{
			g.CreatedAt.UTC().Format(time.RFC3339),
			g.Kind,
			dash(g.Email),
			truncate(g.Subject, 48),
			resultCell(g),
		})
	}

	t.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("%d entries", len(generations))})
	return t.Render(), nil
}

// FormatPost renders the post metadata as a table followed by the content.
func (f *TableFormatter) FormatPost(post *blog.Post) (string, error) {
	if post == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendRow(table.Row{"Title", post.Title})
	t.AppendRow(table.Row{"Slug", post.Slug})
	t.AppendRow(table.Row{"Meta", post.Meta})
	t.AppendRow(table.Row{"Words", post.WordCount})

	var sb strings.Builder
	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(strings.TrimSpace(post.FullContent))
	return sb.String(), nil
}

// FormatPortrait renders the portrait URL and the pet description.
func (f *TableFormatter) FormatPortrait(result *portrait.Result) (string, error) {
	if result == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendRow(table.Row{"Email", result.Email})
	t.AppendRow(table.Row{"Portrait", result.ImageURL})
	return t.Render() + "\n\n" + strings.TrimSpace(result.PetDescription), nil
}

func renderCounterTable(title string, names []string, counters map[string]string) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Counter", "Value"})
	for _, name := range names {
		t.AppendRow(table.Row{name, counters[name]})
	}
	if len(names) == 0 {
		t.AppendRow(table.Row{"(none)", ""})
	}
	return t.Render()
}

func resultCell(g store.Generation) string {
	if g.ImageURL != "" {
		return truncate(g.ImageURL, 40)
	}
	if g.WordCount > 0 {
		return fmt.Sprintf("%d words", g.WordCount)
	}
	return "-"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func truncate(value string, max int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= max {
		return dash(value)
	}
	return string(runes[:max-1]) + "…"
}
