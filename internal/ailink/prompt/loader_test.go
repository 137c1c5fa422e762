package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	prompts, err := LoadDefaults()
	require.NoError(t, err)
	require.Len(t, prompts, 3)

	reg, err := NewRegistry(prompts)
	require.NoError(t, err)

	for _, slug := range []string{"pet-analysis", "renaissance-portrait", "seo-blog-post"} {
		p, err := reg.Get(slug)
		require.NoError(t, err, slug)
		require.NotEmpty(t, p.Config.UserTemplate, slug)
	}

	analysis, err := reg.Get("pet-analysis")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", analysis.Config.Model.Name)
	assert.Equal(t, 300, analysis.Config.Model.MaxTokens)
	assert.True(t, analysis.Config.Input.AcceptsImages)
}

func TestRenderPortraitRequiresDescription(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	p, err := reg.Get("renaissance-portrait")
	require.NoError(t, err)

	_, err = p.Render(map[string]any{})
	require.ErrorContains(t, err, "Description")

	_, err = p.Render(map[string]any{"Description": "  "})
	require.Error(t, err)

	out, err := p.Render(map[string]any{"Description": "a grey tabby with green eyes"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.User, "Create a Renaissance-era pet portrait based on this description: a grey tabby with green eyes"))
	assert.Empty(t, out.System)
}

func TestRenderBlogPostOptionalSections(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	p, err := reg.Get("seo-blog-post")
	require.NoError(t, err)

	base := map[string]any{
		"Topic":     "Dog grooming",
		"Keywords":  []string{"dog grooming", "pet care"},
		"WordCount": 2000,
		"Tone":      "Professional and informative",
	}

	out, err := p.Render(base)
	require.NoError(t, err)
	assert.Contains(t, out.System, "expert SEO content writer")
	assert.Contains(t, out.User, "PRIMARY KEYWORDS: dog grooming, pet care")
	assert.Contains(t, out.User, "Introduction (300-400 words)")
	assert.NotContains(t, out.User, "PEOPLE ALSO ASK")
	assert.NotContains(t, out.User, "RELATED SEARCH TERMS")
	assert.NotContains(t, out.User, "INTERNAL LINKS")

	base["IncludeIntro"] = true
	base["Questions"] = []string{"How often?", "Which brush?"}
	base["RelatedTerms"] = []string{"puppy bath"}
	base["Links"] = []string{"https://a.example/x", "https://a.example/y"}

	out, err = p.Render(base)
	require.NoError(t, err)
	assert.Contains(t, out.User, "MAXIMUM 500 words - this will be used separately")
	assert.Contains(t, out.User, "1. How often?\n2. Which brush?")
	assert.Contains(t, out.User, "RELATED SEARCH TERMS (incorporate naturally):\npuppy bath")
	assert.Contains(t, out.User, "https://a.example/x\nhttps://a.example/y")
	assert.Contains(t, out.User, "---IMAGES---")
}

func TestLoadRejectsInvalidPrompts(t *testing.T) {
	_, err := Load("empty.md", []byte("  "))
	require.Error(t, err)

	_, err = Load("noslug.md", []byte("---\nname: x\n---\nbody"))
	require.ErrorContains(t, err, "slug")

	_, err = Load("badrole.md", []byte("---\nslug: x\nbody_role: tool\n---\nbody"))
	require.ErrorContains(t, err, "body_role")

	_, err = Load("badtmpl.md", []byte("---\nslug: x\n---\n{{.Unclosed"))
	require.Error(t, err)
}

func TestLoadFromDirAndDuplicateSlugs(t *testing.T) {
	dir := t.TempDir()
	doc := []byte("---\nslug: custom\n---\nYou are helpful.")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), doc, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), doc, 0o600))

	prompts, err := LoadFromDir(dir)
	require.NoError(t, err)
	require.Len(t, prompts, 2)
	assert.Equal(t, "You are helpful.", prompts[0].Config.SystemTemplate)

	_, err = NewRegistry(prompts)
	require.ErrorContains(t, err, "duplicate")
}
