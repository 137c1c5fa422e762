package blog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleReply = `---TITLE---
Grooming Your Golden Retriever: A Complete Guide

---META---
Everything you need to know about grooming a golden retriever at home.

---SLUG---
golden-retriever-grooming-guide

---INTRO---
Golden retrievers shed. A lot.

---BODY---
## Brushing

Brush twice a week.

### Tools

A slicker brush works well.

---CONCLUSION---
Book a groomer today!

---IMAGES---
1. Golden retriever being brushed (alt: golden retriever grooming)
2. Slicker brush close-up
`

func TestParseSections(t *testing.T) {
	s := Parse(sampleReply)
	assert.Equal(t, "Grooming Your Golden Retriever: A Complete Guide", s.Title)
	assert.Equal(t, "Everything you need to know about grooming a golden retriever at home.", s.Meta)
	assert.Equal(t, "golden-retriever-grooming-guide", s.Slug)
	assert.Equal(t, "Golden retrievers shed. A lot.", s.Intro)
	assert.Equal(t, "## Brushing\n\nBrush twice a week.\n\n### Tools\n\nA slicker brush works well.", s.Body)
	assert.Equal(t, "Book a groomer today!", s.Conclusion)
	assert.Equal(t, "1. Golden retriever being brushed (alt: golden retriever grooming)\n2. Slicker brush close-up", s.Images)
}

func TestParseMissingSections(t *testing.T) {
	s := Parse("---TITLE---\nOnly a title\n")
	assert.Empty(t, s.Title, "title without a following marker is not terminated")
	assert.Empty(t, s.Body)
	assert.Empty(t, s.Images)

	assert.Equal(t, Sections{}, Parse(""))
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount("   \n\t"))
	assert.Equal(t, 4, WordCount("  one two\nthree\tfour "))
}
