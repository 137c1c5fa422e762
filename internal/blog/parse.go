package blog

import (
	"regexp"
	"strings"
)

// Sections are the delimited parts of a generated post.
type Sections struct {
	Title      string `json:"title"`
	Meta       string `json:"meta"`
	Slug       string `json:"slug"`
	Intro      string `json:"intro"`
	Body       string `json:"body"`
	Conclusion string `json:"conclusion"`
	Images     string `json:"images"`
}

// Each marker's section runs to the next blank-line-delimited marker; the
// images section runs to the end of the reply.
var (
	titleRe      = sectionRe("TITLE")
	metaRe       = sectionRe("META")
	slugRe       = sectionRe("SLUG")
	introRe      = sectionRe("INTRO")
	bodyRe       = sectionRe("BODY")
	conclusionRe = sectionRe("CONCLUSION")
	imagesRe     = regexp.MustCompile(`(?s)---IMAGES---\n(.*?)$`)
)

func sectionRe(marker string) *regexp.Regexp {
	return regexp.MustCompile(`(?s)---` + marker + `---\n(.*?)\n\n---`)
}

// Parse extracts sections from a model reply. Missing sections are empty.
func Parse(raw string) Sections {
	return Sections{
		Title:      extract(titleRe, raw),
		Meta:       extract(metaRe, raw),
		Slug:       extract(slugRe, raw),
		Intro:      extract(introRe, raw),
		Body:       extract(bodyRe, raw),
		Conclusion: extract(conclusionRe, raw),
		Images:     extract(imagesRe, raw),
	}
}

func extract(re *regexp.Regexp, raw string) string {
	m := re.FindStringSubmatch(raw)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// WordCount counts whitespace-separated words.
func WordCount(raw string) int {
	return len(strings.Fields(raw))
}
