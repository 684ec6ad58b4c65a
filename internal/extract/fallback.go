package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// contentSelectors are tried in order; the first one that yields at least
// minFallbackParagraphs paragraphs wins, otherwise the richest one.
var contentSelectors = []string{
	"article p",
	".article p",
	".story p",
	".content p",
	".post-content p",
	".entry-content p",
	".news-content p",
	"main p",
	"#content p",
	"p",
}

var titleSelectors = []string{
	"h1",
	"title",
	".article-title",
	".headline",
	".entry-title",
}

const (
	minFallbackParagraphs = 3
	minParagraphRunes     = 20
)

// fallbackExtract pulls paragraph text and a title straight from the tags.
func fallbackExtract(doc *goquery.Document) (title, text string) {
	doc.Find("script, style, noscript, nav, header, footer, aside, form, iframe").Remove()

	var best []string
	bestWords := 0
	for _, selector := range contentSelectors {
		var paragraphs []string
		words := 0
		seen := make(map[string]bool)
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			p := strings.Join(strings.Fields(s.Text()), " ")
			if utf8.RuneCountInString(p) <= minParagraphRunes || seen[p] {
				return
			}
			seen[p] = true
			paragraphs = append(paragraphs, p)
			words += countWords(p)
		})
		if len(paragraphs) >= minFallbackParagraphs {
			best = paragraphs
			break
		}
		if words > bestWords {
			best, bestWords = paragraphs, words
		}
	}

	return extractTitle(doc), strings.Join(best, "\n")
}

func extractTitle(doc *goquery.Document) string {
	for _, selector := range titleSelectors {
		if t := strings.TrimSpace(doc.Find(selector).First().Text()); t != "" {
			return cleanTitle(t)
		}
	}
	if t, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		return cleanTitle(t)
	}
	return ""
}
