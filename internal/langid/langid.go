// Package langid guesses the language of article text from its script and,
// for Latin text, from English function words.
package langid

import (
	"strings"
	"unicode"

	"github.com/deusflow/monsoon/internal/news"
)

// MinConfidence is the lowest confidence reported as a known language.
const MinConfidence = 0.5

// MinLetters is the smallest amount of text worth classifying.
const MinLetters = 20

// script maps a Unicode block to the language it is reported as. Languages
// sharing a block get its base code: Marathi and Nepali come back as hi,
// Assamese and Manipuri as bn.
type script struct {
	code   string
	lo, hi rune
}

var scripts = []script{
	{code: "hi", lo: 0x0900, hi: 0x097F},
	{code: "bn", lo: 0x0980, hi: 0x09FF},
	{code: "pa", lo: 0x0A00, hi: 0x0A7F},
	{code: "gu", lo: 0x0A80, hi: 0x0AFF},
	{code: "or", lo: 0x0B00, hi: 0x0B7F},
	{code: "ta", lo: 0x0B80, hi: 0x0BFF},
	{code: "te", lo: 0x0C00, hi: 0x0C7F},
	{code: "kn", lo: 0x0C80, hi: 0x0CFF},
	{code: "ml", lo: 0x0D00, hi: 0x0D7F},
	{code: "ur", lo: 0x0600, hi: 0x06FF},
}

var englishStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "on": true, "at": true, "for": true, "with": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"has": true, "have": true, "had": true, "it": true, "its": true, "this": true,
	"that": true, "by": true, "from": true, "as": true, "will": true, "said": true,
	"after": true, "due": true, "not": true, "but": true, "their": true, "which": true,
}

// stopwordSaturation is the stopword share at which English confidence
// stops growing. Running English prose sits well above it.
const stopwordSaturation = 0.2

// Detect returns an ISO 639-1 style code and a confidence in [0,1].
// Results below MinConfidence come back as news.LanguageUnknown.
func Detect(text string) (string, float64) {
	counts := make([]int, len(scripts))
	latin, letters := 0, 0
	for _, r := range text {
		if !unicode.IsLetter(r) && !unicode.IsMark(r) {
			continue
		}
		letters++
		if r < 0x250 && unicode.Is(unicode.Latin, r) {
			latin++
			continue
		}
		for i, s := range scripts {
			if r >= s.lo && r <= s.hi {
				counts[i]++
				break
			}
		}
	}
	if letters < MinLetters {
		return news.LanguageUnknown, 0
	}

	best, bestCount := -1, 0
	for i, c := range counts {
		if c > bestCount {
			best, bestCount = i, c
		}
	}

	if bestCount > latin {
		conf := float64(bestCount) / float64(letters)
		if conf < MinConfidence {
			return news.LanguageUnknown, conf
		}
		return scripts[best].code, conf
	}

	share := float64(latin) / float64(letters)
	conf := share * stopwordFactor(text)
	if conf < MinConfidence {
		return news.LanguageUnknown, conf
	}
	return "en", conf
}

func stopwordFactor(text string) float64 {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	if len(words) == 0 {
		return 0
	}
	hits := 0
	for _, w := range words {
		if englishStopwords[w] {
			hits++
		}
	}
	f := float64(hits) / float64(len(words)) / stopwordSaturation
	if f > 1 {
		return 1
	}
	return f
}
