package extract

import (
	"strings"
	"unicode/utf8"
)

// junkPhrases are removed wherever they appear.
var junkPhrases = []string{
	"Also Read:", "ALSO READ:", "Also Read", "Read More:", "READ MORE:",
	"Click here to read", "Download the app", "Follow us on",
	"Subscribe to our newsletter", "Advertisement", "ADVERTISEMENT",
	"Story continues below this ad", "Continue reading below",
}

// junkIndicators drop a short line that contains them.
var junkIndicators = []string{
	"cookie", "privacy policy", "terms of service", "subscribe", "sign up",
	"log in", "login", "click here", "read more", "also read", "follow us",
	"share this", "whatsapp", "telegram channel", "all rights reserved",
	"download the app", "copyright",
}

// junkLineMaxWords bounds the lines junkIndicators may remove, so real
// paragraphs that mention "subscribe" survive.
const junkLineMaxWords = 12

// cleanText normalises whitespace, strips junk phrases and drops
// navigation-like lines. Paragraphs are separated by single newlines.
func cleanText(text string) string {
	if text == "" {
		return ""
	}
	for _, phrase := range junkPhrases {
		text = strings.ReplaceAll(text, phrase, "")
	}

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		words := len(strings.Fields(line))
		if words <= junkLineMaxWords && isJunkLine(strings.ToLower(line)) {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func isJunkLine(lower string) bool {
	for _, ind := range junkIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}

func countWords(text string) int {
	return len(strings.Fields(text))
}

// cleanTitle trims a page title and drops a trailing " | Site Name"
// or " - Site Name" suffix when the remainder is still a usable headline.
func cleanTitle(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	for _, sep := range []string{" | ", " - ", " – "} {
		i := strings.LastIndex(title, sep)
		if i <= 0 {
			continue
		}
		head := strings.TrimSpace(title[:i])
		if utf8.RuneCountInString(head) >= 15 {
			return head
		}
	}
	return title
}
