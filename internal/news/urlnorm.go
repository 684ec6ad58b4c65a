package news

import (
	"net/url"
	"regexp"
	"strings"
)

// trackingParams are stripped before a URL is used as an identity key.
var trackingParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true,
	"utm_content": true, "utm_term": true, "fbclid": true, "gclid": true,
	"_ga": true, "_gac": true, "ref": true, "source": true, "medium": true,
	"campaign": true, "oc": true,
}

var googleNewsArticle = regexp.MustCompile(`news\.google\.com/rss/articles/([^?/#]+)`)

// CanonicalURL removes tracking parameters and fragments but keeps the rest
// of the query, scheme and host. Google News article links collapse to
// their article id. Used for IDs and for output.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if m := googleNewsArticle.FindStringSubmatch(raw); m != nil {
		return "google_news_" + m[1]
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimRight(strings.ToLower(raw), "/")
	}
	u.Fragment = ""
	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			if trackingParams[strings.ToLower(key)] {
				q.Del(key)
			}
		}
		u.RawQuery = q.Encode()
	}
	u.Host = strings.ToLower(u.Host)
	u.Scheme = strings.ToLower(u.Scheme)
	return strings.TrimRight(u.String(), "/")
}

// MatchKey is the loose identity used for URL deduplication: scheme,
// query, fragment and trailing slashes are ignored and the host is
// lower-cased. http://x.com/a?utm=1 and https://x.com/a/ share a key.
func MatchKey(raw string) string {
	raw = strings.TrimSpace(raw)
	if m := googleNewsArticle.FindStringSubmatch(raw); m != nil {
		return "google_news_" + m[1]
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		s := strings.ToLower(raw)
		s = strings.TrimPrefix(s, "https://")
		s = strings.TrimPrefix(s, "http://")
		if i := strings.IndexAny(s, "?#"); i >= 0 {
			s = s[:i]
		}
		return strings.TrimRight(s, "/")
	}
	path := strings.TrimRight(u.EscapedPath(), "/")
	return strings.ToLower(u.Host) + path
}

// Host returns the lower-cased host of a URL without a leading "www.".
func Host(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// ValidCandidate reports whether a link can be fetched at all.
func ValidCandidate(raw string) bool {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return false
	}
	u, err := url.Parse(raw)
	return err == nil && u.Host != ""
}
