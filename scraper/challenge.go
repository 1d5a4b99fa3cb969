package scraper

import (
	"strings"

	"golang.org/x/net/html"
)

// isChallengePage classifies a raw HTML body as a bot-protection
// interstitial. These pages return HTTP 200 but contain no product data, so
// catching them early prevents saving a useless "Unknown" record. The check
// is pure: the same body always classifies identically.
func (r *Rules) isChallengePage(body string) bool {
	for _, marker := range r.ChallengeMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}

	title := strings.ToLower(strings.TrimSpace(pageTitle(body)))
	if title == "" {
		return false
	}
	for _, phrase := range r.ChallengeTitles {
		if strings.Contains(title, phrase) {
			return true
		}
	}
	return false
}

// pageTitle extracts the first <title> text using the HTML tokenizer,
// avoiding a full DOM parse for what is a hot path on every response.
func pageTitle(body string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(body))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				if tokenizer.Next() == html.TextToken {
					return strings.TrimSpace(string(tokenizer.Text()))
				}
				return ""
			}
		}
	}
}
