package scraper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsChallengePage_CloudflareMarkers(t *testing.T) {
	rules := DefaultRules()

	bodies := []string{
		`<html><body><div id="cf-browser-verification"></div></body></html>`,
		`<html><script>window._cf_chl_opt = {};</script></html>`,
		`<html><body>DDoS protection by Cloudflare</body></html>`,
		`<html><body>Checking if the site connection is secure</body></html>`,
	}
	for _, body := range bodies {
		require.True(t, rules.isChallengePage(body), "should detect: %.60s", body)
	}
}

func TestIsChallengePage_AkamaiMarkers(t *testing.T) {
	rules := DefaultRules()

	require.True(t, rules.isChallengePage(`<html><script>document.cookie = "_abck=...";</script></html>`))
	require.True(t, rules.isChallengePage(`<html><body><h1>Pardon Our Interruption</h1></body></html>`))
}

func TestIsChallengePage_Titles(t *testing.T) {
	rules := DefaultRules()

	require.True(t, rules.isChallengePage(
		`<html><head><title>Just a moment...</title></head><body></body></html>`))
	require.True(t, rules.isChallengePage(
		`<html><head><title>  Access Denied  </title></head><body></body></html>`))
	require.True(t, rules.isChallengePage(
		`<html><head><title>Attention Required! | Cloudflare</title></head><body></body></html>`))
}

func TestIsChallengePage_RealContent(t *testing.T) {
	rules := DefaultRules()

	body := `<html><head><title>Trail Running Shoes - Acme Store</title></head>
<body><h1>Trail Running Shoes</h1><p>The best shoes for any terrain. $129.99</p></body></html>`

	require.False(t, rules.isChallengePage(body))
	require.False(t, rules.isChallengePage(""))
}

func TestIsChallengePage_Deterministic(t *testing.T) {
	rules := DefaultRules()
	body := `<html><head><title>Just a moment...</title></head><body></body></html>`

	first := rules.isChallengePage(body)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, rules.isChallengePage(body))
	}
}

func TestPageTitle(t *testing.T) {
	require.Equal(t, "Hello", pageTitle(`<html><head><title>Hello</title></head></html>`))
	require.Equal(t, "", pageTitle(`<html><head></head><body>no title</body></html>`))
}
