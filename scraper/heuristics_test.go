package scraper

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agent-first/agentmap/models"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestExtractTitle_SelectorCascade(t *testing.T) {
	rules := DefaultRules()

	doc := docFrom(t, `<html><body><h1>Trail Shoe X1</h1></body></html>`)
	require.Equal(t, "Trail Shoe X1", extractTitle(rules, doc))

	doc = docFrom(t, `<html><body><div itemprop="name">Marked Up Name</div></body></html>`)
	require.Equal(t, "Marked Up Name", extractTitle(rules, doc))
}

func TestExtractTitle_PageTitleFallbackStripsSuffix(t *testing.T) {
	rules := DefaultRules()

	doc := docFrom(t, `<html><head><title>Trail Shoe X1 | Acme Store</title></head><body></body></html>`)
	require.Equal(t, "Trail Shoe X1", extractTitle(rules, doc))

	doc = docFrom(t, `<html><head><title>Trail Shoe X1 — Acme</title></head><body></body></html>`)
	require.Equal(t, "Trail Shoe X1", extractTitle(rules, doc))
}

func TestExtractTitle_Sentinel(t *testing.T) {
	rules := DefaultRules()
	doc := docFrom(t, `<html><body><p>nothing here</p></body></html>`)
	require.Equal(t, models.UnknownTitle, extractTitle(rules, doc))
}

func TestExtractTitle_Truncated(t *testing.T) {
	rules := DefaultRules()
	long := strings.Repeat("x", 300)
	doc := docFrom(t, `<html><body><h1>`+long+`</h1></body></html>`)

	got := extractTitle(rules, doc)
	require.Len(t, got, models.MaxTitleLen)
}

func TestExtractPrice_ContentAttribute(t *testing.T) {
	rules := DefaultRules()
	doc := docFrom(t, `<html><body><span itemprop="price" content="49.99"></span></body></html>`)

	price := extractPrice(rules, doc, "")
	require.NotNil(t, price)
	require.Equal(t, "$49.99", *price)
}

func TestExtractPrice_SelectorText(t *testing.T) {
	rules := DefaultRules()
	doc := docFrom(t, `<html><body><div class="product-price">$129.99</div></body></html>`)

	price := extractPrice(rules, doc, "")
	require.NotNil(t, price)
	require.Equal(t, "$129.99", *price)
}

func TestExtractPrice_RegexRequiresTwoDigits(t *testing.T) {
	rules := DefaultRules()
	empty := docFrom(t, `<html><body></body></html>`)

	// "$9" is a size or a rating, not a price.
	require.Nil(t, extractPrice(rules, empty, `<html><body>sized $9 for kids</body></html>`))

	price := extractPrice(rules, empty, `<html><body>now only $19.99 today</body></html>`)
	require.NotNil(t, price)
	require.Equal(t, "$19.99", *price)
}

func TestExtractDescription_MetaPreferred(t *testing.T) {
	rules := DefaultRules()
	doc := docFrom(t, `<html><head>
	<meta name="description" content="A grippy all-terrain running shoe for long trails.">
	</head><body><div class="description">Short.</div></body></html>`)

	require.Equal(t, "A grippy all-terrain running shoe for long trails.", extractDescription(rules, doc))
}

func TestExtractDescription_ShortMetaSkipped(t *testing.T) {
	rules := DefaultRules()
	doc := docFrom(t, `<html><head><meta name="description" content="Too short."></head>
	<body><div class="product-description">This selector text is comfortably longer than thirty characters.</div></body></html>`)

	require.Equal(t,
		"This selector text is comfortably longer than thirty characters.",
		extractDescription(rules, doc))
}

func TestExtractCTAButtons_ResolveDedupeAndCap(t *testing.T) {
	rules := DefaultRules()
	base := mustURL(t, "https://acme.test/products/shoe")

	doc := docFrom(t, `<html><body>
	<a href="/cart/add">Add to Cart</a>
	<a href="/cart/add">Add to Cart</a>
	<a href="#">Buy Now</a>
	<button>Checkout</button>
	<a href="https://pay.test/go">Order Now</a>
	<a href="/bag">Add to Bag</a>
	<a href="/fast">Get It Now</a>
	<a href="/about">About Us</a>
	</body></html>`)

	ctas := extractCTAButtons(rules, doc, base)
	require.Len(t, ctas, models.MaxCTAButtons)

	// First-seen order, duplicates collapsed, relative and empty hrefs resolved.
	require.Equal(t, models.CTAButton{Text: "Add to Cart", URL: "https://acme.test/cart/add"}, ctas[0])
	require.Equal(t, models.CTAButton{Text: "Buy Now", URL: "https://acme.test/products/shoe"}, ctas[1])
	require.Equal(t, models.CTAButton{Text: "Checkout", URL: "https://acme.test/products/shoe"}, ctas[2])
	require.Equal(t, models.CTAButton{Text: "Order Now", URL: "https://pay.test/go"}, ctas[3])
}

func TestExtractReviews_LengthBandAndDedupe(t *testing.T) {
	rules := DefaultRules()

	long := strings.Repeat("very long review text ", 25) // > 400 chars
	doc := docFrom(t, `<html><body>
	<div class="review-text">short</div>
	<div class="review-text">These shoes carried me through a 50k ultra without a single blister.</div>
	<div class="review-text">These shoes carried me through a 50k ultra without a single blister.</div>
	<div class="review-text">`+long+`</div>
	</body></html>`)

	reviews := extractReviews(rules, doc)
	require.Equal(t, []string{
		"These shoes carried me through a 50k ultra without a single blister.",
	}, reviews)
}

func TestBuildHeuristicProduct_EndToEnd(t *testing.T) {
	rules := DefaultRules()
	base := mustURL(t, "https://acme.test/products/shoe")

	html := `<html><head>
	<title>Trail Shoe X1 | Acme</title>
	<meta name="description" content="A grippy all-terrain running shoe built for long trails.">
	</head><body>
	<nav>Home / Shoes</nav>
	<main>
	<h1>Trail Shoe X1</h1>
	<div class="product-price">$129.99</div>
	<p>` + strings.Repeat("All-terrain grip and cushioning. ", 10) + `</p>
	<a href="/cart/add">Add to Cart</a>
	</main>
	<script>tracking();</script>
	</body></html>`

	doc := docFrom(t, html)
	stripNoise(rules, doc)
	got := buildHeuristicProduct(rules, doc, html, base, models.SourceHTML)

	require.Equal(t, "Trail Shoe X1", got.Title)
	require.NotNil(t, got.Price)
	require.Equal(t, "$129.99", *got.Price)
	require.Equal(t, models.SourceHTML, got.Source)
	require.NotContains(t, got.RawText, "tracking")
	require.NotContains(t, got.RawText, "Home / Shoes")
	require.Len(t, got.CTAButtons, 1)
	require.LessOrEqual(t, len(got.RawText), models.MaxRawTextLen)
	require.Empty(t, got.StockHint)
}

func TestStripMarkup(t *testing.T) {
	require.Equal(t, "Soft fleece hoodie.", stripMarkup("<p>Soft <b>fleece</b> hoodie.</p>"))
	require.Equal(t, "plain", stripMarkup("plain"))
}

func TestTruncate_RuneSafe(t *testing.T) {
	s := strings.Repeat("é", 300)
	got := models.Truncate(s, 200)
	require.Equal(t, 200, len([]rune(got)))
	require.True(t, strings.HasPrefix(s, got))
}
