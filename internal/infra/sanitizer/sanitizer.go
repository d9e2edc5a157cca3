// Package sanitizer cleans untrusted feed and page HTML. A bluemonday
// allowlist removes unsafe markup, then a goquery pass resolves link and
// image URLs against the article's base URL.
package sanitizer

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// Options configures a single sanitize call.
type Options struct {
	// BaseURL resolves relative href, src and srcset values. Relative
	// URLs are dropped when it is empty or not absolute.
	BaseURL string
}

var (
	relTokens = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)
	loading   = regexp.MustCompile(`^(lazy|eager)$`)
	decoding  = regexp.MustCompile(`^(async|sync|auto)$`)
)

var defaultPolicy = New()

// SanitizeContent sanitizes html with the default policy. ok is false when
// the input is blank or nothing survives sanitizing.
func SanitizeContent(html string, opts Options) (string, bool) {
	return defaultPolicy.Sanitize(html, opts.BaseURL)
}

// Policy implements fetch.Sanitizer. It is safe for concurrent use.
type Policy struct {
	ugc *bluemonday.Policy
}

// New builds the allowlist: common text, list, table and media markup,
// http(s)/mailto links and images, no scripts, styles or event handlers.
func New() *Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()
	p.AllowStandardAttributes()

	p.AllowElements(
		"p", "br", "hr", "div", "span",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"blockquote", "pre", "code", "kbd", "samp",
		"em", "strong", "b", "i", "u", "s", "del", "ins", "sub", "sup", "small", "mark",
		"abbr", "cite", "q", "time",
		"ul", "ol", "li", "dl", "dt", "dd",
		"figure", "figcaption",
		"table", "caption", "thead", "tbody", "tfoot", "tr", "th", "td",
	)
	p.AllowAttrs("datetime").OnElements("time")
	p.AllowAttrs("cite").OnElements("blockquote", "q")
	p.AllowAttrs("colspan", "rowspan").Matching(bluemonday.Integer).OnElements("th", "td")

	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("rel").Matching(relTokens).OnElements("a")

	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowAttrs("data-src", "srcset").OnElements("img")
	p.AllowAttrs("width", "height").Matching(bluemonday.Integer).OnElements("img")
	p.AllowAttrs("loading").Matching(loading).OnElements("img")
	p.AllowAttrs("decoding").Matching(decoding).OnElements("img")

	return &Policy{ugc: p}
}

// Sanitize implements fetch.Sanitizer.
func (p *Policy) Sanitize(html, baseURL string) (string, bool) {
	if strings.TrimSpace(html) == "" {
		return "", false
	}

	cleaned := p.ugc.Sanitize(html)
	if strings.TrimSpace(cleaned) == "" {
		return "", false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cleaned))
	if err != nil {
		return "", false
	}
	base := parseBase(baseURL)

	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		rewriteAnchor(a, base)
	})
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		rewriteImage(img, base)
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return "", false
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", false
	}
	return out, true
}

var skipText = map[string]bool{"script": true, "style": true, "noscript": true, "template": true}

var blockElements = map[string]bool{
	"p": true, "br": true, "div": true, "li": true, "tr": true, "td": true, "th": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "figcaption": true, "dt": true, "dd": true,
}

// PlainText implements fetch.Sanitizer. Block boundaries become spaces and
// whitespace runs collapse.
func (p *Policy) PlainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	var b strings.Builder
	writeText(doc.Selection, &b)
	return strings.Join(strings.Fields(b.String()), " ")
}

func writeText(sel *goquery.Selection, b *strings.Builder) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		switch {
		case name == "#text":
			b.WriteString(s.Text())
		case skipText[name]:
		default:
			writeText(s, b)
			if blockElements[name] {
				b.WriteByte(' ')
			}
		}
	})
}
