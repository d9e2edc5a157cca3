// Package parser normalizes RSS 2.0 and Atom documents into fetch.ParsedFeed
// values using gofeed.
package parser

import (
	"bytes"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"rss-reader/internal/usecase/fetch"
	"rss-reader/internal/utils/text"
)

// SummaryMaxRunes bounds the plain-text snippet stored with each item.
const SummaryMaxRunes = 500

var errEmptyDocument = errors.New("empty document")

// Parser implements fetch.FeedParser.
type Parser struct{}

// New returns a Parser.
func New() *Parser { return &Parser{} }

// Parse implements fetch.FeedParser.
func (*Parser) Parse(xml []byte, fetchedAt time.Time, fetchURL string) (*fetch.ParsedFeed, error) {
	return Parse(xml, fetchedAt, fetchURL)
}

// Parse decodes xml and normalizes every entry. Items without a usable date
// get fetchedAt. Failures are returned as *fetch.ParseError.
func Parse(xml []byte, fetchedAt time.Time, fetchURL string) (*fetch.ParsedFeed, error) {
	if len(bytes.TrimSpace(xml)) == 0 {
		return nil, &fetch.ParseError{Err: errEmptyDocument}
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(xml))
	if err != nil {
		return nil, &fetch.ParseError{Err: err}
	}

	out := &fetch.ParsedFeed{
		Title: strings.TrimSpace(feed.Title),
		Link:  resolveLink(firstLink(feed.Link, feed.Links), fetchURL),
		Items: make([]fetch.ParsedItem, 0, len(feed.Items)),
	}

	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		out.Items = append(out.Items, normalizeItem(feed, item, out.Link, fetchedAt, fetchURL))
	}
	return out, nil
}

func normalizeItem(feed *gofeed.Feed, item *gofeed.Item, feedLink string, fetchedAt time.Time, fetchURL string) fetch.ParsedItem {
	link := resolveLink(firstLink(item.Link, item.Links), firstNonEmpty(feedLink, fetchURL))

	content := item.Content
	if strings.TrimSpace(content) == "" {
		content = item.Description
	}

	snippet := item.Description
	if strings.TrimSpace(snippet) == "" {
		snippet = item.Content
	}

	published, dated := publishedAt(item)
	if !dated {
		published = fetchedAt.UTC()
	}

	return fetch.ParsedItem{
		Title:        strings.TrimSpace(item.Title),
		Link:         link,
		GUID:         strings.TrimSpace(item.GUID),
		Author:       itemAuthor(feed, item),
		PublishedAt:  published,
		Dated:        dated,
		ContentHTML:  strings.TrimSpace(content),
		PreviewImage: previewImage(feed, item, firstNonEmpty(link, feedLink, fetchURL)),
		Summary:      summaryText(snippet),
	}
}

// publishedAt prefers the explicit published date, then the updated date,
// then a Dublin Core date. ok is false when the entry carries none.
func publishedAt(item *gofeed.Item) (time.Time, bool) {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC(), true
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC(), true
	}
	if dc := item.DublinCoreExt; dc != nil {
		for _, raw := range dc.Date {
			if t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw)); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

func itemAuthor(feed *gofeed.Feed, item *gofeed.Item) string {
	if dc := item.DublinCoreExt; dc != nil {
		for _, c := range dc.Creator {
			if c = strings.TrimSpace(c); c != "" {
				return c
			}
		}
	}
	if name := personName(item.Authors); name != "" {
		return name
	}
	if dc := feed.DublinCoreExt; dc != nil {
		for _, c := range dc.Creator {
			if c = strings.TrimSpace(c); c != "" {
				return c
			}
		}
	}
	return personName(feed.Authors)
}

func personName(people []*gofeed.Person) string {
	for _, p := range people {
		if p == nil {
			continue
		}
		if name := strings.TrimSpace(p.Name); name != "" {
			return name
		}
		if email := strings.TrimSpace(p.Email); email != "" {
			return email
		}
	}
	return ""
}

// summaryText converts an HTML fragment to collapsed plain text.
func summaryText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return text.Truncate(text.CollapseWhitespace(fragment), SummaryMaxRunes)
	}
	return text.Truncate(text.CollapseWhitespace(doc.Text()), SummaryMaxRunes)
}

func firstLink(link string, links []string) string {
	if link = strings.TrimSpace(link); link != "" {
		return link
	}
	for _, l := range links {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return ""
}

// resolveLink makes ref an absolute http(s) URL against base. Anything that
// cannot be resolved that way (javascript:, data:, relative without a base)
// is dropped.
func resolveLink(ref, base string) string {
	abs, _ := resolveHTTP(ref, base)
	return abs
}

// resolveHTTP resolves ref against base and reports whether the result is
// an absolute http(s) URL. Protocol-relative refs become https.
func resolveHTTP(ref, base string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	if strings.HasPrefix(ref, "//") {
		ref = "https:" + ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if !u.IsAbs() {
		b, err := url.Parse(strings.TrimSpace(base))
		if err != nil || !b.IsAbs() {
			return "", false
		}
		u = b.ResolveReference(u)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	return u.String(), true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
