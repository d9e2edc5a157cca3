package parser

import (
	"path"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

// imageExtractor returns a raw candidate URL, or "" when it has none.
type imageExtractor func(feed *gofeed.Feed, item *gofeed.Item) string

// imageExtractors run in precedence order; the first candidate that
// resolves to an absolute http(s) URL wins.
var imageExtractors = []imageExtractor{
	mediaThumbnail,
	mediaContentImage,
	rssEnclosureImage,
	itunesImage,
	atomEnclosureImage,
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".avif": true, ".bmp": true, ".svg": true,
}

func previewImage(feed *gofeed.Feed, item *gofeed.Item, base string) string {
	for _, extract := range imageExtractors {
		raw := extract(feed, item)
		if raw == "" {
			continue
		}
		if abs, ok := resolveHTTP(raw, base); ok {
			return abs
		}
	}
	return ""
}

func mediaThumbnail(_ *gofeed.Feed, item *gofeed.Item) string {
	for _, e := range mediaElements(item, "thumbnail") {
		if u := strings.TrimSpace(e.Attrs["url"]); u != "" {
			return u
		}
	}
	return ""
}

func mediaContentImage(_ *gofeed.Feed, item *gofeed.Item) string {
	for _, e := range mediaElements(item, "content") {
		u := strings.TrimSpace(e.Attrs["url"])
		if u == "" {
			continue
		}
		if isImageType(e.Attrs["type"]) || strings.EqualFold(e.Attrs["medium"], "image") || looksLikeImage(u) {
			return u
		}
	}
	return ""
}

func rssEnclosureImage(feed *gofeed.Feed, item *gofeed.Item) string {
	if feed.FeedType == "atom" {
		return ""
	}
	return enclosureImage(item.Enclosures)
}

func itunesImage(_ *gofeed.Feed, item *gofeed.Item) string {
	if item.ITunesExt != nil {
		return strings.TrimSpace(item.ITunesExt.Image)
	}
	return ""
}

// atomEnclosureImage reads link rel="enclosure", which gofeed surfaces as
// item enclosures for Atom entries.
func atomEnclosureImage(feed *gofeed.Feed, item *gofeed.Item) string {
	if feed.FeedType != "atom" {
		return ""
	}
	return enclosureImage(item.Enclosures)
}

// enclosureImage accepts image-typed enclosures and untyped ones whose URL
// looks like an image.
func enclosureImage(enclosures []*gofeed.Enclosure) string {
	for _, enc := range enclosures {
		if enc == nil {
			continue
		}
		u := strings.TrimSpace(enc.URL)
		if u == "" {
			continue
		}
		typ := strings.TrimSpace(enc.Type)
		if isImageType(typ) || (typ == "" && looksLikeImage(u)) {
			return u
		}
	}
	return ""
}

// mediaElements returns media:<name> elements of the item, direct children
// first, then those nested in media:group.
func mediaElements(item *gofeed.Item, name string) []ext.Extension {
	media, ok := item.Extensions["media"]
	if !ok {
		return nil
	}
	out := append([]ext.Extension(nil), media[name]...)
	for _, group := range media["group"] {
		out = append(out, group.Children[name]...)
	}
	return out
}

func isImageType(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
}

func looksLikeImage(raw string) bool {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	return imageExtensions[strings.ToLower(path.Ext(raw))]
}
