package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// DedupeInput holds the item fields a dedupe key is derived from.
type DedupeInput struct {
	GUID        string
	Link        string
	Title       string
	PublishedAt time.Time
}

// BuildDedupeKey returns a key that is stable across re-fetches of an
// unchanged item. Precedence: guid, then link, then a content hash of
// title, publish time and link.
func BuildDedupeKey(in DedupeInput) string {
	if guid := strings.TrimSpace(in.GUID); guid != "" {
		return "guid:" + guid
	}
	link := strings.TrimSpace(in.Link)
	if link != "" {
		return "link:" + link
	}
	published := ""
	if !in.PublishedAt.IsZero() {
		published = in.PublishedAt.UTC().Format("2006-01-02T15:04:05.000Z")
	}
	sum := sha256.Sum256([]byte(in.Title + "|" + published + "|" + link))
	return "hash:" + hex.EncodeToString(sum[:])
}
