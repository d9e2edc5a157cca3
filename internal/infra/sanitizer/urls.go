package sanitizer

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var linkRel = []string{"noopener", "noreferrer", "ugc"}

func parseBase(raw string) *url.URL {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !u.IsAbs() {
		return nil
	}
	return u
}

// resolve returns ref as an absolute URL. Protocol-relative refs become
// https; relative refs need a base.
func resolve(ref string, base *url.URL) (*url.URL, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, false
	}
	if strings.HasPrefix(ref, "//") {
		ref = "https:" + ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return nil, false
	}
	if !u.IsAbs() {
		if base == nil {
			return nil, false
		}
		u = base.ResolveReference(u)
	}
	return u, true
}

func isWeb(u *url.URL) bool {
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func rewriteAnchor(a *goquery.Selection, base *url.URL) {
	href, ok := a.Attr("href")
	if !ok {
		a.RemoveAttr("target")
		a.RemoveAttr("rel")
		return
	}
	href = strings.TrimSpace(href)

	if strings.HasPrefix(href, "#") {
		a.SetAttr("href", href)
		a.RemoveAttr("target")
		a.RemoveAttr("rel")
		return
	}

	u, ok := resolve(href, base)
	switch {
	case ok && u.Scheme == "mailto":
		a.SetAttr("href", u.String())
		a.RemoveAttr("target")
		a.RemoveAttr("rel")
	case ok && isWeb(u):
		a.SetAttr("href", u.String())
		a.SetAttr("target", "_blank")
		existing, _ := a.Attr("rel")
		a.SetAttr("rel", mergeRel(existing))
	default:
		a.RemoveAttr("href")
		a.RemoveAttr("target")
		a.RemoveAttr("rel")
	}
}

// mergeRel keeps existing rel tokens and appends the missing link tokens.
func mergeRel(existing string) string {
	tokens := strings.Fields(strings.ToLower(existing))
	seen := make(map[string]bool, len(tokens)+len(linkRel))
	out := make([]string, 0, len(tokens)+len(linkRel))
	for _, t := range append(tokens, linkRel...) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return strings.Join(out, " ")
}

func rewriteImage(img *goquery.Selection, base *url.URL) {
	var src string
	for _, attr := range []string{"src", "data-src"} {
		raw, ok := img.Attr(attr)
		if !ok {
			continue
		}
		if u, ok := resolve(raw, base); ok && isWeb(u) {
			src = u.String()
			break
		}
	}
	if src == "" {
		img.Remove()
		return
	}
	img.SetAttr("src", src)
	img.RemoveAttr("data-src")

	if srcset, ok := img.Attr("srcset"); ok {
		if cleaned := normalizeSrcset(srcset, base); cleaned != "" {
			img.SetAttr("srcset", cleaned)
		} else {
			img.RemoveAttr("srcset")
		}
	}

	if _, ok := img.Attr("loading"); !ok {
		img.SetAttr("loading", "lazy")
	}
	if _, ok := img.Attr("decoding"); !ok {
		img.SetAttr("decoding", "async")
	}
}

// normalizeSrcset resolves each candidate URL and drops invalid candidates.
// Descriptors ("2x", "640w") are kept as written.
func normalizeSrcset(srcset string, base *url.URL) string {
	var out []string
	for _, candidate := range strings.Split(srcset, ",") {
		fields := strings.Fields(candidate)
		if len(fields) == 0 {
			continue
		}
		u, ok := resolve(fields[0], base)
		if !ok || !isWeb(u) {
			continue
		}
		fields[0] = u.String()
		out = append(out, strings.Join(fields, " "))
	}
	return strings.Join(out, ", ")
}
