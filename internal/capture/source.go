package capture

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	absoluteManifestRe = regexp.MustCompile(`https?://[^"'\s<>\\]+\.m3u8[^"'\s<>\\]*`)
	quotedManifestRe   = regexp.MustCompile(`["']([^"'\s<>]+\.m3u8[^"'\s<>]*)["']`)
)

// FindInHTML scans rendered page HTML for playlist URLs: media element
// sources, data-src attributes and inline scripts. Relative links are
// resolved against pageURL. Results are distinct and in document order.
func FindInHTML(html, pageURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(pageURL)

	var found []string
	seen := make(map[string]bool)
	add := func(raw string) {
		raw = strings.TrimSpace(strings.ReplaceAll(raw, `\/`, `/`))
		if raw == "" || !IsManifestURL(raw) {
			return
		}
		resolved := resolve(base, raw)
		if !seen[resolved] {
			seen[resolved] = true
			found = append(found, resolved)
		}
	}

	doc.Find("video[src], source[src], [data-src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			add(src)
		}
		if src, ok := s.Attr("data-src"); ok {
			add(src)
		}
	})

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		text := strings.ReplaceAll(s.Text(), `\/`, `/`)
		for _, m := range absoluteManifestRe.FindAllString(text, -1) {
			add(m)
		}
		for _, m := range quotedManifestRe.FindAllStringSubmatch(text, -1) {
			add(m[1])
		}
	})

	return found, nil
}

func resolve(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(refURL).String()
}
