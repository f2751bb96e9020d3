package mangapark

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rxng/mangapark-dl/internal/util"
)

// Site fetches pages from one MangaPark-shaped origin.
type Site struct {
	origin string
	client *http.Client
}

func NewSite(client *http.Client, origin string) *Site {
	if origin == "" {
		origin = DefaultOrigin
	}
	return &Site{
		origin: strings.TrimSuffix(origin, "/"),
		client: client,
	}
}

// Resolve classifies href as absolute or root-relative up front and
// returns a fetchable URL. Listing widgets sometimes emit root-relative
// paths; those are resolved against the site origin.
func (s *Site) Resolve(href string) string {
	if u, err := url.Parse(href); err == nil && u.IsAbs() {
		return href
	}
	// Scheme-less but carrying the site host, e.g. a pasted
	// "mangapark.me/manga/..." URL.
	if h := strings.TrimPrefix(href, "www."); strings.HasPrefix(h, siteHost) {
		return "https://" + h
	}
	if strings.HasPrefix(href, "/") {
		return s.origin + href
	}
	return s.origin + "/" + href
}

// FetchDocument GETs pageURL (resolving it first) and parses the body.
func (s *Site) FetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Resolve(pageURL), nil)
	if err != nil {
		return nil, err
	}

	resp, err := util.DoWithRetry(s.client, req, 3, 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	return goquery.NewDocumentFromReader(resp.Body)
}

// PageImages returns the chapter's page-image URLs in document order.
// That order IS the page order of the assembled document. Query strings
// are cache-busting noise, not part of the asset identity, and are
// stripped.
func PageImages(doc *goquery.Document) []string {
	var out []string

	doc.Find("a.img-link").Each(func(_ int, a *goquery.Selection) {
		src, ok := a.Find("img").First().Attr("src")
		if !ok {
			return
		}
		out = append(out, StripQuery(src))
	})

	return out
}

// StripQuery drops the query string (and fragment) from an asset URL.
func StripQuery(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	return raw
}
