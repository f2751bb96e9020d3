package mangapark

import (
	"fmt"
	"strconv"
	"strings"
)

const siteHost = "mangapark.me"

// DefaultOrigin is the site origin used to resolve root-relative hrefs
// emitted by the listing widgets.
const DefaultOrigin = "https://" + siteHost

const mangaPrefix = "/manga/"

// MalformedURLError reports a URL that fits neither of the two chapter
// path shapes the site renders.
type MalformedURLError struct {
	URL string
}

func (e *MalformedURLError) Error() string {
	return fmt.Sprintf("mangapark: cannot parse URL %q", e.URL)
}

// ChapterRef is the canonical form of a chapter URL.
//
// Path is the full path after stripping scheme, host and the /manga/
// prefix. It is stable per chapter and doubles as the chapter's local
// storage directory; callers treat it as an opaque key.
type ChapterRef struct {
	Title   string
	Version string
	Label   string
	Path    string
}

// Number derives the numeric chapter number from the label by dropping
// its one-character prefix, e.g. "c020" -> 20 and "c020.5" -> 20.5.
func (r ChapterRef) Number() (float64, error) {
	if len(r.Label) < 2 {
		return 0, fmt.Errorf("mangapark: chapter label %q too short", r.Label)
	}
	n, err := strconv.ParseFloat(r.Label[1:], 64)
	if err != nil {
		return 0, fmt.Errorf("mangapark: chapter label %q: %w", r.Label, err)
	}
	return n, nil
}

// stripSite drops the scheme, the host and the fixed /manga/ prefix,
// leaving the bare chapter or manga path. Scheme-less URLs keep only
// the known site host to strip, so relative paths pass through intact.
func stripSite(raw string) string {
	s := raw
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
		if j := strings.IndexByte(s, '/'); j >= 0 {
			s = s[j:]
		} else {
			s = ""
		}
	} else {
		s = strings.TrimPrefix(s, "www.")
		s = strings.TrimPrefix(s, siteHost)
	}
	s = strings.TrimPrefix(s, mangaPrefix)
	s = strings.TrimPrefix(s, "/")
	return strings.TrimSuffix(s, "/")
}

// ParseChapterURL canonicalizes the two chapter path shapes the site
// renders. The three-segment form is title/version/label. Some series
// render a fourth separator segment between title and version; it
// carries no information and is discarded.
func ParseChapterURL(raw string) (ChapterRef, error) {
	p := stripSite(raw)
	segs := strings.Split(p, "/")

	switch len(segs) {
	case 3:
		return ChapterRef{Title: segs[0], Version: segs[1], Label: segs[2], Path: p}, nil
	case 4:
		return ChapterRef{Title: segs[0], Version: segs[2], Label: segs[3], Path: p}, nil
	}

	return ChapterRef{}, &MalformedURLError{URL: raw}
}

// ParseMangaTitle extracts the manga title slug from a manga root URL.
// Display and logging only; storage paths always come from ChapterRef.
func ParseMangaTitle(raw string) string {
	p := stripSite(raw)
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return p
}
