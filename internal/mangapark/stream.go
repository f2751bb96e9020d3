package mangapark

import (
	"errors"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoStreams means the manga page has no recognizable chapter listing
// widget. Surfaced instead of defaulting so a layout change on the site
// does not turn into a silent no-op run.
var ErrNoStreams = errors.New("mangapark: no chapter streams on page")

// ListingEntry is one row of a chapter listing. A row may render
// several links (page jumps, scan group credits); the last anchor under
// its em element is the authoritative chapter link.
type ListingEntry struct {
	sel *goquery.Selection
}

// ChapterURL returns the row's canonical chapter href.
func (e ListingEntry) ChapterURL() (string, bool) {
	return e.sel.Find("em a").Last().Attr("href")
}

// ChapterStream is one complete table of contents as rendered by one
// listing widget. A manga page may carry several, typically one per
// scan group, covering overlapping chapter sets.
type ChapterStream struct {
	entries []ListingEntry
}

func (s ChapterStream) Len() int {
	return len(s.entries)
}

// Entries returns the listing rows in document order, newest chapter
// first as the site renders them.
func (s ChapterStream) Entries() []ListingEntry {
	return s.entries
}

// Streams collects every chapter listing widget on a manga page, in
// document order.
func Streams(doc *goquery.Document) []ChapterStream {
	var out []ChapterStream

	doc.Find("div.stream").Each(func(_ int, div *goquery.Selection) {
		var entries []ListingEntry
		div.Find("li").Each(func(_ int, li *goquery.Selection) {
			entries = append(entries, ListingEntry{sel: li})
		})
		out = append(out, ChapterStream{entries: entries})
	})

	return out
}

// StreamPolicy picks the authoritative listing out of the candidates
// scraped from a manga page.
type StreamPolicy func([]ChapterStream) (ChapterStream, error)

// LongestStream is the default policy: the listing with the most
// entries is taken as the most complete one. Ties keep the stream that
// appears first on the page.
func LongestStream(streams []ChapterStream) (ChapterStream, error) {
	if len(streams) == 0 {
		return ChapterStream{}, ErrNoStreams
	}

	best := streams[0]
	for _, s := range streams[1:] {
		if s.Len() > best.Len() {
			best = s
		}
	}

	return best, nil
}
