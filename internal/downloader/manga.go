package downloader

import (
	"context"

	"github.com/rxng/mangapark-dl/internal/mangapark"
)

// Selection decides which chapters of a listing get downloaded.
type Selection interface {
	Matches(number float64) bool
	// Exclusive reports whether iteration stops after the first match.
	Exclusive() bool
}

// SingleChapter downloads the one entry whose number equals it, then
// stops.
type SingleChapter float64

func (s SingleChapter) Matches(n float64) bool { return n == float64(s) }
func (s SingleChapter) Exclusive() bool        { return true }

// ChapterRange downloads every entry in [Min,Max]. Iteration never
// stops early: fractional chapters mean matches are not necessarily
// contiguous.
type ChapterRange struct {
	Min, Max float64
}

func (r ChapterRange) Matches(n float64) bool { return r.Min <= n && n <= r.Max }
func (r ChapterRange) Exclusive() bool        { return false }

// Candidate is one downloadable chapter resolved from the chosen
// listing.
type Candidate struct {
	URL    string
	Ref    mangapark.ChapterRef
	Number float64
}

// Candidates fetches the manga page, applies the stream policy, and
// returns the chosen listing's chapters oldest-first.
func (d *Downloader) Candidates(ctx context.Context, mangaURL string) ([]Candidate, error) {
	doc, err := d.site.FetchDocument(ctx, mangaURL)
	if err != nil {
		return nil, err
	}

	best, err := d.policy(mangapark.Streams(doc))
	if err != nil {
		return nil, err
	}

	// The site lists chapters newest-first; walking the listing
	// backwards yields ascending chapter numbers.
	entries := best.Entries()
	out := make([]Candidate, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		href, ok := entries[i].ChapterURL()
		if !ok {
			d.log.Debugf("listing row %d has no chapter link, skipping\n", i)
			continue
		}

		ref, err := mangapark.ParseChapterURL(href)
		if err != nil {
			return nil, err
		}
		num, err := ref.Number()
		if err != nil {
			return nil, err
		}

		out = append(out, Candidate{URL: href, Ref: ref, Number: num})
	}

	d.checkAscending(out)

	return out, nil
}

// checkAscending verifies the newest-first assumption after reversal.
// A violation means the listing layout changed; warn loudly rather
// than silently mis-order a range download.
func (d *Downloader) checkAscending(cands []Candidate) {
	for i := 1; i < len(cands); i++ {
		if cands[i].Number < cands[i-1].Number {
			d.log.Warnf("chapter listing is not newest-first: %s (%g) sorts before %s (%g)\n",
				cands[i-1].Ref.Label, cands[i-1].Number, cands[i].Ref.Label, cands[i].Number)
			return
		}
	}
}

// DownloadManga resolves the manga page and runs the chapter pipeline
// for every entry sel matches, in ascending chapter order. By default
// the first failed chapter aborts the run; with ContinueOnError the
// remaining chapters still run and the first failure is returned at the
// end.
func (d *Downloader) DownloadManga(ctx context.Context, mangaURL string, sel Selection) error {
	cands, err := d.Candidates(ctx, mangaURL)
	if err != nil {
		return err
	}

	d.log.Infof("%s: %d chapters listed\n", mangapark.ParseMangaTitle(mangaURL), len(cands))

	var firstErr error
	for _, c := range cands {
		if !sel.Matches(c.Number) {
			continue
		}

		if err := d.DownloadChapter(ctx, c.URL); err != nil {
			if !d.continueOnError {
				return err
			}
			d.log.Errorf("chapter %s failed: %v\n", c.Ref.Label, err)
			if firstErr == nil {
				firstErr = err
			}
		}

		if sel.Exclusive() {
			break
		}
	}

	return firstErr
}
