package downloader

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rxng/mangapark-dl/internal/mangapark"
	"github.com/rxng/mangapark-dl/internal/ui"
	"github.com/rxng/mangapark-dl/internal/util"
)

// Downloader runs the chapter pipeline: download every page image of a
// chapter in document order, optionally resize, and assemble one PDF.
// Strictly sequential; page order and chapter order are load-bearing
// and must not depend on completion order.
type Downloader struct {
	site            *mangapark.Site
	client          *http.Client
	log             *ui.Logger
	policy          mangapark.StreamPolicy
	output          string
	height          int
	continueOnError bool
	pm              *ui.MPBProgressManager
	stats           *ui.Stats
}

type Options struct {
	Client *http.Client
	// Origin overrides the site origin; empty means mangapark.
	Origin string
	// Output is the root under which each chapter's directory is
	// created.
	Output string
	// Height requests resizing every page to this height; zero leaves
	// pages untouched.
	Height int
	// ContinueOnError keeps a range download going past a failed
	// chapter instead of aborting the run.
	ContinueOnError bool
	// Policy picks the authoritative listing; nil means longest wins.
	Policy   mangapark.StreamPolicy
	Logger   *ui.Logger
	Progress *ui.MPBProgressManager
	Stats    *ui.Stats
}

func New(opts Options) *Downloader {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = ui.NewLogger(false)
	}
	if opts.Policy == nil {
		opts.Policy = mangapark.LongestStream
	}
	if opts.Output == "" {
		opts.Output = "."
	}

	return &Downloader{
		site:            mangapark.NewSite(opts.Client, opts.Origin),
		client:          opts.Client,
		log:             opts.Logger,
		policy:          opts.Policy,
		output:          opts.Output,
		height:          opts.Height,
		continueOnError: opts.ContinueOnError,
		pm:              opts.Progress,
		stats:           opts.Stats,
	}
}

// DownloadChapter resolves chapterURL, downloads its pages in document
// order, resizes them when a height was requested, and assembles
// <dir>/<label>.pdf. Any page failure aborts the chapter with a
// *ChapterError; no partial document is written.
func (d *Downloader) DownloadChapter(ctx context.Context, chapterURL string) error {
	ref, err := mangapark.ParseChapterURL(chapterURL)
	if err != nil {
		return err
	}

	dir := filepath.Join(d.output, filepath.FromSlash(ref.Path))
	if err := util.EnsureDir(dir); err != nil {
		return &ChapterError{Label: ref.Label, Err: err}
	}

	doc, err := d.site.FetchDocument(ctx, chapterURL)
	if err != nil {
		return &ChapterError{Label: ref.Label, Err: err}
	}

	pages := mangapark.PageImages(doc)
	if len(pages) == 0 {
		return &ChapterError{Label: ref.Label, Err: errors.New("no page images on chapter page")}
	}

	prog := d.register("Ch." + ref.Label)
	prog.total(len(pages))
	referer := d.site.Resolve(chapterURL)

	files := make([]string, 0, len(pages))
	var bytes int64
	for i, src := range pages {
		name := path.Base(src)
		dest := filepath.Join(dir, name)
		d.log.Debugf("downloading %s %s %s\n", ref.Title, ref.Label, name)

		pageStart := bytes
		n, err := d.downloadImage(ctx, src, dest, referer, func(done int64) {
			prog.update(i, len(pages), pageStart+done)
		})
		if err != nil {
			prog.done()
			return &ChapterError{Label: ref.Label, Page: i + 1, Err: err}
		}
		bytes += n

		use, err := resizeToHeight(dest, d.height)
		if err != nil {
			prog.done()
			return &ChapterError{Label: ref.Label, Page: i + 1, Err: err}
		}

		files = append(files, use)
		prog.update(i+1, len(pages), bytes)
	}

	out := filepath.Join(dir, ref.Label+".pdf")
	if err := d.assemble(files, out); err != nil {
		prog.done()
		return &ChapterError{Label: ref.Label, Err: err}
	}
	prog.done()

	if d.stats != nil {
		d.stats.TotalChapters.Add(1)
		d.stats.TotalPages.Add(int64(len(files)))
		d.stats.TotalBytes.Add(bytes)
	}
	d.log.Infof("assembled %s\n", out)

	return nil
}

// assemble retries exactly once with the fixed-height layout when the
// default layout hits the page size ceiling. The retry's result,
// success or failure, is final.
func (d *Downloader) assemble(files []string, out string) error {
	err := AssemblePDF(files, out)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrPageTooLarge) {
		return err
	}

	d.log.Debugf("page size ceiling hit (%v), retrying with fixed-height layout\n", err)
	return AssemblePDFFixedHeight(files, out)
}

// downloadImage fetches one page image with a small backoff retry.
// Retries stay inside a single page download; a page that fails all
// attempts still fails the chapter.
func (d *Downloader) downloadImage(ctx context.Context, src, output, referer string, progress func(done int64)) (int64, error) {
	const attempts = 3

	var n int64
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		n, err = d.fetchImage(ctx, src, output, referer, progress)
		if err == nil {
			return n, nil
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}

	return 0, err
}

// fetchImage has named results so the deferred Close calls can fold
// their errors into err; a failed close means the bytes on disk cannot
// be trusted.
func (d *Downloader) fetchImage(ctx context.Context, u, output, referer string, progress func(done int64)) (written int64, err error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}

	req.Header.Set("Referer", referer)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Connection", "keep-alive")

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}

	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, _ := mime.ParseMediaType(ct); !strings.HasPrefix(mt, "image/") {
			return 0, fmt.Errorf("unexpected MIME: %s", ct)
		}
	}

	f, err := os.Create(output)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	written, err = copyWithProgress(f, resp.Body, progress)
	return written, err
}

// progress is nil-safe sugar over a ui.ProgressHandle so the pipeline
// runs without a bar manager, e.g. under test.
type progress struct {
	h *ui.ProgressHandle
}

func (d *Downloader) register(prefix string) progress {
	if d.pm == nil {
		return progress{}
	}
	return progress{h: d.pm.Register(prefix)}
}

func (p progress) total(n int) {
	if p.h != nil {
		p.h.SetTotal(n)
	}
}

func (p progress) update(done, total int, bytes int64) {
	if p.h != nil {
		p.h.Update(done, total, bytes)
	}
}

func (p progress) done() {
	if p.h != nil {
		p.h.MarkDone()
	}
}
