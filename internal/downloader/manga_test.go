package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rxng/mangapark-dl/internal/mangapark"
	"github.com/rxng/mangapark-dl/internal/ui"
)

// fakeSite serves a MangaPark-shaped manga: one short listing stream
// and one long one (c018..c021 newest-first), two page images per
// chapter. Listing hrefs are root-relative, image srcs absolute with a
// cache-busting query, matching what the real site renders.
type fakeSite struct {
	mu          sync.Mutex
	chapterHits map[string]int
	queryLeaks  []string

	failLabel string // images of this chapter return 500
	noStreams bool

	srv *httptest.Server
	png []byte
}

func newFakeSite(t *testing.T) *fakeSite {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 40, 60))); err != nil {
		t.Fatal(err)
	}

	f := &fakeSite{
		chapterHits: map[string]int{},
		png:         buf.Bytes(),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeSite) handle(w http.ResponseWriter, r *http.Request) {
	p := strings.TrimSuffix(r.URL.Path, "/")

	switch {
	case p == "/manga/test-manga":
		f.writeListing(w)
	case strings.HasPrefix(p, "/manga/test-manga/en/"):
		label := p[strings.LastIndexByte(p, '/')+1:]
		f.mu.Lock()
		f.chapterHits[label]++
		f.mu.Unlock()
		f.writeChapter(w, label)
	case strings.HasPrefix(p, "/img/"):
		if r.URL.RawQuery != "" {
			f.mu.Lock()
			f.queryLeaks = append(f.queryLeaks, r.URL.String())
			f.mu.Unlock()
		}
		parts := strings.Split(p, "/")
		if len(parts) > 2 && parts[2] == f.failLabel {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(f.png)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeSite) writeListing(w http.ResponseWriter) {
	if f.noStreams {
		fmt.Fprint(w, "<html><body><p>maintenance</p></body></html>")
		return
	}

	row := func(label string) string {
		// A page-jump anchor first, the canonical chapter link last.
		return fmt.Sprintf(`<li><em><a href="/manga/test-manga/en/%s/1">p1</a><a href="/manga/test-manga/en/%s">Ch.%s</a></em></li>`,
			label, label, label[1:])
	}

	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString(`<div class="stream"><ul>` + row("c021") + "</ul></div>")
	b.WriteString(`<div class="stream"><ul>`)
	for _, label := range []string{"c021", "c020.5", "c020", "c019", "c018"} {
		b.WriteString(row(label))
	}
	b.WriteString("</ul></div></body></html>")
	fmt.Fprint(w, b.String())
}

func (f *fakeSite) writeChapter(w http.ResponseWriter, label string) {
	fmt.Fprintf(w, `<html><body>
		<a class="img-link" href="#"><img src="%s/img/%s/001.png?v=1"/></a>
		<a class="img-link" href="#"><img src="%s/img/%s/002.png?v=2"/></a>
	</body></html>`, f.srv.URL, label, f.srv.URL, label)
}

func (f *fakeSite) hits(label string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chapterHits[label]
}

func (f *fakeSite) totalHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.chapterHits {
		n += c
	}
	return n
}

func newTestDownloader(f *fakeSite, out string, continueOnError bool, stats *ui.Stats) *Downloader {
	return New(Options{
		Client:          f.srv.Client(),
		Origin:          f.srv.URL,
		Output:          out,
		ContinueOnError: continueOnError,
		Stats:           stats,
	})
}

func chapterPDF(out, label string) string {
	return filepath.Join(out, "test-manga", "en", label, label+".pdf")
}

func TestDownloadManga_SingleChapter(t *testing.T) {
	f := newFakeSite(t)
	out := t.TempDir()
	d := newTestDownloader(f, out, false, nil)

	err := d.DownloadManga(context.Background(), f.srv.URL+"/manga/test-manga/", SingleChapter(20))
	if err != nil {
		t.Fatalf("DownloadManga() error = %v", err)
	}

	n, err := api.PageCountFile(chapterPDF(out, "c020"))
	if err != nil {
		t.Fatalf("PageCountFile() error = %v", err)
	}
	if n != 2 {
		t.Errorf("page count = %d, want 2", n)
	}

	// Exactly one chapter page fetched: the match stops the iteration.
	if got := f.totalHits(); got != 1 {
		t.Errorf("chapter page fetches = %d, want 1", got)
	}
	if got := f.hits("c020"); got != 1 {
		t.Errorf("c020 fetches = %d, want 1", got)
	}

	if len(f.queryLeaks) != 0 {
		t.Errorf("image requests carried query strings: %v", f.queryLeaks)
	}
}

func TestDownloadManga_Range(t *testing.T) {
	f := newFakeSite(t)
	out := t.TempDir()
	stats := &ui.Stats{}
	d := newTestDownloader(f, out, false, stats)

	err := d.DownloadManga(context.Background(), f.srv.URL+"/manga/test-manga/", ChapterRange{Min: 18, Max: 20.5})
	if err != nil {
		t.Fatalf("DownloadManga() error = %v", err)
	}

	for _, label := range []string{"c018", "c019", "c020", "c020.5"} {
		if _, err := os.Stat(chapterPDF(out, label)); err != nil {
			t.Errorf("missing document for %s: %v", label, err)
		}
	}
	if _, err := os.Stat(chapterPDF(out, "c021")); !os.IsNotExist(err) {
		t.Error("c021 is outside the range and must not be downloaded")
	}
	if got := f.hits("c021"); got != 0 {
		t.Errorf("c021 page fetched %d times, want 0", got)
	}

	if got := stats.TotalChapters.Load(); got != 4 {
		t.Errorf("TotalChapters = %d, want 4", got)
	}
	if got := stats.TotalPages.Load(); got != 8 {
		t.Errorf("TotalPages = %d, want 8", got)
	}
}

func TestDownloadManga_AbortsOnChapterFailure(t *testing.T) {
	f := newFakeSite(t)
	f.failLabel = "c019"
	out := t.TempDir()
	d := newTestDownloader(f, out, false, nil)

	err := d.DownloadManga(context.Background(), f.srv.URL+"/manga/test-manga/", ChapterRange{Min: 18, Max: 20.5})

	var cerr *ChapterError
	if !errors.As(err, &cerr) {
		t.Fatalf("DownloadManga() error = %v, want *ChapterError", err)
	}
	if cerr.Label != "c019" {
		t.Errorf("failed label = %q, want c019", cerr.Label)
	}
	if cerr.Page != 1 {
		t.Errorf("failed page = %d, want 1", cerr.Page)
	}

	// c018 finished before the failure, everything after is aborted.
	if _, err := os.Stat(chapterPDF(out, "c018")); err != nil {
		t.Errorf("c018 should have completed: %v", err)
	}
	if _, err := os.Stat(chapterPDF(out, "c019")); !os.IsNotExist(err) {
		t.Error("no partial document may exist for the failed chapter")
	}
	if _, err := os.Stat(chapterPDF(out, "c020")); !os.IsNotExist(err) {
		t.Error("chapters after the failure must not run when aborting")
	}
}

func TestDownloadManga_ContinueOnError(t *testing.T) {
	f := newFakeSite(t)
	f.failLabel = "c019"
	out := t.TempDir()
	d := newTestDownloader(f, out, true, nil)

	err := d.DownloadManga(context.Background(), f.srv.URL+"/manga/test-manga/", ChapterRange{Min: 18, Max: 20.5})

	var cerr *ChapterError
	if !errors.As(err, &cerr) {
		t.Fatalf("DownloadManga() error = %v, want the first *ChapterError", err)
	}
	if cerr.Label != "c019" {
		t.Errorf("reported label = %q, want the first failure c019", cerr.Label)
	}

	for _, label := range []string{"c018", "c020", "c020.5"} {
		if _, err := os.Stat(chapterPDF(out, label)); err != nil {
			t.Errorf("%s should have completed despite the c019 failure: %v", label, err)
		}
	}
	if _, err := os.Stat(chapterPDF(out, "c019")); !os.IsNotExist(err) {
		t.Error("no partial document may exist for the failed chapter")
	}
}

func TestDownloadManga_NoStreams(t *testing.T) {
	f := newFakeSite(t)
	f.noStreams = true
	d := newTestDownloader(f, t.TempDir(), false, nil)

	err := d.DownloadManga(context.Background(), f.srv.URL+"/manga/test-manga/", SingleChapter(20))
	if !errors.Is(err, mangapark.ErrNoStreams) {
		t.Errorf("DownloadManga() error = %v, want ErrNoStreams", err)
	}
}

func TestDownloadChapter_RelativeURL(t *testing.T) {
	f := newFakeSite(t)
	out := t.TempDir()
	d := newTestDownloader(f, out, false, nil)

	// Listing widgets emit root-relative hrefs; the pipeline resolves
	// them against the origin before fetching.
	if err := d.DownloadChapter(context.Background(), "/manga/test-manga/en/c020"); err != nil {
		t.Fatalf("DownloadChapter() error = %v", err)
	}

	if _, err := os.Stat(chapterPDF(out, "c020")); err != nil {
		t.Errorf("missing document: %v", err)
	}
}

func TestDownloadChapter_MalformedURL(t *testing.T) {
	f := newFakeSite(t)
	d := newTestDownloader(f, t.TempDir(), false, nil)

	err := d.DownloadChapter(context.Background(), f.srv.URL+"/manga/only-title")
	var malformed *mangapark.MalformedURLError
	if !errors.As(err, &malformed) {
		t.Errorf("DownloadChapter() error = %v, want *MalformedURLError", err)
	}
}

func TestCandidates_AscendingOrder(t *testing.T) {
	f := newFakeSite(t)
	d := newTestDownloader(f, t.TempDir(), false, nil)

	cands, err := d.Candidates(context.Background(), f.srv.URL+"/manga/test-manga/")
	if err != nil {
		t.Fatalf("Candidates() error = %v", err)
	}

	want := []float64{18, 19, 20, 20.5, 21}
	if len(cands) != len(want) {
		t.Fatalf("Candidates() = %d entries, want %d", len(cands), len(want))
	}
	for i, n := range want {
		if cands[i].Number != n {
			t.Errorf("candidate %d = %g, want %g (reversal must yield ascending order)", i, cands[i].Number, n)
		}
	}
}
