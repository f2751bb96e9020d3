package downloader

import (
	"errors"
	"fmt"
)

// ErrPageTooLarge signals a page whose implied physical size exceeds
// the PDF per-side ceiling. Internal to the pipeline: it triggers the
// one-shot fixed-height layout retry and is never surfaced as-is.
var ErrPageTooLarge = errors.New("page exceeds PDF size limit")

// ChapterError reports a failed chapter pipeline run. No partial
// document exists when one of these is returned. Page is the 1-based
// index of the failed page, or 0 when the failure was not tied to a
// single page.
type ChapterError struct {
	Label string
	Page  int
	Err   error
}

func (e *ChapterError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("chapter %s: page %d: %v", e.Label, e.Page, e.Err)
	}
	return fmt.Sprintf("chapter %s: %v", e.Label, e.Err)
}

func (e *ChapterError) Unwrap() error {
	return e.Err
}
