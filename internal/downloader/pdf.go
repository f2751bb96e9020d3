package downloader

import (
	"fmt"
	"image"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// The PDF format caps a page at 200 inches per side (14400pt). With the
// default layout a page is sized to the image at one pixel per point,
// so sources that report a trivial density and very tall strip scans
// can overflow the ceiling.
const maxPageDim = 14400.0

// fixedPageHeight is the fallback page height: 7 inches in points, the
// usual trim height of a printed tankobon.
const fixedPageHeight = 504.0

// AssemblePDF writes one PDF with one page per image, pages sized to
// the image, in the order given. Fails with ErrPageTooLarge (carrying
// the page index) when any page would exceed the format ceiling; no
// output file is produced in that case.
func AssemblePDF(paths []string, out string) error {
	for i, p := range paths {
		w, h, err := imageSize(p)
		if err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}
		if float64(w) > maxPageDim || float64(h) > maxPageDim {
			return fmt.Errorf("page %d (%dx%d px): %w", i+1, w, h, ErrPageTooLarge)
		}
	}

	if err := removeStale(out); err != nil {
		return err
	}

	return api.ImportImagesFile(paths, out, nil, model.NewDefaultConfiguration())
}

// AssemblePDFFixedHeight is the alternate layout: every page is fixed
// at a 7 inch physical height with the width derived from the image's
// aspect ratio, image scaled to fit, no auto-orientation. The importer
// applies one page geometry per call, so pages are appended one at a
// time.
func AssemblePDFFixedHeight(paths []string, out string) error {
	if err := removeStale(out); err != nil {
		return err
	}

	conf := model.NewDefaultConfiguration()
	for i, p := range paths {
		w, h, err := imageSize(p)
		if err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}

		pageW := fixedPageHeight * float64(w) / float64(h)
		desc := fmt.Sprintf("dim:%.2f %.2f, pos:c, sc:1.0 rel", pageW, fixedPageHeight)
		imp, err := api.Import(desc, types.POINTS)
		if err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}

		if err := importPage(p, out, imp, conf); err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}
	}

	return nil
}

// importPage appends a single image page; ImportImagesFile appends to
// out when it already exists.
func importPage(path, out string, imp *pdfcpu.Import, conf *model.Configuration) error {
	return api.ImportImagesFile([]string{path}, out, imp, conf)
}

// removeStale drops a leftover document from a previous attempt so the
// importer starts a fresh file instead of appending to it.
func removeStale(out string) error {
	if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		_ = f.Close()
	}()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode %s: %w", path, err)
	}

	return cfg.Width, cfg.Height, nil
}
