package downloader

import (
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
}

func writeJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, image.NewGray(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatal(err)
	}
}

func decodeFile(t *testing.T, path string) (image.Image, string) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, format, err := image.Decode(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return img, format
}

func TestResizeToHeight_PNG(t *testing.T) {
	src := filepath.Join(t.TempDir(), "page.png")
	writePNG(t, src, 100, 200)

	out, err := resizeToHeight(src, 50)
	if err != nil {
		t.Fatalf("resizeToHeight() error = %v", err)
	}
	if out == src {
		t.Fatal("resize must write a sibling file, not reuse the original")
	}
	if want := filepath.Join(filepath.Dir(src), "page.res.png"); out != want {
		t.Errorf("resized path = %q, want %q", out, want)
	}

	img, format := decodeFile(t, out)
	if format != "png" {
		t.Errorf("format = %q, want original encoding png", format)
	}
	if b := img.Bounds(); b.Dy() != 50 || b.Dx() != 25 {
		t.Errorf("bounds = %dx%d, want 25x50 (aspect preserved)", b.Dx(), b.Dy())
	}
}

func TestResizeToHeight_JPEG(t *testing.T) {
	src := filepath.Join(t.TempDir(), "page.jpg")
	writeJPEG(t, src, 64, 128)

	out, err := resizeToHeight(src, 32)
	if err != nil {
		t.Fatalf("resizeToHeight() error = %v", err)
	}

	img, format := decodeFile(t, out)
	if format != "jpeg" {
		t.Errorf("format = %q, want original encoding jpeg", format)
	}
	if b := img.Bounds(); b.Dy() != 32 || b.Dx() != 16 {
		t.Errorf("bounds = %dx%d, want 16x32", b.Dx(), b.Dy())
	}
}

func TestResizeToHeight_NoHeightIsNoop(t *testing.T) {
	src := filepath.Join(t.TempDir(), "page.png")
	writePNG(t, src, 100, 200)

	out, err := resizeToHeight(src, 0)
	if err != nil {
		t.Fatalf("resizeToHeight() error = %v", err)
	}
	if out != src {
		t.Errorf("no requested height must substitute the original path, got %q", out)
	}

	// Nothing else may appear next to the original.
	entries, err := os.ReadDir(filepath.Dir(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected untouched directory, found %d entries", len(entries))
	}
}

func TestResizeToHeight_MissingFile(t *testing.T) {
	if _, err := resizeToHeight(filepath.Join(t.TempDir(), "nope.png"), 50); err == nil {
		t.Error("expected error for missing file")
	}
}
