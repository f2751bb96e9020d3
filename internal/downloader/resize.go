package downloader

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

// resizeToHeight scales the image at path to targetHeight, keeping the
// aspect ratio and the original encoding, and writes the result next to
// the original. Returns the path to hand to the assembler. A
// non-positive height is the no-op path substitution: the original file
// is used unchanged.
func resizeToHeight(path string, targetHeight int) (string, error) {
	if targetHeight <= 0 {
		return path, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	img, format, err := image.Decode(f)
	_ = f.Close()
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}

	b := img.Bounds()
	width := int(float64(b.Dx())*float64(targetHeight)/float64(b.Dy()) + 0.5)
	if width < 1 {
		width = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, targetHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	resized := resizedPath(path)
	out, err := os.Create(resized)
	if err != nil {
		return "", err
	}

	switch format {
	case "jpeg":
		err = jpeg.Encode(out, dst, &jpeg.Options{Quality: 90})
	case "png":
		err = png.Encode(out, dst)
	case "gif":
		err = gif.Encode(out, dst, nil)
	default:
		err = fmt.Errorf("unsupported image format %q", format)
	}

	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(resized)
		return "", fmt.Errorf("resize %s: %w", path, err)
	}

	return resized, nil
}

// resizedPath keeps the extension last so the encoding stays obvious:
// 001.jpg -> 001.res.jpg.
func resizedPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".res" + ext
}
