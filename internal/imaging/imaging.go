// Package imaging loads image files and prepares them for display: decode,
// EXIF orientation, and an aspect-preserving scale to the screen size.
package imaging

import (
	"fmt"
	"image"
	"io"
	"math"
	"os"

	"golang.org/x/image/draw"

	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// LoadFit reads an image file, corrects its orientation from EXIF metadata,
// and scales it so the larger dimension exactly fits maxW x maxH while
// preserving aspect ratio. Small images scale up.
func LoadFit(path string, maxW, maxH int) (*image.RGBA, error) {
	if maxW < 1 || maxH < 1 {
		return nil, fmt.Errorf("invalid target size %dx%d", maxW, maxH)
	}

	f, err := os.Open(path) //nolint:gosec // G304: path comes from the scanned image directory
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close() //nolint:errcheck

	orientation := readOrientation(f)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding image: %w", err)
	}

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	oriented := orient(img, orientation)

	bounds := oriented.Bounds()
	newW, newH := fitSize(bounds.Dx(), bounds.Dy(), maxW, maxH)
	if newW == bounds.Dx() && newH == bounds.Dy() {
		return oriented, nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), oriented, bounds, draw.Over, nil)
	return dst, nil
}

// fitSize calculates the dimensions that fit maxW x maxH while preserving
// the aspect ratio. The smaller of the two scale ratios applies in both
// directions, so one output dimension always matches its maximum.
func fitSize(origW, origH, maxW, maxH int) (int, int) {
	ratioW := float64(maxW) / float64(origW)
	ratioH := float64(maxH) / float64(origH)
	ratio := ratioW
	if ratioH < ratioW {
		ratio = ratioH
	}

	newW := int(math.Round(float64(origW) * ratio))
	newH := int(math.Round(float64(origH) * ratio))

	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	return newW, newH
}
