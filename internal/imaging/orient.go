package imaging

import (
	"image"
	"io"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
	"golang.org/x/image/draw"
)

func init() {
	// Register maker note handlers
	exif.RegisterParsers(mknote.All...)
}

// readOrientation returns the EXIF orientation value (1-8), or 1 when the
// file carries no usable EXIF data.
func readOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

// orient applies the EXIF orientation transform and converts to RGBA.
// Values per the EXIF spec: 1 normal, 2 mirrored horizontal, 3 rotated 180,
// 4 mirrored vertical, 5 transposed, 6 rotated 90 CW, 7 transversed,
// 8 rotated 270 CW.
func orient(img image.Image, orientation int) *image.RGBA {
	src := toRGBA(img)
	if orientation <= 1 || orientation > 8 {
		return src
	}

	w := src.Bounds().Dx()
	h := src.Bounds().Dy()

	// Orientations 5-8 swap width and height.
	dw, dh := w, h
	if orientation >= 5 {
		dw, dh = h, w
	}

	var mapSrc func(x, y int) (int, int)
	switch orientation {
	case 2:
		mapSrc = func(x, y int) (int, int) { return w - 1 - x, y }
	case 3:
		mapSrc = func(x, y int) (int, int) { return w - 1 - x, h - 1 - y }
	case 4:
		mapSrc = func(x, y int) (int, int) { return x, h - 1 - y }
	case 5:
		mapSrc = func(x, y int) (int, int) { return y, x }
	case 6:
		mapSrc = func(x, y int) (int, int) { return y, h - 1 - x }
	case 7:
		mapSrc = func(x, y int) (int, int) { return w - 1 - y, h - 1 - x }
	case 8:
		mapSrc = func(x, y int) (int, int) { return w - 1 - y, x }
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			sx, sy := mapSrc(x, y)
			dst.SetRGBA(x, y, src.RGBAAt(sx, sy))
		}
	}
	return dst
}

// toRGBA converts any decoded image to an RGBA image anchored at the origin.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(dst, image.Point{}, img, b, draw.Src, nil)
	return dst
}
