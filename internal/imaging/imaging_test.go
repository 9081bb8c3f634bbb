package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// makeJPEG writes a JPEG file of the given dimensions and returns its path.
func makeJPEG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encoding test jpeg: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing test jpeg: %v", err)
	}
	return path
}

// makePNG writes a PNG file of the given dimensions and returns its path.
func makePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 64, A: 200})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test png: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing test png: %v", err)
	}
	return path
}

func TestFitSize(t *testing.T) {
	tests := []struct {
		name         string
		origW, origH int
		maxW, maxH   int
		wantW, wantH int
	}{
		{"downscale landscape", 4000, 3000, 1920, 1080, 1440, 1080},
		{"downscale portrait", 3000, 4000, 1920, 1080, 810, 1080},
		{"upscale small image", 960, 540, 1920, 1080, 1920, 1080},
		{"exact fit unchanged", 1920, 1080, 1920, 1080, 1920, 1080},
		{"wide panorama", 8000, 1000, 1920, 1080, 1920, 240},
		{"tall strip", 100, 4000, 1920, 1080, 27, 1080},
		{"extreme ratio clamps to 1", 10000, 1, 100, 100, 100, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := fitSize(tt.origW, tt.origH, tt.maxW, tt.maxH)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("fitSize(%d, %d, %d, %d) = %dx%d, want %dx%d",
					tt.origW, tt.origH, tt.maxW, tt.maxH, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestLoadFit_DownscaleJPEG(t *testing.T) {
	dir := t.TempDir()
	path := makeJPEG(t, dir, "big.jpg", 1000, 500)

	img, err := LoadFit(path, 200, 200)
	if err != nil {
		t.Fatalf("LoadFit: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 200 || b.Dy() != 100 {
		t.Errorf("got %dx%d, want 200x100", b.Dx(), b.Dy())
	}
}

func TestLoadFit_UpscaleSmallImage(t *testing.T) {
	dir := t.TempDir()
	path := makePNG(t, dir, "small.png", 50, 50)

	img, err := LoadFit(path, 300, 200)
	if err != nil {
		t.Fatalf("LoadFit: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 200 || b.Dy() != 200 {
		t.Errorf("got %dx%d, want 200x200", b.Dx(), b.Dy())
	}
}

func TestLoadFit_GIF(t *testing.T) {
	dir := t.TempDir()
	src := image.NewPaletted(image.Rect(0, 0, 40, 20), color.Palette{
		color.White, color.Black,
	})
	var buf bytes.Buffer
	if err := gif.Encode(&buf, src, nil); err != nil {
		t.Fatalf("encoding test gif: %v", err)
	}
	path := filepath.Join(dir, "anim.gif")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing test gif: %v", err)
	}

	img, err := LoadFit(path, 80, 80)
	if err != nil {
		t.Fatalf("LoadFit: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 80 || b.Dy() != 40 {
		t.Errorf("got %dx%d, want 80x40", b.Dx(), b.Dy())
	}
}

func TestLoadFit_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.jpg")
	if err := os.WriteFile(path, []byte("this is not a jpeg"), 0o644); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}

	if _, err := LoadFit(path, 100, 100); err == nil {
		t.Error("expected error for corrupt file")
	}
}

func TestLoadFit_MissingFile(t *testing.T) {
	if _, err := LoadFit(filepath.Join(t.TempDir(), "gone.jpg"), 100, 100); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReadOrientation_NoEXIF(t *testing.T) {
	dir := t.TempDir()
	path := makeJPEG(t, dir, "plain.jpg", 10, 10)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening: %v", err)
	}
	defer f.Close() //nolint:errcheck

	if o := readOrientation(f); o != 1 {
		t.Errorf("orientation = %d, want 1 for JPEG without EXIF", o)
	}
}

func TestOrient(t *testing.T) {
	// 3x2 source with a unique color per pixel: R encodes x, G encodes y.
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			src.SetRGBA(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), A: 255})
		}
	}

	at := func(img *image.RGBA, x, y int) (int, int) {
		c := img.RGBAAt(x, y)
		return int(c.R) / 10, int(c.G) / 10
	}

	tests := []struct {
		orientation  int
		wantW, wantH int
		// source coordinates expected at dst (0,0) and (wantW-1, wantH-1)
		firstX, firstY int
		lastX, lastY   int
	}{
		{1, 3, 2, 0, 0, 2, 1},
		{2, 3, 2, 2, 0, 0, 1},
		{3, 3, 2, 2, 1, 0, 0},
		{4, 3, 2, 0, 1, 2, 0},
		{5, 2, 3, 0, 0, 2, 1},
		{6, 2, 3, 0, 1, 2, 0},
		{7, 2, 3, 2, 1, 0, 0},
		{8, 2, 3, 2, 0, 0, 1},
	}

	for _, tt := range tests {
		got := orient(src, tt.orientation)
		b := got.Bounds()
		if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
			t.Errorf("orientation %d: size %dx%d, want %dx%d",
				tt.orientation, b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			continue
		}
		if x, y := at(got, 0, 0); x != tt.firstX || y != tt.firstY {
			t.Errorf("orientation %d: dst(0,0) came from src(%d,%d), want src(%d,%d)",
				tt.orientation, x, y, tt.firstX, tt.firstY)
		}
		if x, y := at(got, tt.wantW-1, tt.wantH-1); x != tt.lastX || y != tt.lastY {
			t.Errorf("orientation %d: dst corner came from src(%d,%d), want src(%d,%d)",
				tt.orientation, x, y, tt.lastX, tt.lastY)
		}
	}
}

func TestOrient_PreservesPixelCount(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 6))
	for o := 1; o <= 8; o++ {
		got := orient(src, o)
		if got.Bounds().Dx()*got.Bounds().Dy() != 24 {
			t.Errorf("orientation %d lost pixels: %v", o, got.Bounds())
		}
	}
}
