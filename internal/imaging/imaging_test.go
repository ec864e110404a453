package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}

func TestProcessReencodesAsJPEG(t *testing.T) {
	data, mime, err := Process(encodePNG(t, 200, 100))
	if err != nil {
		t.Fatalf("Process() failed: %v", err)
	}
	if mime != "image/jpeg" {
		t.Fatalf("mime = %q, want image/jpeg", mime)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not decodable JPEG: %v", err)
	}
	if got := img.Bounds(); got.Dx() != 200 || got.Dy() != 100 {
		t.Fatalf("small image should keep its size, got %dx%d", got.Dx(), got.Dy())
	}
}

func TestProcessDownscales(t *testing.T) {
	data, _, err := Process(encodePNG(t, 2048, 1024))
	if err != nil {
		t.Fatalf("Process() failed: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != MaxDimension || bounds.Dy() != MaxDimension/2 {
		t.Fatalf("expected %dx%d, got %dx%d", MaxDimension, MaxDimension/2, bounds.Dx(), bounds.Dy())
	}
}

func TestProcessRejectsJunk(t *testing.T) {
	if _, _, err := Process([]byte("<html>not an image</html>")); err == nil {
		t.Fatal("expected an error for non-image data")
	}
	if _, _, err := Process([]byte{0x47, 0x49, 0x46, 0x38, 0x39, 0x61}); err == nil {
		t.Fatal("expected an error for an unsupported format")
	}
}
