package palettecache

import (
	"image"
	"image/color"
	"testing"

	"github.com/jmylchreest/domcolour/internal/colour"
)

func halfAndHalf(left, right color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if x < 8 {
				img.Set(x, y, left)
			} else {
				img.Set(x, y, right)
			}
		}
	}
	return img
}

func solid(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func pixelsOf(img image.Image) []colour.RGB {
	b := img.Bounds()
	out := make([]colour.RGB, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out = append(out, colour.ToRGB(img.At(x, y)))
		}
	}
	return out
}

func mustKey(t *testing.T, img image.Image, k int, alg colour.Algorithm, seed int64) string {
	t.Helper()
	key, err := Key(img, pixelsOf(img), k, alg, seed)
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	return key
}

func TestKey(t *testing.T) {
	a := halfAndHalf(color.Black, color.White)
	base := mustKey(t, a, 2, colour.AlgorithmKMeans, 1)

	if again := mustKey(t, a, 2, colour.AlgorithmKMeans, 1); again != base {
		t.Errorf("same image produced different keys: %s vs %s", base, again)
	}

	tests := []struct {
		name string
		key  string
	}{
		{"mirrored image", mustKey(t, halfAndHalf(color.White, color.Black), 2, colour.AlgorithmKMeans, 1)},
		{"cluster count", mustKey(t, a, 3, colour.AlgorithmKMeans, 1)},
		{"algorithm", mustKey(t, a, 2, colour.AlgorithmLloyd, 1)},
		{"seed", mustKey(t, a, 2, colour.AlgorithmKMeans, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.key == base {
				t.Errorf("different %s produced the same key %s", tt.name, base)
			}
		})
	}
}

func TestKeySeparatesColoursWithSameLayout(t *testing.T) {
	// Solid images all share one average hash; only their colour differs.
	red := mustKey(t, solid(color.RGBA{R: 255, A: 255}), 1, colour.AlgorithmKMeans, 1)
	blue := mustKey(t, solid(color.RGBA{B: 255, A: 255}), 1, colour.AlgorithmKMeans, 1)
	if red == blue {
		t.Fatalf("red and blue samples share key %s", red)
	}

	redHalves := mustKey(t, halfAndHalf(color.RGBA{R: 200, A: 255}, color.White), 2, colour.AlgorithmKMeans, 1)
	greenHalves := mustKey(t, halfAndHalf(color.RGBA{G: 200, A: 255}, color.White), 2, colour.AlgorithmKMeans, 1)
	if redHalves == greenHalves {
		t.Errorf("samples with the same luminance layout share key %s", redHalves)
	}
}

func TestCachePutGet(t *testing.T) {
	c := New(1<<16, 0)
	colours := colour.Annotate([]colour.RGB{{R: 10, G: 10, B: 10}, {R: 250, G: 250, B: 250}})

	if _, ok := c.Get("k"); ok {
		t.Fatal("Expected miss on empty cache")
	}
	if err := c.Put("k", colours); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok := c.Get("k")
	if !ok {
		t.Fatal("Expected hit after Put")
	}
	if len(got) != len(colours) {
		t.Fatalf("Get() returned %d colours, want %d", len(got), len(colours))
	}
	for i := range got {
		if got[i] != colours[i] {
			t.Errorf("colour %d = %+v, want %+v", i, got[i], colours[i])
		}
	}
}

func TestNilCacheIsDisabled(t *testing.T) {
	c := New(0, 0)
	if c != nil {
		t.Fatal("Expected nil cache for zero size")
	}
	if err := c.Put("k", nil); err != nil {
		t.Errorf("Put() on nil cache error = %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("nil cache should always miss")
	}
}
