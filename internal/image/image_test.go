package image

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmylchreest/domcolour/internal/colour"
)

// writeTestPNG writes a w x h image whose left half is dark and right half light.
func writeTestPNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.Set(x, y, color.RGBA{R: 10, G: 10, B: 10, A: 255})
			} else {
				img.Set(x, y, color.RGBA{R: 250, G: 250, B: 250, A: 255})
			}
		}
	}

	path := filepath.Join(dir, "sample.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create test image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return path
}

func TestFileLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPNG(t, dir, 8, 4)

	img, err := NewFileLoader().Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 4 {
		t.Errorf("Expected 8x4 image, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestFileLoaderLoadErrors(t *testing.T) {
	dir := t.TempDir()
	corrupt := filepath.Join(dir, "corrupt.png")
	if err := os.WriteFile(corrupt, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	tests := []struct {
		name string
		path string
	}{
		{name: "empty path", path: ""},
		{name: "missing file", path: filepath.Join(dir, "missing.png")},
		{name: "directory", path: dir},
		{name: "undecodable", path: corrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileLoader().Load(tt.path)
			var readErr *ImageReadError
			if !errors.As(err, &readErr) {
				t.Fatalf("Load() error = %v, want *ImageReadError", err)
			}
			if readErr.Path != tt.path {
				t.Errorf("ImageReadError.Path = %q, want %q", readErr.Path, tt.path)
			}
		})
	}
}

type failingLoader struct{ err error }

func (l failingLoader) Load(string) (image.Image, error) { return nil, l.err }

func TestReadPixels(t *testing.T) {
	path := writeTestPNG(t, t.TempDir(), 4, 2)

	img, pixels, err := ReadPixels(NewFileLoader(), path)
	if err != nil {
		t.Fatalf("ReadPixels() error = %v", err)
	}
	if img == nil {
		t.Fatal("ReadPixels() returned nil image")
	}
	if len(pixels) != 8 {
		t.Fatalf("Expected 8 pixels, got %d", len(pixels))
	}

	dark, light := colour.RGB{R: 10, G: 10, B: 10}, colour.RGB{R: 250, G: 250, B: 250}
	want := []colour.RGB{dark, dark, light, light, dark, dark, light, light}
	for i, p := range pixels {
		if p != want[i] {
			t.Errorf("pixel %d = %v, want %v", i, p, want[i])
		}
	}
}

func TestReadPixelsWrapsLoaderErrors(t *testing.T) {
	_, _, err := ReadPixels(failingLoader{err: errors.New("boom")}, "x.png")
	var readErr *ImageReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("ReadPixels() error = %v, want *ImageReadError", err)
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("Expected %s to be created", dir)
	}

	// Idempotent.
	if err := EnsureDir(dir); err != nil {
		t.Errorf("EnsureDir() on existing dir error = %v", err)
	}
}

func TestEnsureDirFailure(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	for _, dir := range []string{"", file, filepath.Join(file, "child")} {
		var pathErr *PathError
		if err := EnsureDir(dir); !errors.As(err, &pathErr) {
			t.Errorf("EnsureDir(%q) error = %v, want *PathError", dir, err)
		}
	}
}

func TestSaveSnapshotRoundTrip(t *testing.T) {
	src, err := NewFileLoader().Load(writeTestPNG(t, t.TempDir(), 6, 6))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cacheDir := filepath.Join(t.TempDir(), "cache")
	path, err := SaveSnapshot(src, cacheDir, 256)
	if err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	if filepath.Base(path) != SnapshotName {
		t.Errorf("snapshot saved as %s, want %s", filepath.Base(path), SnapshotName)
	}

	_, pixels, err := ReadPixels(NewFileLoader(), path)
	if err != nil {
		t.Fatalf("ReadPixels() error = %v", err)
	}
	if len(pixels) != 36 {
		t.Errorf("Expected 36 pixels, got %d", len(pixels))
	}

	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the snapshot in the cache dir, found %d entries", len(entries))
	}
}

func TestSaveSnapshotErrors(t *testing.T) {
	if _, err := SaveSnapshot(nil, t.TempDir(), 0); err == nil {
		t.Error("Expected error for nil image")
	}
	if _, err := SaveSnapshot(image.NewRGBA(image.Rect(0, 0, 0, 0)), t.TempDir(), 0); err == nil {
		t.Error("Expected error for empty image")
	}
}

func TestDownscale(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		maxDimension int
		wantW, wantH int
	}{
		{name: "within limit", w: 100, h: 50, maxDimension: 256, wantW: 100, wantH: 50},
		{name: "disabled", w: 1000, h: 500, maxDimension: 0, wantW: 1000, wantH: 500},
		{name: "landscape", w: 1000, h: 500, maxDimension: 100, wantW: 100, wantH: 50},
		{name: "portrait", w: 200, h: 800, maxDimension: 100, wantW: 25, wantH: 100},
		{name: "sliver", w: 1000, h: 1, maxDimension: 10, wantW: 10, wantH: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Downscale(image.NewRGBA(image.Rect(0, 0, tt.w, tt.h)), tt.maxDimension)
			if got.Bounds().Dx() != tt.wantW || got.Bounds().Dy() != tt.wantH {
				t.Errorf("Downscale() = %dx%d, want %dx%d", got.Bounds().Dx(), got.Bounds().Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestIsImageFile(t *testing.T) {
	for _, p := range []string{"a.png", "b.JPG", "c.webp", "d.tiff"} {
		if !IsImageFile(p) {
			t.Errorf("IsImageFile(%q) = false, want true", p)
		}
	}
	for _, p := range []string{"a.txt", "noext", "b.png.bak"} {
		if IsImageFile(p) {
			t.Errorf("IsImageFile(%q) = true, want false", p)
		}
	}
}

func TestValidateImagePath(t *testing.T) {
	dir := t.TempDir()
	if err := ValidateImagePath(writeTestPNG(t, dir, 2, 2)); err != nil {
		t.Errorf("ValidateImagePath() error = %v", err)
	}
	if err := ValidateImagePath(filepath.Join(dir, "nope.png")); err == nil {
		t.Error("Expected error for missing file")
	}
	if err := ValidateImagePath(dir); err == nil {
		t.Error("Expected error for directory")
	}
}
