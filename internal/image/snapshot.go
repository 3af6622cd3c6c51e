package image

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
)

// SnapshotName is the file name a sample is persisted under inside the cache directory.
const SnapshotName = "temp_img.png"

var errEmptyImage = errors.New("image has no pixels")

// PathError reports a cache directory that is missing and cannot be created.
type PathError struct {
	Dir string
	Err error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("cache directory %q unavailable: %v", e.Dir, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// DefaultCacheDir returns the default temporary image cache directory.
func DefaultCacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		// Fallback to home directory if cache dir not available.
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine cache directory: %w", err)
		}
		return filepath.Join(home, ".cache", "domcolour"), nil
	}
	return filepath.Join(cacheDir, "domcolour"), nil
}

// EnsureDir creates dir if it does not exist.
func EnsureDir(dir string) error {
	if dir == "" {
		return &PathError{Dir: dir, Err: errors.New("no cache directory configured")}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { // #nosec G301 - Cache directory needs standard permissions
		return &PathError{Dir: dir, Err: err}
	}
	info, err := os.Stat(dir)
	if err != nil {
		return &PathError{Dir: dir, Err: err}
	}
	if !info.IsDir() {
		return &PathError{Dir: dir, Err: errors.New("not a directory")}
	}
	return nil
}

// Downscale returns img resized so its longest side is at most maxDimension.
// Images already within the limit, or a maxDimension of 0, are returned unchanged.
func Downscale(img image.Image, maxDimension int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxDimension <= 0 || (w <= maxDimension && h <= maxDimension) {
		return img
	}

	scale := float64(maxDimension) / float64(max(w, h))
	dw := max(int(float64(w)*scale), 1)
	dh := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}

// SaveSnapshot persists img into dir as SnapshotName and returns its path.
// The file is written to a temporary name, synced and renamed, so a reader
// never observes a partially written snapshot.
func SaveSnapshot(img image.Image, dir string, maxDimension int) (string, error) {
	if img == nil {
		return "", errors.New("snapshot image cannot be nil")
	}
	if img.Bounds().Empty() {
		return "", errEmptyImage
	}
	if err := EnsureDir(dir); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if err := png.Encode(tmp, Downscale(img, maxDimension)); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close snapshot: %w", err)
	}

	path := filepath.Join(dir, SnapshotName)
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move snapshot into place: %w", err)
	}

	return path, nil
}
