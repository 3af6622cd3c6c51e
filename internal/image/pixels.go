package image

import (
	"errors"
	"image"

	"github.com/jmylchreest/domcolour/internal/colour"
)

// Pixels flattens img into one RGB triple per pixel, row-major.
func Pixels(img image.Image) []colour.RGB {
	bounds := img.Bounds()
	pixels := make([]colour.RGB, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			pixels = append(pixels, colour.ToRGB(img.At(x, y)))
		}
	}
	return pixels
}

// ReadPixels loads path with loader and returns both the decoded image and its pixels.
func ReadPixels(loader Loader, path string) (image.Image, []colour.RGB, error) {
	img, err := loader.Load(path)
	if err != nil {
		var readErr *ImageReadError
		if errors.As(err, &readErr) {
			return nil, nil, err
		}
		return nil, nil, &ImageReadError{Path: path, Err: err}
	}
	pixels := Pixels(img)
	if len(pixels) == 0 {
		return nil, nil, &ImageReadError{Path: path, Err: errEmptyImage}
	}
	return img, pixels, nil
}
