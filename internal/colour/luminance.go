package colour

import (
	"cmp"
	"math"
	"slices"
)

// Weights applied to the squared channel values when computing luminance.
const (
	weightR = 0.299
	weightG = 0.587
	weightB = 0.114
)

// LuminanceColour is a centroid annotated with its luminance.
type LuminanceColour struct {
	RGB       RGB     `json:"rgb"`
	Luminance float64 `json:"luminance"`
}

// Luminance returns sqrt(0.299·R² + 0.587·G² + 0.114·B²) over the 0-255 channel values.
// The channels are squared rather than linearised; the result is a sort key in [0, 255],
// not a photometric quantity.
func Luminance(c RGB) float64 {
	r := float64(c.R)
	g := float64(c.G)
	b := float64(c.B)
	return math.Sqrt(weightR*r*r + weightG*g*g + weightB*b*b)
}

// Annotate pairs each centroid with its luminance, preserving order.
func Annotate(centroids []RGB) []LuminanceColour {
	out := make([]LuminanceColour, len(centroids))
	for i, c := range centroids {
		out[i] = LuminanceColour{RGB: c, Luminance: Luminance(c)}
	}
	return out
}

// SortByLuminance sorts colours ascending by luminance in place.
// The sort is stable: equal luminances keep their production order.
func SortByLuminance(colours []LuminanceColour) {
	slices.SortStableFunc(colours, func(a, b LuminanceColour) int {
		return cmp.Compare(a.Luminance, b.Luminance)
	})
}
