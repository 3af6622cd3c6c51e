package colour

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrEmptyInput is returned by BuildRamp when there are no colours to lay out.
var ErrEmptyInput = errors.New("ramp: no colours supplied")

// RampHeader is the column layout of a ramp table.
var RampHeader = []string{"pos", "r", "g", "b", "luminosity", "a"}

// Bounds is an inclusive normalised luminance range.
type Bounds struct {
	Lo float64 `json:"lo" yaml:"lo"`
	Hi float64 `json:"hi" yaml:"hi"`
}

// FullRange keeps every colour.
var FullRange = Bounds{Lo: 0, Hi: 1}

// Validate checks 0 <= lo <= hi <= 1.
func (b Bounds) Validate() error {
	if math.IsNaN(b.Lo) || math.IsNaN(b.Hi) {
		return fmt.Errorf("luminosity bounds must be numbers, got [%g, %g]", b.Lo, b.Hi)
	}
	if b.Lo < 0 || b.Hi > 1 {
		return fmt.Errorf("luminosity bounds must lie within [0, 1], got [%g, %g]", b.Lo, b.Hi)
	}
	if b.Lo > b.Hi {
		return fmt.Errorf("luminosity lower bound %g exceeds upper bound %g", b.Lo, b.Hi)
	}
	return nil
}

// Contains reports whether v lies within the bounds, inclusive at both ends.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Lo && v <= b.Hi
}

// RampEntry is a single positioned colour stop. All fields are normalised to [0, 1].
type RampEntry struct {
	Position   float64 `json:"pos"`
	R          float64 `json:"r"`
	G          float64 `json:"g"`
	B          float64 `json:"b"`
	Luminosity float64 `json:"luminosity"`
	Alpha      float64 `json:"a"`
}

// RGB converts the normalised entry back to 8-bit channels.
func (e RampEntry) RGB() RGB {
	return point3D{
		R: math.Round(e.R * maxChannel),
		G: math.Round(e.G * maxChannel),
		B: math.Round(e.B * maxChannel),
	}.rgb()
}

// Row returns the entry formatted in RampHeader order.
func (e RampEntry) Row() []string {
	values := []float64{e.Position, e.R, e.G, e.B, e.Luminosity, e.Alpha}
	row := make([]string, len(values))
	for i, v := range values {
		row[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return row
}

// Ramp is an ordered table of colour stops, darkest first.
type Ramp struct {
	Entries []RampEntry `json:"entries"`
}

// Len returns the number of colours that survived filtering.
func (r *Ramp) Len() int {
	return len(r.Entries)
}

// Header returns the ramp's column names.
func (r *Ramp) Header() []string {
	return append([]string(nil), RampHeader...)
}

// Rows returns every entry formatted in RampHeader order.
func (r *Ramp) Rows() [][]string {
	rows := make([][]string, len(r.Entries))
	for i, e := range r.Entries {
		rows[i] = e.Row()
	}
	return rows
}

// rampJSON is the JSON form of a ramp.
type rampJSON struct {
	Header  []string    `json:"header"`
	Count   int         `json:"count"`
	Entries []RampEntry `json:"entries"`
}

// ToJSON converts the ramp to indented JSON.
func (r *Ramp) ToJSON() ([]byte, error) {
	entries := r.Entries
	if entries == nil {
		entries = []RampEntry{}
	}
	return json.MarshalIndent(rampJSON{
		Header:  r.Header(),
		Count:   r.Len(),
		Entries: entries,
	}, "", "  ")
}

// BuildRamp normalises luminance-sorted colours, drops those whose normalised
// luminance falls outside bounds and positions the survivors evenly across [0, 1].
// A single survivor is placed at 0.
func BuildRamp(sorted []LuminanceColour, bounds Bounds) (*Ramp, error) {
	if len(sorted) == 0 {
		return nil, ErrEmptyInput
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}

	kept := make([]RampEntry, 0, len(sorted))
	for _, c := range sorted {
		lum := c.Luminance / maxChannel
		if !bounds.Contains(lum) {
			continue
		}
		kept = append(kept, RampEntry{
			R:          float64(c.RGB.R) / maxChannel,
			G:          float64(c.RGB.G) / maxChannel,
			B:          float64(c.RGB.B) / maxChannel,
			Luminosity: lum,
			Alpha:      1,
		})
	}

	if m := len(kept); m > 1 {
		for i := range kept {
			kept[i].Position = float64(i) / float64(m-1)
		}
	}

	return &Ramp{Entries: kept}, nil
}
