package cli

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/jmylchreest/domcolour/internal/colour"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatTSV   = "tsv"
	formatJSON  = "json"
)

var outputFormats = []string{formatTable, formatTSV, formatJSON}

// swatchWidth is the width of a --preview swatch in table output.
const swatchWidth = 6

// rampWriter is the extract command's ramp sink. It keeps the last ramp it
// was given and renders it once the session is over.
type rampWriter struct {
	format  string
	preview bool

	ramp  *colour.Ramp
	width int
}

func newRampWriter(format string, preview bool) (*rampWriter, error) {
	if !slices.Contains(outputFormats, format) {
		return nil, fmt.Errorf("unsupported format: %s (supported: %s)", format, strings.Join(outputFormats, ", "))
	}
	return &rampWriter{format: format, preview: preview}, nil
}

// WriteRamp stores r for rendering.
func (w *rampWriter) WriteRamp(r *colour.Ramp) error {
	w.ramp = r
	return nil
}

// Resize records how many rows the ramp has.
func (w *rampWriter) Resize(width int) error {
	if w.ramp != nil && width != w.ramp.Len() {
		return fmt.Errorf("ramp width %d does not match %d entries", width, w.ramp.Len())
	}
	w.width = width
	return nil
}

// Render writes the stored ramp to out in the configured format.
// Nothing is written when no ramp was delivered.
func (w *rampWriter) Render(out io.Writer) error {
	if w.ramp == nil {
		return nil
	}

	var text string
	switch w.format {
	case formatTSV:
		text = formatRampTSV(w.ramp)
	case formatJSON:
		data, err := w.ramp.ToJSON()
		if err != nil {
			return fmt.Errorf("failed to convert to JSON: %w", err)
		}
		text = string(data) + "\n"
	default:
		text = formatRampTable(w.ramp, w.preview)
	}

	if _, err := io.WriteString(out, text); err != nil {
		return fmt.Errorf("failed to write ramp: %w", err)
	}
	return nil
}

// formatRampTSV renders the ramp as tab separated values with a header line,
// at full float precision.
func formatRampTSV(r *colour.Ramp) string {
	var b strings.Builder
	b.WriteString(strings.Join(r.Header(), "\t"))
	b.WriteString("\n")
	for _, row := range r.Rows() {
		b.WriteString(strings.Join(row, "\t"))
		b.WriteString("\n")
	}
	return b.String()
}

// formatRampTable renders the ramp as an aligned table. With preview each row
// gets its hex code and swatch, and the whole ramp is shown as one strip below.
func formatRampTable(r *colour.Ramp, preview bool) string {
	headers := r.Header()
	if preview {
		headers = append(headers, "hex", "swatch")
	}

	table := NewTable(headers)
	for i := range colour.RampHeader {
		table.AlignRight(i)
	}

	for _, e := range r.Entries {
		row := []string{
			formatFloat(e.Position),
			formatFloat(e.R),
			formatFloat(e.G),
			formatFloat(e.B),
			formatFloat(e.Luminosity),
			formatFloat(e.Alpha),
		}
		if preview {
			rgb := e.RGB()
			row = append(row, rgb.Hex(), colour.ColourPreview(rgb, swatchWidth))
		}
		table.AddRow(row)
	}

	out := table.Render()
	if preview && r.Len() > 0 {
		out += "\n" + colour.RampStrip(r, swatchWidth) + "\n"
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
