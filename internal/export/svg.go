// Package export renders run trajectories as standalone SVG charts.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/san-kum/climemu/internal/sim"
	"gonum.org/v1/gonum/floats"
)

// Line is one named series drawn against shared x values.
type Line struct {
	Name  string
	Color string
	Y     []float64
}

// ChartOptions sizes a chart. Zero values pick 800x400.
type ChartOptions struct {
	Width, Height int
	Title         string
	YLabel        string
}

var palette = []string{"#ff6b35", "#4ecdc4", "#ffd23f", "#ee4266", "#3bceac", "#540d6e", "#0ead69", "#a8dadc"}

const margin = 48.0

// ResultToSVG draws the atmosphere and ocean anomalies of res.
func ResultToSVG(res *sim.Result, opts ChartOptions) string {
	if opts.Title == "" {
		opts.Title = fmt.Sprintf("%s temperature anomaly", res.Model)
	}
	if opts.YLabel == "" {
		opts.YLabel = "°C"
	}
	return Chart(res.Years, []Line{
		{Name: "atmosphere", Color: palette[0], Y: res.Tatm},
		{Name: "ocean", Color: palette[1], Y: res.Tocean},
	}, opts)
}

// EnsembleToSVG overlays the atmospheric anomaly of several runs in model
// name order.
func EnsembleToSVG(results []*sim.Result, opts ChartOptions) string {
	if len(results) == 0 {
		return ""
	}
	sorted := append([]*sim.Result(nil), results...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Model < sorted[j].Model })

	lines := make([]Line, len(sorted))
	for i, r := range sorted {
		lines[i] = Line{Name: r.Model, Color: palette[i%len(palette)], Y: r.Tatm}
	}
	if opts.Title == "" {
		opts.Title = fmt.Sprintf("atmospheric temperature anomaly, %d models", len(sorted))
	}
	if opts.YLabel == "" {
		opts.YLabel = "°C"
	}
	return Chart(sorted[0].Years, lines, opts)
}

// WriteResultSVG writes ResultToSVG(res) to w.
func WriteResultSVG(w io.Writer, res *sim.Result, opts ChartOptions) error {
	_, err := io.WriteString(w, ResultToSVG(res, opts))
	return err
}

// Chart draws lines against x with padded bounds, axis labels and a
// legend. Lines shorter than x are drawn over their own length.
func Chart(x []float64, lines []Line, opts ChartOptions) string {
	if len(x) < 2 || len(lines) == 0 {
		return ""
	}
	width, height := float64(opts.Width), float64(opts.Height)
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 400
	}

	minX, maxX := floats.Min(x), floats.Max(x)
	minY, maxY := 0.0, 0.0
	first := true
	for _, l := range lines {
		if len(l.Y) == 0 {
			continue
		}
		lo, hi := floats.Min(l.Y), floats.Max(l.Y)
		if first || lo < minY {
			minY = lo
		}
		if first || hi > maxY {
			maxY = hi
		}
		first = false
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	plotW := width - 2*margin
	plotH := height - 2*margin
	px := func(v float64) float64 { return margin + (v-minX)/rangeX*plotW }
	py := func(v float64) float64 { return margin + plotH - (v-minY)/rangeY*plotH }

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)
	if opts.Title != "" {
		fmt.Fprintf(&sb, `<text x="%.1f" y="24" fill="#e0e0e0" font-family="monospace" font-size="14" text-anchor="middle">%s</text>
`, width/2, escape(opts.Title))
	}

	// axes
	fmt.Fprintf(&sb, `<g stroke="#555" stroke-width="1"><line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/><line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/></g>
`, margin, margin+plotH, margin+plotW, margin+plotH, margin, margin, margin, margin+plotH)
	fmt.Fprintf(&sb, `<g fill="#999" font-family="monospace" font-size="11">
<text x="%.1f" y="%.1f">%g</text><text x="%.1f" y="%.1f" text-anchor="end">%g</text>
<text x="4" y="%.1f">%.2f</text><text x="4" y="%.1f">%.2f</text>
<text x="4" y="%.1f">%s</text>
</g>
`, margin, height-margin/2, minX, margin+plotW, height-margin/2, maxX,
		margin+plotH, minY, margin+10, maxY, height/2, escape(opts.YLabel))

	for i, l := range lines {
		n := min(len(l.Y), len(x))
		if n < 2 {
			continue
		}
		color := l.Color
		if color == "" {
			color = palette[i%len(palette)]
		}
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, color)
		for j := 0; j < n; j++ {
			if j > 0 {
				sb.WriteString(" L")
			}
			fmt.Fprintf(&sb, "%.1f,%.1f", px(x[j]), py(l.Y[j]))
		}
		sb.WriteString("\"/>\n")
		fmt.Fprintf(&sb, `<text x="%.1f" y="%.1f" fill="%s" font-family="monospace" font-size="11">%s</text>
`, margin+plotW-140, margin+14*float64(i+1), color, escape(l.Name))
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;").Replace(s)
}
