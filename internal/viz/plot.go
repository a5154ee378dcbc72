package viz

import (
	"fmt"
	"math"
	"sort"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/climemu/internal/sim"
)

// PlotOptions sizes a chart. A zero Height or Width picks a default.
type PlotOptions struct {
	Width, Height int
	Caption       string
	// Bounds pin the y axis, e.g. to a runner's TatmRange.
	Lower, Upper *float64
	Theme        Theme
}

func (o PlotOptions) graphOptions(series int) []asciigraph.Option {
	if o.Width <= 0 {
		o.Width = 80
	}
	if o.Height <= 0 {
		o.Height = 12
	}
	opts := []asciigraph.Option{
		asciigraph.Width(o.Width),
		asciigraph.Height(o.Height),
		asciigraph.Precision(2),
	}
	if o.Caption != "" {
		opts = append(opts, asciigraph.Caption(o.Caption))
	}
	if o.Lower != nil {
		opts = append(opts, asciigraph.LowerBound(*o.Lower))
	}
	if o.Upper != nil {
		opts = append(opts, asciigraph.UpperBound(*o.Upper))
	}
	// Legends index SeriesColors, so every series needs a color.
	colors := o.Theme.Series
	if len(colors) == 0 {
		colors = CurrentTheme.Series
	}
	if len(colors) == 0 {
		colors = []asciigraph.AnsiColor{asciigraph.Default}
	}
	cs := make([]asciigraph.AnsiColor, series)
	for i := range cs {
		cs[i] = colors[i%len(colors)]
	}
	return append(opts, asciigraph.SeriesColors(cs...))
}

// PlotTemperatures draws the atmosphere and ocean anomalies of one run.
func PlotTemperatures(res *sim.Result, opts PlotOptions) string {
	if opts.Caption == "" {
		opts.Caption = fmt.Sprintf("%s  %d-%g  temperature anomaly (°C)", res.Model, res.StartYear, lastOr(res.Years, 0))
	}
	g := opts.graphOptions(2)
	g = append(g, asciigraph.SeriesLegends("atmosphere", "ocean"))
	return asciigraph.PlotMany([][]float64{res.Tatm, res.Tocean}, g...)
}

// PlotSeries draws a single series with a caption.
func PlotSeries(values []float64, opts PlotOptions) string {
	if len(values) == 0 {
		return ""
	}
	return asciigraph.Plot(values, opts.graphOptions(1)...)
}

// PlotEnsemble overlays the atmospheric anomaly of several models. Series
// are drawn in name order so colors are stable.
func PlotEnsemble(runs map[string]sim.Temperatures, opts PlotOptions) string {
	names := make([]string, 0, len(runs))
	for name := range runs {
		names = append(names, name)
	}
	sort.Strings(names)

	data := make([][]float64, 0, len(names))
	legends := make([]string, 0, len(names))
	for _, name := range names {
		if t := runs[name].Tatm; len(t) > 0 {
			data = append(data, t)
			legends = append(legends, name)
		}
	}
	if len(data) == 0 {
		return ""
	}
	if opts.Caption == "" {
		opts.Caption = fmt.Sprintf("atmospheric temperature anomaly (°C), %d models", len(data))
	}
	g := opts.graphOptions(len(data))
	if len(legends) <= 8 {
		g = append(g, asciigraph.SeriesLegends(legends...))
	}
	return asciigraph.PlotMany(data, g...)
}

// RangeBounds converts a (lo, hi) range to plot bounds, padding a flat
// range so the axis stays readable.
func RangeBounds(lo, hi float64) (*float64, *float64) {
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return nil, nil
	}
	if hi-lo < 1e-9 {
		hi = lo + 1
	}
	return &lo, &hi
}

func lastOr(values []float64, fallback float64) float64 {
	if len(values) == 0 {
		return fallback
	}
	return values[len(values)-1]
}

func firstOr(values []float64, fallback float64) float64 {
	if len(values) == 0 {
		return fallback
	}
	return values[0]
}
