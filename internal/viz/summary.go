package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/climemu/internal/sim"
)

// RenderSummary formats the headline numbers of a run as a styled panel.
func RenderSummary(res *sim.Result) string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%s  %d-%g", res.Model, res.StartYear, lastOr(res.Years, float64(res.StartYear)))))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(MetricLabel.Render(label) + MetricValue.Render(value) + "\n")
	}
	row("steps", fmt.Sprintf("%d (dt %g)", res.Steps(), res.Dt))
	row("tatm initial/final", fmt.Sprintf("%.3f / %.3f °C", firstOr(res.Tatm, 0), lastOr(res.Tatm, 0)))
	row("tocean initial/final", fmt.Sprintf("%.3f / %.3f °C", firstOr(res.Tocean, 0), lastOr(res.Tocean, 0)))
	row("m_at final", fmt.Sprintf("%.1f GtC", lastOr(res.MAt, 0)))

	names := make([]string, 0, len(res.Metrics))
	for name := range res.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		row(name, fmt.Sprintf("%.4g", res.Metrics[name]))
	}

	b.WriteString(MetricLabel.Render("tatm") + SparklineChart(res.Tatm, 48))
	return Panel.Render(b.String())
}
