package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"shipsense/internal/viz"
)

var (
	chartTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	chartAxisStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	chartNoteStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("214"))
)

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// renderChart sketches a chart spec for the terminal. Line charts
// become sparklines (one per series, gaps where data is missing);
// bar charts become horizontal bars.
func renderChart(spec *viz.ChartSpec, width int) string {
	if spec == nil {
		return ""
	}
	if width < 24 {
		width = 24
	}

	var b strings.Builder
	b.WriteString(chartTitleStyle.Render(spec.Title))
	b.WriteString("\n")

	switch spec.Kind {
	case viz.KindBar:
		renderBars(&b, spec, width)
	default:
		renderLines(&b, spec, width)
	}

	for _, a := range spec.Annotations {
		b.WriteString(chartNoteStyle.Render("◆ " + a.Label))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderLines(b *strings.Builder, spec *viz.ChartSpec, width int) {
	for _, s := range spec.Series {
		lo, hi, ok := seriesBounds(s)
		if !ok {
			fmt.Fprintf(b, "%s: no data\n", s.Name)
			continue
		}

		points := downsample(s.Points, width)
		var line strings.Builder
		for _, p := range points {
			if p.V == nil {
				line.WriteRune(' ')
				continue
			}
			line.WriteRune(sparkRune(*p.V, lo, hi))
		}

		fmt.Fprintf(b, "%s\n", line.String())
		label := fmt.Sprintf("%s  %.2f..%.2f %s", s.Name, lo, hi, s.Unit)
		b.WriteString(chartAxisStyle.Render(label))
		b.WriteString("\n")
	}

	if len(spec.Series) > 0 && len(spec.Series[0].Points) > 0 {
		points := spec.Series[0].Points
		first := time.Unix(points[0].T, 0).UTC().Format("Jan 2 15:04")
		last := time.Unix(points[len(points)-1].T, 0).UTC().Format("Jan 2 15:04")
		b.WriteString(chartAxisStyle.Render(first + " .. " + last))
		b.WriteString("\n")
	}
}

func renderBars(b *strings.Builder, spec *viz.ChartSpec, width int) {
	maxVal := 0.0
	labelWidth := 0
	for _, bar := range spec.Bars {
		if bar.Value > maxVal {
			maxVal = bar.Value
		}
		if len(bar.Label) > labelWidth {
			labelWidth = len(bar.Label)
		}
	}

	barSpace := width - labelWidth - 12
	if barSpace < 8 {
		barSpace = 8
	}
	for _, bar := range spec.Bars {
		n := 0
		if maxVal > 0 && bar.Value > 0 {
			n = int(bar.Value / maxVal * float64(barSpace))
			if n == 0 {
				n = 1
			}
		}
		fmt.Fprintf(b, "%-*s %s %.2f %s\n",
			labelWidth, bar.Label, strings.Repeat("█", n), bar.Value, spec.YLabel)
	}
}

func seriesBounds(s viz.Series) (lo, hi float64, ok bool) {
	for _, p := range s.Points {
		if p.V == nil {
			continue
		}
		if !ok || *p.V < lo {
			lo = *p.V
		}
		if !ok || *p.V > hi {
			hi = *p.V
		}
		ok = true
	}
	return lo, hi, ok
}

func sparkRune(v, lo, hi float64) rune {
	if hi == lo {
		return sparkLevels[len(sparkLevels)/2]
	}
	idx := int((v - lo) / (hi - lo) * float64(len(sparkLevels)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sparkLevels) {
		idx = len(sparkLevels) - 1
	}
	return sparkLevels[idx]
}

// downsample thins a point list to at most width samples, keeping the
// first and last.
func downsample(points []viz.Point, width int) []viz.Point {
	if len(points) <= width {
		return points
	}
	out := make([]viz.Point, 0, width)
	step := float64(len(points)-1) / float64(width-1)
	for i := 0; i < width; i++ {
		out = append(out, points[int(float64(i)*step+0.5)])
	}
	return out
}
