package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/guptarohit/asciigraph"

	"github.com/pcdogyu/market-dashboard/internal/memstore"
	"github.com/pcdogyu/market-dashboard/internal/quote"
)

// resample maps points onto cols columns spanning [open, close). Only the
// columns up to the last point are returned, so a half-elapsed session fills
// half the width. Each column holds the latest price at or before it.
func resample(points []memstore.Point, open, close time.Time, cols int) []float64 {
	if len(points) == 0 || cols < 1 {
		return nil
	}
	span := close.Sub(open)
	if span <= 0 || open.IsZero() {
		out := make([]float64, len(points))
		for i, p := range points {
			out[i] = p.Price
		}
		return out
	}

	last := points[len(points)-1].TS
	used := int(float64(last.Sub(open)) / float64(span) * float64(cols))
	used++
	if used < 1 {
		used = 1
	}
	if used > cols {
		used = cols
	}

	out := make([]float64, used)
	j := 0
	for i := 0; i < used; i++ {
		colEnd := open.Add(time.Duration(float64(span) * float64(i+1) / float64(cols)))
		for j+1 < len(points) && !points[j+1].TS.After(colEnd) {
			j++
		}
		out[i] = points[j].Price
	}
	return out
}

// plot draws one ticker, with the previous close as a flat reference line
// across the whole session. Fewer than two columns are widened so the chart
// library always has a line to draw.
func plot(tf memstore.TickerFrame, open, close time.Time, width, height int) string {
	caption := tf.Symbol
	if tf.PrevClose != 0 {
		caption += "  prev close " + quote.FormatPrice(tf.PrevClose)
	}

	cols := width - 12 // y-axis labels
	if cols < 10 {
		cols = 10
	}
	series := resample(tf.Points, open, close, cols)
	if len(series) == 0 {
		return fmt.Sprintf("%s\n%s", caption, strings.Repeat("·", cols))
	}
	if len(series) == 1 {
		series = append(series, series[0])
	}

	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Precision(2),
		asciigraph.Caption(caption),
	}
	if tf.HasRange {
		opts = append(opts, asciigraph.LowerBound(tf.YMin), asciigraph.UpperBound(tf.YMax))
	}

	data := [][]float64{series}
	if tf.PrevClose != 0 {
		ref := make([]float64, max(cols, len(series)))
		for i := range ref {
			ref[i] = tf.PrevClose
		}
		data = append(data, ref)
		opts = append(opts, asciigraph.SeriesColors(asciigraph.Default, asciigraph.Gray))
	}
	return asciigraph.PlotMany(data, opts...)
}
