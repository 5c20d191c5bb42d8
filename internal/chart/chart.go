package chart

import (
	"bytes"
	"time"

	"github.com/pkg/errors"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/mah-di/amazon-notifier-bot/internal/types"
)

// RenderPriceHistory draws the recorded price points as a PNG time
// series. At least two points are required for a line.
func RenderPriceHistory(title string, points []types.PricePoint) ([]byte, error) {
	if len(points) < 2 {
		return nil, errors.New("not enough price history to draw a chart")
	}

	xs := make([]time.Time, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.RecordedAt
		ys[i] = p.Price
	}

	graph := chart.Chart{
		Title:  title,
		Width:  800,
		Height: 400,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("Jan 02"),
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				return "$" + chart.FloatValueFormatterWithFormat(v, "%.2f")
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Style: chart.Style{
					StrokeColor: drawing.ColorBlue,
					FillColor:   drawing.ColorBlue.WithAlpha(32),
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, errors.Wrap(err, "could not render chart")
	}
	return buf.Bytes(), nil
}
