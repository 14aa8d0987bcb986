package scoringservice

import (
	"bytes"

	scoringdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/scoring/domain"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var (
	chartBackground = drawing.ColorFromHex("f7f7f2")
	chartText       = drawing.ColorFromHex("1f2a30")
	teamColors      = []drawing.Color{
		drawing.ColorFromHex("2f6690"),
		drawing.ColorFromHex("d1495b"),
		drawing.ColorFromHex("edae49"),
		drawing.ColorFromHex("66a182"),
	}
)

// RenderFlagsChart draws a PNG bar chart of flags per team in the given team order.
func RenderFlagsChart(teams []string, flags scoringdomain.FlagsResult) ([]byte, error) {
	total, highest := 0, 0
	bars := make([]chart.Value, 0, len(teams))
	for i, team := range teams {
		v := flags[team]
		total += v
		highest = max(highest, v)
		color := teamColors[i%len(teamColors)]
		bars = append(bars, chart.Value{
			Label: team,
			Value: float64(v),
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
	}
	if total == 0 {
		return renderNoDataPlaceholder()
	}

	graph := chart.BarChart{
		Title:    "Flags by team",
		Width:    640,
		Height:   400,
		BarWidth: 90,
		TitleStyle: chart.Style{
			FontColor: chartText,
		},
		Background: chart.Style{
			FillColor: chartBackground,
			Padding:   chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16},
		},
		Canvas: chart.Style{
			FillColor: chartBackground,
		},
		XAxis: chart.Style{
			FontColor: chartText,
		},
		YAxis: chart.YAxis{
			Style: chart.Style{FontColor: chartText},
			Range: &chart.ContinuousRange{Min: 0, Max: float64(highest + 1)},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func renderNoDataPlaceholder() ([]byte, error) {
	const (
		width  = 400
		height = 200
		msg    = "No flags captured yet"
	)

	graph := chart.Chart{
		Width:  width,
		Height: height,
		Background: chart.Style{
			FillColor: chartBackground,
		},
		Canvas: chart.Style{
			FillColor: chartBackground,
		},
		Elements: []chart.Renderable{
			func(r chart.Renderer, cb chart.Box, _ chart.Style) {
				r.SetFontColor(chartText)
				r.SetFontSize(12.0)
				tb := r.MeasureText(msg)
				x := (cb.Width() - tb.Width()) / 2
				y := (cb.Height() + tb.Height()) / 2
				r.Text(msg, x, y)
			},
		},
	}
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
