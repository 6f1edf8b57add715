package monitor

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderSessionCharts writes an HTML page with one line chart per
// published quantity over the session history.
func (h *History) RenderSessionCharts(w io.Writer) error {
	points := h.Points()

	var x []string
	var rpm, speed, torque, power []opts.LineData
	var start = h.Started()
	for _, p := range points {
		x = append(x, fmt.Sprintf("%.1fs", p.Time.Sub(start).Seconds()))
		rpm = append(rpm, opts.LineData{Value: p.Reading.RPM})
		speed = append(speed, opts.LineData{Value: p.Reading.SpeedKMH})
		torque = append(torque, opts.LineData{Value: p.Reading.TorqueNM})
		power = append(power, opts.LineData{Value: p.Reading.PowerW})
	}

	newChart := func(title, unit string, data []opts.LineData) *charts.Line {
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "320px", Theme: "dark"}),
			charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("session %s", h.SessionID())}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithYAxisOpts(opts.YAxis{Name: unit}),
		)
		line.SetXAxis(x).AddSeries(title, data,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		)
		return line
	}

	page := components.NewPage()
	page.PageTitle = "Dyno session"
	page.AddCharts(
		newChart("RPM", "rpm", rpm),
		newChart("Speed", "km/h", speed),
		newChart("Torque", "N·m", torque),
		newChart("Power", "W", power),
	)

	return page.Render(w)
}
