package monitor

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// WritePlotPNG renders the session's speed and power traces as a PNG.
// Meant for grabbing a quick snapshot of a pull without the web UI.
func (h *History) WritePlotPNG(w io.Writer) error {
	points := h.Points()

	start := h.Started()
	speedPts := make(plotter.XYs, 0, len(points))
	powerPts := make(plotter.XYs, 0, len(points))
	for _, p := range points {
		t := p.Time.Sub(start).Seconds()
		speedPts = append(speedPts, plotter.XY{X: t, Y: p.Reading.SpeedKMH})
		powerPts = append(powerPts, plotter.XY{X: t, Y: p.Reading.PowerW})
	}

	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("Dyno session %s", h.SessionID())
	pl.X.Label.Text = "elapsed (s)"
	pl.Y.Label.Text = "speed (km/h) / power (W)"

	if len(speedPts) > 0 {
		speedLine, err := plotter.NewLine(speedPts)
		if err != nil {
			return fmt.Errorf("failed to build speed line: %w", err)
		}
		speedLine.Color = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
		speedLine.Width = vg.Points(1)
		pl.Add(speedLine)
		pl.Legend.Add("speed", speedLine)

		powerLine, err := plotter.NewLine(powerPts)
		if err != nil {
			return fmt.Errorf("failed to build power line: %w", err)
		}
		powerLine.Color = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
		powerLine.Width = vg.Points(1)
		pl.Add(powerLine)
		pl.Legend.Add("power", powerLine)
	}
	pl.Legend.Top = true

	wt, err := pl.WriterTo(10*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}
