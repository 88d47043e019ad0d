package chart

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/lox/greengrid/internal/forecast"
	"github.com/lox/greengrid/internal/models"
)

const (
	Width  = 960
	Height = 420

	marginLeft   = 56
	marginRight  = 24
	marginTop    = 36
	marginBottom = 40
)

var (
	background  = color.RGBA{20, 22, 40, 255}
	gridColor   = color.RGBA{60, 64, 90, 255}
	textColor   = color.RGBA{200, 200, 210, 255}
	historyLine = color.RGBA{102, 126, 234, 255}
	currentDot  = color.RGBA{16, 185, 129, 255}
	forecastDot = color.RGBA{245, 158, 11, 255}
	mediumLine  = color.RGBA{234, 179, 8, 255}
	highLine    = color.RGBA{239, 68, 68, 255}
)

// Data is what the load chart plots: observed history followed by the
// forecast window.
type Data struct {
	History  []models.HistoricalRecord
	Forecast []models.ForecastEntry
}

// Render draws the chart as a PNG. Points are evenly spaced; the last
// historical point is highlighted as the current reading and forecast points
// are drawn in a separate colour. The MEDIUM and HIGH thresholds are drawn as
// horizontal guides.
func Render(data Data) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	values := make([]float64, 0, len(data.History)+len(data.Forecast))
	for _, rec := range data.History {
		values = append(values, rec.LoadKW)
	}
	for _, e := range data.Forecast {
		values = append(values, e.PredictedLoad)
	}

	drawText(img, "Load (kW)", marginLeft, 22, textColor)
	if len(values) == 0 {
		drawText(img, "No data available", Width/2-60, Height/2, textColor)
		return encode(img)
	}

	p := newPlot(values)

	for _, guide := range []struct {
		value float64
		col   color.RGBA
	}{{forecast.MediumRiskThreshold, mediumLine}, {forecast.HighRiskThreshold, highLine}} {
		if guide.value <= p.maxY {
			y := p.y(guide.value)
			dashedLine(img, marginLeft, Width-marginRight, y, guide.col)
			drawText(img, fmt.Sprintf("%.0f", guide.value), 8, y+4, guide.col)
		}
	}
	hline(img, marginLeft, Width-marginRight, Height-marginBottom, gridColor)
	drawText(img, "0", 8, Height-marginBottom+4, textColor)
	drawText(img, fmt.Sprintf("%.0f", p.maxY), 8, marginTop+4, textColor)

	for i := 1; i < len(values); i++ {
		line(img, p.x(i-1), p.y(values[i-1]), p.x(i), p.y(values[i]), historyLine)
	}

	for i, v := range values {
		col, r := historyLine, 3
		switch {
		case i >= len(data.History):
			col, r = forecastDot, 5
		case i == len(data.History)-1:
			col, r = currentDot, 5
		}
		dot(img, p.x(i), p.y(v), r, col)
	}

	for i, rec := range data.History {
		if i%6 == 0 {
			drawText(img, fmt.Sprintf("H%d", rec.Hour), p.x(i)-8, Height-marginBottom+18, textColor)
		}
	}
	for j, e := range data.Forecast {
		drawText(img, fmt.Sprintf("+%dh", e.HourOffset), p.x(len(data.History)+j)-10, Height-marginBottom+18, forecastDot)
	}

	return encode(img)
}

type plot struct {
	n    int
	maxY float64
}

func newPlot(values []float64) plot {
	maxY := forecast.HighRiskThreshold
	for _, v := range values {
		maxY = math.Max(maxY, v)
	}
	return plot{n: len(values), maxY: maxY * 1.1}
}

func (p plot) x(i int) int {
	span := Width - marginLeft - marginRight
	if p.n <= 1 {
		return marginLeft + span/2
	}
	return marginLeft + i*span/(p.n-1)
}

func (p plot) y(v float64) int {
	span := float64(Height - marginTop - marginBottom)
	return Height - marginBottom - int(math.Round(math.Max(v, 0)/p.maxY*span))
}

func encode(img *image.RGBA) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

func drawText(img *image.RGBA, text string, x, y int, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

func hline(img *image.RGBA, x0, x1, y int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y, col)
	}
}

func dashedLine(img *image.RGBA, x0, x1, y int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		if (x/6)%2 == 0 {
			img.SetRGBA(x, y, col)
		}
	}
}

// line is Bresenham's algorithm.
func line(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		img.SetRGBA(x0, y0, col)
		img.SetRGBA(x0, y0+1, col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func dot(img *image.RGBA, cx, cy, r int, col color.RGBA) {
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			if x*x+y*y <= r*r {
				img.SetRGBA(cx+x, cy+y, col)
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
