package main

import (
	"image/color"
	"sort"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/cptspacemanspiff/battmon/internal/history"
	"github.com/cptspacemanspiff/battmon/internal/plot"
)

var (
	colGraphBg      = color.NRGBA{R: 31, G: 31, B: 31, A: 230}
	colGrid         = color.NRGBA{R: 255, G: 255, B: 255, A: 20}
	colAxis         = color.NRGBA{R: 255, G: 255, B: 255, A: 64}
	colLabel        = color.NRGBA{R: 255, G: 255, B: 255, A: 128}
	colTitle        = color.NRGBA{R: 255, G: 255, B: 255, A: 178}
	colorWhiteLabel = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
)

// One line colour per battery, assigned in identity order.
var seriesColors = []color.NRGBA{
	{R: 77, G: 191, B: 102, A: 255},
	{R: 89, G: 140, B: 230, A: 255},
	{R: 230, G: 150, B: 60, A: 255},
	{R: 200, G: 90, B: 200, A: 255},
	{R: 220, G: 80, B: 80, A: 255},
	{R: 90, G: 200, B: 200, A: 255},
}

const (
	padLeft   = 56
	padRight  = 15
	padTop    = 30
	padBottom = 30
	yTicks    = 4
)

// lineChart draws one field of every battery against time.
type lineChart struct {
	widget.BaseWidget

	title  string
	field  string
	unit   string
	series []history.Series
	from   time.Time
	to     time.Time
}

func newLineChart(title, field, unit string) *lineChart {
	c := &lineChart{title: title, field: field, unit: unit}
	c.ExtendBaseWidget(c)
	return c
}

// SetData replaces the plotted series. Must run on the UI thread.
func (c *lineChart) SetData(series []history.Series, from, to time.Time) {
	sort.Slice(series, func(i, j int) bool { return series[i].Battery < series[j].Battery })
	c.series = series
	c.from = from
	c.to = to
	c.Refresh()
}

func (c *lineChart) CreateRenderer() fyne.WidgetRenderer {
	r := &lineChartRenderer{chart: c}
	r.rebuild(fyne.NewSize(0, 0))
	return r
}

type lineChartRenderer struct {
	chart   *lineChart
	size    fyne.Size
	objects []fyne.CanvasObject
}

func (r *lineChartRenderer) Layout(size fyne.Size) {
	r.size = size
	r.rebuild(size)
}

func (r *lineChartRenderer) MinSize() fyne.Size {
	return fyne.NewSize(320, 180)
}

func (r *lineChartRenderer) Refresh() {
	r.rebuild(r.size)
	canvas.Refresh(r.chart)
}

func (r *lineChartRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *lineChartRenderer) Destroy() {}

// rebuild recreates every canvas object for the current size and data.
func (r *lineChartRenderer) rebuild(size fyne.Size) {
	c := r.chart
	bg := canvas.NewRectangle(colGraphBg)
	bg.Resize(size)
	objs := []fyne.CanvasObject{bg}

	title := c.title
	if c.unit != "" {
		title += " (" + c.unit + ")"
	}
	objs = append(objs, newText(title, colTitle, 11, 8, 6))

	w, h := float64(size.Width), float64(size.Height)
	if w < padLeft+padRight+10 || h < padTop+padBottom+10 {
		r.objects = objs
		return
	}
	rect := plot.Rect{X: padLeft, Y: padTop, W: w - padLeft - padRight, H: h - padTop - padBottom}
	lo, hi := plot.ValueRange(c.field, c.series)

	// Y-axis grid
	for _, v := range plot.ValueTicks(lo, hi, yTicks) {
		y := rect.Y + rect.H - (v-lo)/(hi-lo)*rect.H
		objs = append(objs, newLine(colGrid, 1, rect.X, y, rect.X+rect.W, y))
		objs = append(objs, newText(formatValue(v, hi-lo), colLabel, 9, 4, float32(y)-7))
	}

	// X-axis
	objs = append(objs, newLine(colAxis, 1, rect.X, rect.Y+rect.H, rect.X+rect.W, rect.Y+rect.H))
	for _, tk := range plot.TimeTicks(c.from, c.to) {
		x := rect.X + tk.Frac*rect.W
		objs = append(objs, newLine(colGrid, 1, x, rect.Y, x, rect.Y+rect.H))
		objs = append(objs, newText(tk.Label, colLabel, 8, float32(x)-15, float32(rect.Y+rect.H)+5))
	}

	gap := c.to.Sub(c.from) / 10
	legendX := float32(rect.X + rect.W)
	for i := len(c.series) - 1; i >= 0; i-- {
		s := c.series[i]
		col := seriesColors[i%len(seriesColors)]
		for _, seg := range plot.Segments(s.Points, rect, c.from, c.to, lo, hi, gap) {
			if len(seg) == 1 {
				dot := canvas.NewCircle(col)
				dot.Position1 = fyne.NewPos(float32(seg[0].X)-2, float32(seg[0].Y)-2)
				dot.Position2 = fyne.NewPos(float32(seg[0].X)+2, float32(seg[0].Y)+2)
				objs = append(objs, dot)
				continue
			}
			for j := 1; j < len(seg); j++ {
				objs = append(objs, newLine(col, 2, seg[j-1].X, seg[j-1].Y, seg[j].X, seg[j].Y))
			}
		}

		label := newText(s.Battery, col, 10, 0, 6)
		legendX -= label.MinSize().Width + 12
		label.Move(fyne.NewPos(legendX, 6))
		objs = append(objs, label)
	}

	r.objects = objs
}

func newLine(col color.Color, width float32, x1, y1, x2, y2 float64) *canvas.Line {
	l := canvas.NewLine(col)
	l.StrokeWidth = width
	l.Position1 = fyne.NewPos(float32(x1), float32(y1))
	l.Position2 = fyne.NewPos(float32(x2), float32(y2))
	return l
}

func newText(text string, col color.Color, size, x, y float32) *canvas.Text {
	t := canvas.NewText(text, col)
	t.TextSize = size
	t.Move(fyne.NewPos(x, y))
	return t
}

// formatValue keeps axis labels short: whole numbers for wide ranges,
// two decimals for narrow ones.
func formatValue(v, span float64) string {
	prec := 0
	if span < 10 {
		prec = 2
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}
