package main

import (
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"github.com/cptspacemanspiff/battmon/internal/config"
	"github.com/cptspacemanspiff/battmon/internal/history"
)

type timeRange struct {
	Name     string
	Label    string
	Duration time.Duration
}

var timeRanges = []timeRange{
	{config.RangeDay, "Day", 24 * time.Hour},
	{config.RangeWeek, "Week", 7 * 24 * time.Hour},
	{config.RangeMonth, "Month", 30 * 24 * time.Hour},
	{config.RangeAll, "All", history.AllTime},
}

// rangeIndex returns the position of name in timeRanges, or the week range.
func rangeIndex(name string) int {
	for i, tr := range timeRanges {
		if tr.Name == name {
			return i
		}
	}
	return 1
}

type timeRangeBar struct {
	buttons   []*widget.Button
	container fyne.CanvasObject
}

func newTimeRangeBar(selected int, onSelect func(int)) *timeRangeBar {
	bar := &timeRangeBar{buttons: make([]*widget.Button, len(timeRanges))}
	objs := make([]fyne.CanvasObject, len(timeRanges))
	for i, tr := range timeRanges {
		idx := i
		btn := widget.NewButton(tr.Label, func() {
			bar.Select(idx)
			onSelect(idx)
		})
		bar.buttons[idx] = btn
		objs[idx] = btn
	}
	bar.highlight(selected)

	title := canvas.NewText("Time Frame", colorWhiteLabel)
	title.TextSize = 12
	row := container.New(layout.NewHBoxLayout(), append([]fyne.CanvasObject{title}, objs...)...)
	bg := canvas.NewRectangle(color.NRGBA{R: 30, G: 30, B: 30, A: 230})
	bar.container = container.NewStack(bg, container.NewPadded(row))
	return bar
}

// Select marks the button at idx as the active range.
func (b *timeRangeBar) Select(idx int) {
	b.highlight(idx)
	for _, btn := range b.buttons {
		btn.Refresh()
	}
}

func (b *timeRangeBar) highlight(idx int) {
	for i, btn := range b.buttons {
		if i == idx {
			btn.Importance = widget.HighImportance
		} else {
			btn.Importance = widget.MediumImportance
		}
	}
}
