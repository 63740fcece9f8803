package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"github.com/cptspacemanspiff/battmon/internal/collector"
)

// newBatteryCard shows the attribute table of one battery above a charge
// bar. Capacities above 100 stretch the bar rather than clip it.
func newBatteryCard(id string, snap collector.BatterySnapshot) fyne.CanvasObject {
	form := container.New(layout.NewFormLayout())
	for _, row := range snap.InfoRows() {
		form.Add(widget.NewLabelWithStyle(row.Title, fyne.TextAlignTrailing, fyne.TextStyle{Bold: true}))
		form.Add(widget.NewLabel(row.Value))
	}

	capacity, _ := strconv.ParseFloat(strings.TrimSpace(snap.Capacity), 64)
	bar := widget.NewProgressBar()
	bar.Max = max(100, capacity)
	bar.TextFormatter = func() string {
		return fmt.Sprintf("%s%%", strconv.FormatFloat(capacity, 'f', -1, 64))
	}
	bar.SetValue(capacity)

	return widget.NewCard(id, snap.Supply, container.NewVBox(bar, form))
}

func newBatteryCards(snaps map[string]collector.BatterySnapshot) []fyne.CanvasObject {
	ids := make([]string, 0, len(snaps))
	for id := range snaps {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if len(ids) == 0 {
		return []fyne.CanvasObject{widget.NewLabel("No batteries found")}
	}
	cards := make([]fyne.CanvasObject, 0, len(ids))
	for _, id := range ids {
		cards = append(cards, newBatteryCard(id, snaps[id]))
	}
	return cards
}
