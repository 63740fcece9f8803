package main

import (
	"log/slog"
	"sort"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/cptspacemanspiff/battmon/internal/collector"
	"github.com/cptspacemanspiff/battmon/internal/config"
	"github.com/cptspacemanspiff/battmon/internal/history"
	"github.com/cptspacemanspiff/battmon/internal/plot"
)

type chartField struct {
	Label string
	Field string
	Unit  string
}

var chartFields = []chartField{
	{"Capacity", history.FieldCapacity, "%"},
	{"Energy", history.FieldEnergyNow, "Wh"},
	{"Voltage", history.FieldVoltageNow, "V"},
}

// historyView is the content of the history window. All methods run on the
// UI thread.
type historyView struct {
	reader *collector.Reader
	store  *history.Store
	log    *slog.Logger
	now    func() time.Time

	rangeIdx int
	charts   []*lineChart
	cards    *fyne.Container
	content  fyne.CanvasObject
}

func newHistoryView(cfg *config.Config, logger *slog.Logger) *historyView {
	v := &historyView{
		reader:   collector.NewReader(cfg.Paths.PowerSupplyRoot, logger),
		store:    newStore(cfg, logger),
		log:      logger,
		now:      time.Now,
		rangeIdx: rangeIndex(cfg.Display.DefaultRange),
	}

	v.cards = container.NewVBox()
	chartBox := container.NewGridWithColumns(1)
	checks := container.NewHBox()
	for _, f := range chartFields {
		chart := newLineChart(f.Label, f.Field, f.Unit)
		v.charts = append(v.charts, chart)
		chartBox.Add(chart)

		check := widget.NewCheck(f.Label, func(on bool) {
			if on {
				chart.Show()
			} else {
				chart.Hide()
			}
			chartBox.Refresh()
		})
		check.Checked = true
		checks.Add(check)
	}

	bar := newTimeRangeBar(v.rangeIdx, func(idx int) {
		v.rangeIdx = idx
		v.refresh()
	})

	controls := container.NewVBox(bar.container, checks)
	right := container.NewBorder(controls, nil, nil, nil, chartBox)
	left := container.NewVScroll(v.cards)
	left.SetMinSize(fyne.NewSize(300, 0))

	split := container.NewHSplit(left, right)
	split.Offset = 0.28
	v.content = split
	return v
}

// refresh re-reads the batteries and their history and redraws everything.
func (v *historyView) refresh() {
	snaps, err := v.reader.ReadAll()
	if err != nil {
		v.log.Warn("read batteries", "err", err)
	}
	v.cards.Objects = newBatteryCards(snaps)
	v.cards.Refresh()

	tr := timeRanges[v.rangeIdx]
	histories, err := v.store.Read(tr.Duration)
	if err != nil {
		v.log.Warn("read history", "err", err)
	}

	ids := make([]string, 0, len(histories))
	for id := range histories {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	now := v.now()
	for _, chart := range v.charts {
		series := make([]history.Series, 0, len(ids))
		for _, id := range ids {
			series = append(series, histories[id].Series(chart.field))
		}
		from, to := chartWindow(tr.Duration, now, series)
		chart.SetData(series, from, to)
	}
	v.log.Debug("refreshed", "topic", "gui", "batteries", len(snaps), "histories", len(ids), "range", tr.Name)
}

// chartWindow is the x-axis span for a range. The all-time range starts at
// the oldest point, or an hour back when there is none.
func chartWindow(lookback time.Duration, now time.Time, series []history.Series) (from, to time.Time) {
	if lookback != history.AllTime {
		return now.Add(-lookback), now
	}
	from, _, ok := plot.Extent(series)
	if !ok || !from.Before(now) {
		return now.Add(-time.Hour), now
	}
	return from, now
}

// poll hands a refresh to the UI thread on every tick and every wake until
// done is closed. Refreshes never overlap because DoAndWait blocks.
func (v *historyView) poll(interval time.Duration, wake <-chan struct{}, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
		case <-wake:
			v.log.Debug("refresh after wake", "topic", "gui")
		case <-done:
			return
		}
		fyne.DoAndWait(v.refresh)
	}
}

func runWindow(cfg *config.Config, logger *slog.Logger) {
	a := app.NewWithID("io.github.cptspacemanspiff.battmon")
	w := a.NewWindow("Battmon")

	v := newHistoryView(cfg, logger)
	v.refresh()
	w.SetContent(v.content)
	w.Resize(fyne.NewSize(1100, 720))

	var wake <-chan struct{}
	sleepMon, err := collector.NewSleepMonitor(logger)
	if err != nil {
		logger.Warn("sleep monitor unavailable", "err", err)
	} else {
		wake = sleepMon.Wake()
		defer sleepMon.Close()
	}

	done := make(chan struct{})
	interval := time.Duration(cfg.Display.RefreshIntervalMs) * time.Millisecond
	go v.poll(interval, wake, done)

	w.ShowAndRun()
	close(done)
}
