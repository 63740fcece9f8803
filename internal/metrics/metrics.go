// Package metrics exports the latest battery readings as Prometheus gauges
// in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cptspacemanspiff/battmon/internal/collector"
	"github.com/cptspacemanspiff/battmon/internal/history"
)

// Metrics holds the gauges of one log run on a private registry, so a
// textfile only ever contains battmon series.
type Metrics struct {
	reg *prometheus.Registry

	capacity      *prometheus.GaugeVec
	energy        *prometheus.GaugeVec
	voltage       *prometheus.GaugeVec
	written       prometheus.Gauge
	skipped       prometheus.Gauge
	lastTimestamp prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		reg: reg,
		capacity: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "battmon_battery_capacity_percent",
			Help: "Battery charge in percent at the last log run",
		}, []string{"battery"}),
		energy: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "battmon_battery_energy_wh",
			Help: "Battery energy in watt-hours at the last log run",
		}, []string{"battery"}),
		voltage: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "battmon_battery_voltage_volts",
			Help: "Battery voltage in volts at the last log run",
		}, []string{"battery"}),
		written: factory.NewGauge(prometheus.GaugeOpts{
			Name: "battmon_records_written",
			Help: "Number of records appended by the last log run",
		}),
		skipped: factory.NewGauge(prometheus.GaugeOpts{
			Name: "battmon_records_skipped",
			Help: "Number of batteries skipped by the last log run",
		}),
		lastTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "battmon_last_log_timestamp_seconds",
			Help: "Unix time of the last log run",
		}),
	}
}

// Observe records the outcome of one Append. Per-battery gauges are only set
// for batteries that were written, and only for attributes that parse.
func (m *Metrics) Observe(snaps map[string]collector.BatterySnapshot, res *history.AppendResult) {
	if res == nil {
		res = &history.AppendResult{}
	}
	m.written.Set(float64(len(res.Written)))
	m.skipped.Set(float64(len(res.Skipped)))

	var last int64
	for _, id := range res.Written {
		snap, ok := snaps[id]
		if !ok {
			continue
		}
		if snap.Timestamp > last {
			last = snap.Timestamp
		}
		if v, ok := parse(snap.Capacity, 1); ok {
			m.capacity.WithLabelValues(id).Set(v)
		}
		if v, ok := parse(snap.EnergyNow, 1e6); ok {
			m.energy.WithLabelValues(id).Set(v)
		}
		if v, ok := parse(snap.VoltageNow, 1e6); ok {
			m.voltage.WithLabelValues(id).Set(v)
		}
	}
	if last > 0 {
		m.lastTimestamp.Set(float64(last) / 1000)
	}
}

// WriteTextfile atomically replaces path with the current gauges.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func parse(raw string, scale float64) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return v / scale, true
}
