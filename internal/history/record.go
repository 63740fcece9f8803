// Package history persists battery snapshots as per-battery CSV logs and
// reads them back as time-bounded series.
package history

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/cptspacemanspiff/battmon/internal/collector"
)

// Log row fields. FieldTime and FieldStatus are derived from the snapshot;
// the rest are copied from the sysfs attribute of the same name.
const (
	FieldTime       = "time"
	FieldStatus     = "status"
	FieldCapacity   = collector.AttrCapacity
	FieldEnergyNow  = collector.AttrEnergyNow
	FieldVoltageNow = collector.AttrVoltageNow
)

// DefaultFields is the current row layout. Rows written before energy and
// voltage were logged only hold the first three fields.
var DefaultFields = []string{FieldTime, FieldStatus, FieldCapacity, FieldEnergyNow, FieldVoltageNow}

// microScale converts on-disk micro-units to Wh and V.
const microScale = 1e6

// Value is one parsed cell. Cells that do not parse as finite numbers keep
// their raw text with Numeric unset; empty cells are the zero Value.
type Value struct {
	Number  float64
	Raw     string
	Numeric bool
}

func (v Value) String() string {
	if v.Numeric {
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
	return v.Raw
}

// Record is one log row. Energy is in Wh and voltage in V.
type Record struct {
	Time       time.Time
	Timestamp  int64
	Status     string
	Capacity   Value
	EnergyNow  Value
	VoltageNow Value
}

// Field returns the value of a numeric field by name.
func (r Record) Field(name string) (Value, bool) {
	switch name {
	case FieldCapacity:
		return r.Capacity, true
	case FieldEnergyNow:
		return r.EnergyNow, true
	case FieldVoltageNow:
		return r.VoltageNow, true
	}
	return Value{}, false
}

// StatusCode is the first character of status upper-cased, e.g. "Charging" -> "C".
func StatusCode(status string) string {
	r, _ := utf8.DecodeRuneInString(status)
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r))
}

// encodeRow projects a snapshot into fields order. Trailing empty cells are
// dropped so batteries without energy or voltage write the short legacy row.
func encodeRow(fields []string, s collector.BatterySnapshot) []string {
	row := make([]string, len(fields))
	for i, f := range fields {
		switch f {
		case FieldTime:
			row[i] = strconv.FormatInt(s.Timestamp, 10)
		case FieldStatus:
			row[i] = StatusCode(s.Status)
		default:
			row[i], _ = s.Attribute(f)
		}
	}
	n := len(row)
	for n > 0 && row[n-1] == "" {
		n--
	}
	return row[:n]
}

// decodeRow parses a row laid out as fields. Missing trailing cells default
// to the zero Value.
func decodeRow(fields []string, row []string) (Record, error) {
	var rec Record
	haveTime := false
	for i, f := range fields {
		cell := ""
		if i < len(row) {
			cell = strings.TrimSpace(row[i])
		}
		switch f {
		case FieldTime:
			ts, err := parseTimestamp(cell)
			if err != nil {
				return Record{}, err
			}
			rec.Timestamp = ts
			haveTime = true
		case FieldStatus:
			rec.Status = cell
		case FieldCapacity:
			rec.Capacity = parseValue(cell, 1)
		case FieldEnergyNow:
			rec.EnergyNow = parseValue(cell, microScale)
		case FieldVoltageNow:
			rec.VoltageNow = parseValue(cell, microScale)
		}
	}
	if !haveTime {
		return Record{}, fmt.Errorf("schema has no %s field", FieldTime)
	}
	return rec, nil
}

func parseTimestamp(cell string) (int64, error) {
	if ts, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return ts, nil
	}
	// Some writers emit the millisecond count as a float.
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("parse timestamp %q: %w", cell, err)
	}
	if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("timestamp %q out of range", cell)
	}
	return int64(f), nil
}

func parseValue(cell string, scale float64) Value {
	if cell == "" {
		return Value{}
	}
	n, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return Value{Raw: cell}
	}
	return Value{Number: n / scale, Raw: cell, Numeric: true}
}
