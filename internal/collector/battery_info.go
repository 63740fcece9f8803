package collector

import (
	"strconv"
	"strings"
)

// InfoRow is one labelled line of the battery attribute table.
type InfoRow struct {
	Title string
	Value string
}

// InfoRows returns the data attributes in display order with energy in Wh
// and voltage in V. Values that are not integers are shown as read.
func (s BatterySnapshot) InfoRows() []InfoRow {
	rows := make([]InfoRow, 0, len(DataAttributes))
	for _, attr := range DataAttributes {
		v, _ := s.Attribute(attr)
		rows = append(rows, InfoRow{Title: TitleName(attr), Value: displayValue(attr, v)})
	}
	return rows
}

// TitleName turns a sysfs attribute name into a label: "energy_now" -> "Energy Now".
func TitleName(attr string) string {
	words := strings.Split(attr, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

func displayValue(attr, v string) string {
	if v == "" {
		return v
	}
	var unit string
	switch {
	case strings.Contains(attr, "energy"):
		unit = "Wh"
	case strings.Contains(attr, "voltage"):
		unit = "V"
	default:
		return v
	}
	micro, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return v
	}
	return strconv.FormatFloat(float64(micro)/1e6, 'f', -1, 64) + " " + unit
}
