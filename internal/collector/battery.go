package collector

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultPowerSupplyRoot is where the kernel exposes power supplies.
const DefaultPowerSupplyRoot = "/sys/class/power_supply"

const supplyTypeBattery = "Battery"

// Reader polls batteries from a power-supply tree.
type Reader struct {
	root string
	log  *slog.Logger
	now  func() time.Time
}

// NewReader creates a Reader rooted at root (normally DefaultPowerSupplyRoot).
func NewReader(root string, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{root: root, log: logger, now: time.Now}
}

// ReadAll returns one snapshot per supply whose type is exactly "Battery",
// keyed by battery identity. Attribute files that are missing or unreadable
// read as empty strings; only failing to list the root is an error.
func (r *Reader) ReadAll() (map[string]BatterySnapshot, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, fmt.Errorf("list power supplies: %w", err)
	}

	ts := r.now().UnixMilli()
	snaps := make(map[string]BatterySnapshot)
	for _, e := range entries {
		dir := filepath.Join(r.root, e.Name())
		// sysfs entries are symlinks, so follow them.
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			continue
		}
		if r.readAttr(dir, "type") != supplyTypeBattery {
			continue
		}

		s := BatterySnapshot{
			Supply:           e.Name(),
			Manufacturer:     r.readAttr(dir, "manufacturer"),
			ModelName:        r.readAttr(dir, "model_name"),
			SerialNumber:     r.readAttr(dir, "serial_number"),
			Capacity:         r.readAttr(dir, AttrCapacity),
			Status:           r.readAttr(dir, AttrStatus),
			Technology:       r.readAttr(dir, AttrTechnology),
			EnergyNow:        r.readAttr(dir, AttrEnergyNow),
			EnergyFullDesign: r.readAttr(dir, AttrEnergyFullDesign),
			VoltageNow:       r.readAttr(dir, AttrVoltageNow),
			Timestamp:        ts,
		}
		id := s.Identity()
		if prev, ok := snaps[id]; ok {
			r.log.Warn("duplicate battery identity, keeping last", "battery", id, "supply", s.Supply, "replaced", prev.Supply)
		}
		snaps[id] = s
		r.log.Debug("battery", "topic", "reader", "battery", id, "supply", s.Supply,
			"capacity", s.Capacity, "status", s.Status)
	}
	return snaps, nil
}

func (r *Reader) readAttr(dir, name string) string {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		if !os.IsNotExist(err) {
			r.log.Debug("unreadable attribute", "topic", "reader", "path", filepath.Join(dir, name), "err", err)
		}
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Identity returns manufacturer_model_serial for the battery. Empty parts are
// left out; with no parts at all the supply name is used instead.
func (s BatterySnapshot) Identity() string {
	var parts []string
	for _, p := range []string{s.Manufacturer, s.ModelName, s.SerialNumber} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	id := strings.Join(parts, "_")
	if id == "" {
		id = s.Supply
	}
	return strings.NewReplacer("/", "-", "\\", "-").Replace(id)
}
