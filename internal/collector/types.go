package collector

// BatterySnapshot holds one poll of a battery under /sys/class/power_supply.
// Values are the trimmed attribute file contents; a missing or unreadable
// attribute is the empty string.
type BatterySnapshot struct {
	Supply string `json:"supply"`

	Manufacturer string `json:"manufacturer"`
	ModelName    string `json:"model_name"`
	SerialNumber string `json:"serial_number"`

	Capacity         string `json:"capacity"`
	Status           string `json:"status"`
	Technology       string `json:"technology"`
	EnergyNow        string `json:"energy_now"`
	EnergyFullDesign string `json:"energy_full_design"`
	VoltageNow       string `json:"voltage_now"`

	// Timestamp is the capture time in milliseconds since the epoch.
	Timestamp int64 `json:"timestamp"`
}

// Sysfs attribute names read for every battery.
const (
	AttrCapacity         = "capacity"
	AttrStatus           = "status"
	AttrTechnology       = "technology"
	AttrEnergyNow        = "energy_now"
	AttrEnergyFullDesign = "energy_full_design"
	AttrVoltageNow       = "voltage_now"
)

// DataAttributes lists the battery data attributes in display order.
var DataAttributes = []string{
	AttrCapacity,
	AttrStatus,
	AttrTechnology,
	AttrEnergyNow,
	AttrEnergyFullDesign,
	AttrVoltageNow,
}

// Attribute returns the value of a data attribute by its sysfs name.
func (s BatterySnapshot) Attribute(name string) (string, bool) {
	switch name {
	case AttrCapacity:
		return s.Capacity, true
	case AttrStatus:
		return s.Status, true
	case AttrTechnology:
		return s.Technology, true
	case AttrEnergyNow:
		return s.EnergyNow, true
	case AttrEnergyFullDesign:
		return s.EnergyFullDesign, true
	case AttrVoltageNow:
		return s.VoltageNow, true
	}
	return "", false
}
