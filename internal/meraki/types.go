package meraki

import "strings"

// Placeholders used when the upstream inventory omits a field.
const (
	DefaultDeviceName = "Default Device Name"
	UnknownModel      = "Unknown Model"
)

// Network is one network inside a Meraki organization.
type Network struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Device is a single inventory entry, keyed by serial. Inventory is fetched
// once per session and assumed stable.
type Device struct {
	Serial string `json:"serial"`
	Name   string `json:"name"`
	Model  string `json:"model"`
}

// DeviceStatus is the per-cycle reachability record for one device.
type DeviceStatus struct {
	Serial      string `json:"serial"`
	Status      string `json:"status"`
	ProductType string `json:"productType"`
}

// IsWireless reports whether the device belongs to the wireless product
// family. Non-wireless devices never appear in a snapshot.
func (s DeviceStatus) IsWireless() bool {
	return strings.HasPrefix(s.ProductType, "wireless")
}
