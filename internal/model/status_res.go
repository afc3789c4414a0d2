package model

// StatusRes summarises bridge configuration and device reachability.
type StatusRes struct {
	Configured   bool   `json:"configured"`
	DeviceName   string `json:"deviceName,omitempty"`
	DeviceURL    string `json:"deviceUrl,omitempty"`
	Tuners       int    `json:"tuners,omitempty"`
	DeviceStatus string `json:"deviceStatus"`
}

// Device reachability states for StatusRes.
const (
	DeviceStatusOnline        = "online"
	DeviceStatusOffline       = "offline"
	DeviceStatusNotConfigured = "not_configured"
)
