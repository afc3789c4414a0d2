package model

import "time"

// Credentials is the durable bundle produced by one authenticate call and
// consumed by every later client construction. The account password is never
// part of it; Username is kept for reference only.
type Credentials struct {
	Username      string           `json:"username"`
	Authorization string           `json:"authorization"`
	Identifier    string           `json:"identifier"`
	Profile       Profile          `json:"profile"`
	Device        DeviceDescriptor `json:"device"`
	Lighthouse    string           `json:"lighthouse"`
	UUID          string           `json:"uuid"`
	Tuners        int              `json:"tuners"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// Profile is one viewing profile on a Tablo account.
type Profile struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
}

// DeviceDescriptor is the cloud-held record for one physical receiver.
// ServerID is the stable unique key used for already-configured checks.
type DeviceDescriptor struct {
	URL      string `json:"url"`
	ServerID string `json:"serverId"`
	Name     string `json:"name"`
}

// DefaultTuners is assumed when the setup-time device probe fails.
const DefaultTuners = 2
