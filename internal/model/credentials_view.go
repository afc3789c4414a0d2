package model

import "strings"

// CredentialsView hides token material when returning stored credentials to
// API clients. Only the leading characters of each secret survive.
type CredentialsView struct {
	Username      string `json:"username"`
	Authorization string `json:"authorization"`
	Identifier    string `json:"identifier"`
	ProfileID     string `json:"profileId"`
	DeviceURL     string `json:"deviceUrl"`
	DeviceID      string `json:"deviceServerId"`
	DeviceName    string `json:"deviceName"`
	Lighthouse    string `json:"lighthouse"`
	UUID          string `json:"uuid"`
	Tuners        int    `json:"tuners"`
}

// View returns a masked copy safe for API responses and logs.
func (c *Credentials) View() *CredentialsView {
	if c == nil {
		return nil
	}
	return &CredentialsView{
		Username:      c.Username,
		Authorization: MaskValue(c.Authorization),
		Identifier:    c.Identifier,
		ProfileID:     c.Profile.Identifier,
		DeviceURL:     c.Device.URL,
		DeviceID:      c.Device.ServerID,
		DeviceName:    c.Device.Name,
		Lighthouse:    MaskValue(c.Lighthouse),
		UUID:          c.UUID,
		Tuners:        c.Tuners,
	}
}

// MaskValue keeps the first four characters of a secret and stars the rest.
func MaskValue(value string) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= 4 {
		return value
	}
	return string(runes[:4]) + strings.Repeat("*", len(runes)-4)
}
