package model

import "fmt"

// Channel kinds as reported by the cloud lineup endpoint.
const (
	ChannelKindOTA = "ota"
	ChannelKindOTT = "ott"
)

// Channel is one lineup entry. Numbering lives under the key matching Kind,
// so exactly one of OTA/OTT is populated on well-formed entries.
type Channel struct {
	Identifier string         `json:"identifier"`
	Kind       string         `json:"kind"`
	Name       string         `json:"name"`
	OTA        *ChannelTuning `json:"ota,omitempty"`
	OTT        *ChannelTuning `json:"ott,omitempty"`
}

// ChannelTuning carries the major/minor numbering and call sign for a channel.
type ChannelTuning struct {
	Major    int    `json:"major"`
	Minor    int    `json:"minor"`
	CallSign string `json:"callSign"`
}

// Tuning returns the numbering record matching the channel kind, or nil.
func (c *Channel) Tuning() *ChannelTuning {
	switch c.Kind {
	case ChannelKindOTA:
		return c.OTA
	case ChannelKindOTT:
		return c.OTT
	}
	return nil
}

// Number formats the channel number as "major.minor", e.g. "7.1".
// Empty when the entry carries no numbering for its kind.
func (c *Channel) Number() string {
	t := c.Tuning()
	if t == nil {
		return ""
	}
	return fmt.Sprintf("%d.%d", t.Major, t.Minor)
}

// CallSign returns the call sign for the channel kind, or empty.
func (c *Channel) CallSign() string {
	t := c.Tuning()
	if t == nil {
		return ""
	}
	return t.CallSign
}

// ChannelView is the flattened lineup entry returned by the bridge API.
type ChannelView struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Number     string `json:"channelNumber"`
	Kind       string `json:"type"`
	CallSign   string `json:"callSign"`
}

// ToView flattens a Channel for API consumers.
func (c *Channel) ToView() *ChannelView {
	return &ChannelView{
		Identifier: c.Identifier,
		Name:       c.Name,
		Number:     c.Number(),
		Kind:       c.Kind,
		CallSign:   c.CallSign(),
	}
}
