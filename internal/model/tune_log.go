package model

import "time"

// Tune log statuses.
const (
	TuneStatusSuccess = "SUCCESS"
	TuneStatusFailed  = "FAILED"
)

// TuneLog tracks each tune attempt issued through the bridge.
type TuneLog struct {
	ID            uint64    `json:"id"`
	ChannelID     string    `json:"channelId"`
	ChannelNumber string    `json:"channelNumber"`
	ChannelName   string    `json:"channelName"`
	Status        string    `json:"status"`
	Message       string    `json:"message,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// TuneLogFilter describes query parameters for log searching.
type TuneLogFilter struct {
	ChannelID string
	Status    string
	BeginTime *time.Time
	EndTime   *time.Time
	Page      int
	PageSize  int
}
