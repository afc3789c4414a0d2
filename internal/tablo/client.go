// Package tablo implements the Tablo cloud and local-device client: the
// account handshake, HMAC-signed device requests, channel lineup retrieval
// and the tune-to-channel command.
package tablo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tablo-labs/tablo-bridge/internal/model"
)

const (
	// DefaultCloudURL is the production cloud API base address.
	DefaultCloudURL = "https://lighthousetv.ewscloud.com"

	loginPath         = "/api/v2/login/"
	accountPath       = "/api/v2/account/"
	accountSelectPath = "/api/v2/account/select/"
	channelsPathFmt   = "/api/v2/account/%s/guide/channels/"
	airingsPathFmt    = "/api/v2/account/guide/channels/%s/airings/%s/"

	serverInfoPath  = "/server/info"
	watchChannelFmt = "/guide/channels/%s/watch"

	userAgent       = "Tablo-FAST/2.0.0 (Mobile; iPhone; iOS 16.6)"
	acceptHeader    = "*/*"
	contentTypeJSON = "application/json"
)

// DefaultRequestTimeout bounds every cloud and device call.
const DefaultRequestTimeout = 10 * time.Second

// Config carries the credential view a Client needs. It may be built from a
// full Credentials bundle or from the reduced persisted subset.
type Config struct {
	DeviceURL     string
	UUID          string
	Lighthouse    string
	Authorization string
	// CloudURL overrides the cloud API base address; empty targets production.
	CloudURL string
	Timeout  time.Duration
	Logger   zerolog.Logger
}

// Client talks to the Tablo cloud API and one local device. A Client is only
// valid for the device URL and lighthouse token it was built from.
type Client struct {
	deviceURL     string
	uuid          string
	lighthouse    string
	authorization string
	cloudURL      string
	timeout       time.Duration
	log           zerolog.Logger
}

// New creates a Client from a credential view.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	cloudURL := strings.TrimSuffix(cfg.CloudURL, "/")
	if cloudURL == "" {
		cloudURL = DefaultCloudURL
	}
	return &Client{
		deviceURL:     strings.TrimSuffix(cfg.DeviceURL, "/"),
		uuid:          cfg.UUID,
		lighthouse:    cfg.Lighthouse,
		authorization: cfg.Authorization,
		cloudURL:      cloudURL,
		timeout:       timeout,
		log:           cfg.Logger,
	}
}

// ServerInfo is the subset of the device /server/info payload the bridge
// uses. The device reports more; unknown fields are ignored.
type ServerInfo struct {
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Version  string `json:"version"`
	Model    struct {
		Name   string `json:"name"`
		Tuners int    `json:"tuners"`
	} `json:"model"`
}

// GetChannels fetches the channel lineup from the cloud guide endpoint.
// A response that is not a JSON list yields an empty lineup, not an error.
func (c *Client) GetChannels(ctx context.Context) ([]model.Channel, error) {
	httpc := c.newHTTPClient()
	defer httpc.CloseIdleConnections()

	path := fmt.Sprintf(channelsPathFmt, c.lighthouse)
	headers := map[string]string{
		"Authorization": c.authorization,
		"Lighthouse":    c.lighthouse,
	}
	payload, err := cloudRequest(ctx, httpc, c.cloudURL, http.MethodGet, path, headers, nil)
	if err != nil {
		return nil, err
	}
	if !looksLikeList(payload) {
		c.log.Warn().Msg("channel lineup response is not a list, treating as empty")
		return []model.Channel{}, nil
	}
	var channels []model.Channel
	if err := json.Unmarshal(payload, &channels); err != nil {
		return nil, &ClientError{Message: "malformed channel lineup", Err: err}
	}
	c.log.Debug().Int("channels", len(channels)).Msg("fetched channel lineup")
	return channels, nil
}

// GetAirings fetches the guide airings for one channel on a given date
// (YYYY-MM-DD). Returned entries are passed through untyped.
func (c *Client) GetAirings(ctx context.Context, channelID, date string) ([]map[string]any, error) {
	httpc := c.newHTTPClient()
	defer httpc.CloseIdleConnections()

	path := fmt.Sprintf(airingsPathFmt, channelID, date)
	headers := map[string]string{
		"Authorization": c.authorization,
		"Lighthouse":    c.lighthouse,
	}
	payload, err := cloudRequest(ctx, httpc, c.cloudURL, http.MethodGet, path, headers, nil)
	if err != nil {
		return nil, err
	}
	if !looksLikeList(payload) {
		return []map[string]any{}, nil
	}
	var airings []map[string]any
	if err := json.Unmarshal(payload, &airings); err != nil {
		return nil, &ClientError{Message: "malformed airings response", Err: err}
	}
	return airings, nil
}

// WatchChannel issues the signed tune command against the local device.
// extra fields are merged over the fixed device envelope.
func (c *Client) WatchChannel(ctx context.Context, channelID string, extra map[string]any) (map[string]any, error) {
	path := fmt.Sprintf(watchChannelFmt, channelID)
	body := map[string]any{}
	for k, v := range extra {
		body[k] = v
	}
	payload, err := c.requestDevice(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	var ack map[string]any
	if err := json.Unmarshal(payload, &ack); err != nil {
		return nil, &ClientError{Message: "malformed watch response", Err: err}
	}
	c.log.Info().Str("channel_id", channelID).Msg("tune command accepted by device")
	return ack, nil
}

// GetServerInfo fetches model and tuner information from the local device.
func (c *Client) GetServerInfo(ctx context.Context) (*ServerInfo, error) {
	payload, err := c.requestDevice(ctx, http.MethodGet, serverInfoPath, nil)
	if err != nil {
		return nil, err
	}
	var info ServerInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		return nil, &ClientError{Message: "malformed server info", Err: err}
	}
	return &info, nil
}

// requestDevice performs one signed call against the local device. The date
// and signature are regenerated on every call.
func (c *Client) requestDevice(ctx context.Context, method, path string, body map[string]any) ([]byte, error) {
	if c.deviceURL == "" {
		return nil, &ClientError{Message: "no device url configured"}
	}
	httpc := c.newHTTPClient()
	defer httpc.CloseIdleConnections()

	date := deviceDate(time.Now())

	bodyStr := ""
	if method == http.MethodPost && body != nil {
		envelope := c.deviceEnvelope()
		for k, v := range body {
			envelope[k] = v
		}
		raw, err := json.Marshal(envelope)
		if err != nil {
			return nil, &ClientError{Message: "encode device request body", Err: err}
		}
		bodyStr = string(raw)
	}

	var reader io.Reader
	if bodyStr != "" {
		reader = strings.NewReader(bodyStr)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.deviceURL+path, reader)
	if err != nil {
		return nil, &ClientError{Message: "build device request", Err: err}
	}
	req.Header.Set("Date", date)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", userAgent)
	if bodyStr != "" {
		req.Header.Set("Content-Type", contentTypeJSON)
	}
	req.Header.Set("Authorization", signDeviceRequest(method, path, bodyStr, date))

	c.log.Debug().Str("method", method).Str("path", path).Msg("device request")
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, &ConnectionError{Message: "device request failed", Err: err}
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectionError{Message: "read device response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ConnectionError{
			Message: fmt.Sprintf("device returned %s for %s %s", resp.Status, method, path),
		}
	}
	return payload, nil
}

// deviceEnvelope is the hardware/software metadata the device protocol
// expects on every POST body, stamped with this installation's UUID.
func (c *Client) deviceEnvelope() map[string]any {
	return map[string]any{
		"bandwidth": nil,
		"extra": map[string]any{
			"limitedAdTracking": 1,
			"deviceOSVersion":   "16.6",
			"lang":              "en_US",
			"height":            1080,
			"deviceId":          "00000000-0000-0000-0000-000000000000",
			"width":             1920,
			"deviceModel":       "iPhone10,1",
			"deviceMake":        "Apple",
			"deviceOS":          "iOS",
		},
		"device_id": c.uuid,
		"platform":  "ios",
	}
}

func (c *Client) newHTTPClient() *http.Client {
	return &http.Client{Timeout: c.timeout}
}

// cloudRequest performs one call against the cloud API host and returns the
// raw response body. Transport failures and non-2xx statuses surface as
// ConnectionError.
func cloudRequest(ctx context.Context, httpc *http.Client, baseURL, method, path string, headers map[string]string, body []byte) ([]byte, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reader)
	if err != nil {
		return nil, &ClientError{Message: "build cloud request", Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Content-Type", contentTypeJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, &ConnectionError{Message: "cloud request failed", Err: err}
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectionError{Message: "read cloud response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ConnectionError{
			Message: fmt.Sprintf("cloud returned %s for %s %s", resp.Status, method, path),
		}
	}
	return payload, nil
}

func looksLikeList(payload []byte) bool {
	trimmed := bytes.TrimLeft(payload, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}
