package tablo

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tablo-labs/tablo-bridge/internal/model"
)

// AuthConfig tunes the handshake. The zero value targets the production
// cloud with the default timeout and a disabled logger.
type AuthConfig struct {
	CloudURL string
	Timeout  time.Duration
	Logger   zerolog.Logger
}

// cloudStatus is the error shape shared by the cloud auth endpoints. A
// non-null code means the request failed semantically.
type cloudStatus struct {
	Code    any    `json:"code"`
	Message string `json:"message"`
}

type loginResponse struct {
	cloudStatus
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type accountResponse struct {
	cloudStatus
	Identifier string                   `json:"identifier"`
	Profiles   []model.Profile          `json:"profiles"`
	Devices    []model.DeviceDescriptor `json:"devices"`
}

type selectResponse struct {
	cloudStatus
	Token string `json:"token"`
}

// Authenticate performs the cloud handshake (login, account fetch,
// profile/device select) and returns the credential bundle the bridge
// persists. The first profile and first device on the account win. A failed
// device probe at the end does not abort the handshake; the tuner count
// falls back to the default instead.
func Authenticate(ctx context.Context, username, password string, cfg AuthConfig) (*model.Credentials, error) {
	cloudURL := cfg.CloudURL
	if cloudURL == "" {
		cloudURL = DefaultCloudURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	logger := cfg.Logger

	// One transient connection-session owns the whole handshake.
	httpc := &http.Client{Timeout: timeout}
	defer httpc.CloseIdleConnections()

	// Step 1: login.
	loginBody, err := json.Marshal(map[string]string{"email": username, "password": password})
	if err != nil {
		return nil, &ClientError{Message: "encode login request", Err: err}
	}
	payload, err := cloudRequest(ctx, httpc, cloudURL, http.MethodPost, loginPath, nil, loginBody)
	if err != nil {
		return nil, err
	}
	var login loginResponse
	if err := json.Unmarshal(payload, &login); err != nil {
		return nil, &AuthenticationError{Message: "malformed login response", Err: err}
	}
	if login.Code != nil {
		return nil, &AuthenticationError{Message: messageOrDefault(login.Message, "invalid credentials")}
	}
	if login.AccessToken == "" || login.TokenType == "" {
		return nil, &AuthenticationError{Message: "login response missing access token"}
	}
	authorization := login.TokenType + " " + login.AccessToken

	// Step 2: account info.
	authHeaders := map[string]string{"Authorization": authorization}
	payload, err = cloudRequest(ctx, httpc, cloudURL, http.MethodGet, accountPath, authHeaders, nil)
	if err != nil {
		return nil, err
	}
	var account accountResponse
	if err := json.Unmarshal(payload, &account); err != nil {
		return nil, &AuthenticationError{Message: "malformed account response", Err: err}
	}
	if account.Code != nil {
		return nil, &AuthenticationError{Message: messageOrDefault(account.Message, "failed to fetch account")}
	}

	// Step 3: first profile and first device win; selection UI is not this
	// layer's concern.
	if len(account.Profiles) == 0 {
		return nil, &AuthenticationError{Message: "no profiles on account"}
	}
	if len(account.Devices) == 0 {
		return nil, &AuthenticationError{Message: "no devices on account"}
	}
	profile := account.Profiles[0]
	device := account.Devices[0]
	if device.URL == "" {
		return nil, &AuthenticationError{Message: "selected device has no url"}
	}

	// Step 4: lighthouse session token.
	selectBody, err := json.Marshal(map[string]string{"pid": profile.Identifier, "sid": device.ServerID})
	if err != nil {
		return nil, &ClientError{Message: "encode select request", Err: err}
	}
	payload, err = cloudRequest(ctx, httpc, cloudURL, http.MethodPost, accountSelectPath, authHeaders, selectBody)
	if err != nil {
		return nil, err
	}
	var selected selectResponse
	if err := json.Unmarshal(payload, &selected); err != nil {
		return nil, &AuthenticationError{Message: "malformed select response", Err: err}
	}
	if selected.Token == "" {
		return nil, &AuthenticationError{Message: "select response missing lighthouse token"}
	}

	// Step 5: fresh installation UUID, used in later device request bodies.
	installID := uuid.NewString()

	creds := &model.Credentials{
		Username:      username,
		Authorization: authorization,
		Identifier:    account.Identifier,
		Profile:       profile,
		Device:        device,
		Lighthouse:    selected.Token,
		UUID:          installID,
		Tuners:        model.DefaultTuners,
	}

	// Step 6: best-effort probe. Device availability at setup time is not
	// required for cloud authentication to succeed.
	probe := New(Config{
		DeviceURL:     device.URL,
		UUID:          installID,
		Lighthouse:    selected.Token,
		Authorization: authorization,
		CloudURL:      cloudURL,
		Timeout:       timeout,
		Logger:        logger,
	})
	info, err := probe.GetServerInfo(ctx)
	if err != nil {
		logger.Warn().Err(err).Str("device_url", device.URL).
			Msg("device probe failed, assuming default tuner count")
	} else {
		if info.Model.Tuners > 0 {
			creds.Tuners = info.Model.Tuners
		}
		if creds.Device.Name == "" {
			creds.Device.Name = info.Model.Name
		}
	}

	logger.Info().
		Str("server_id", device.ServerID).
		Str("device_name", creds.Device.Name).
		Int("tuners", creds.Tuners).
		Msg("authenticated with tablo cloud")
	return creds, nil
}

func messageOrDefault(message, fallback string) string {
	if message != "" {
		return message
	}
	return fallback
}
