package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablo-labs/tablo-bridge/internal/model"
	"github.com/tablo-labs/tablo-bridge/internal/tablo"
)

func newCloudServer(deviceURL string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/login/":
			io.WriteString(w, `{"access_token":"access","token_type":"Bearer"}`)
		case "/api/v2/account/":
			fmt.Fprintf(w, `{"identifier":"acct-1","profiles":[{"identifier":"p-1"}],"devices":[{"url":%q,"serverId":"SID-1","name":"Living Room"}]}`, deviceURL)
		case "/api/v2/account/select/":
			io.WriteString(w, `{"token":"lh-token"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// TestSetup_PersistsCredentials verifies the handshake result lands in the
// store with the probed tuner count.
func TestSetup_PersistsCredentials(t *testing.T) {
	device := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"model":{"name":"Tablo 4th Gen","tuners":4}}`)
	}))
	defer device.Close()
	cloud := newCloudServer(device.URL)
	defer cloud.Close()

	store := &memStore{}
	svc := NewSetupService(store, testConfig(cloud.URL), zerolog.Nop())

	creds, err := svc.Setup(context.Background(), "user@example.com", "hunter2", false)
	require.NoError(t, err)
	assert.Equal(t, 4, creds.Tuners)

	stored, err := store.GetCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SID-1", stored.Device.ServerID)
	assert.Equal(t, "lh-token", stored.Lighthouse)
}

// TestSetup_AlreadyConfigured verifies the server-ID de-duplication check
// and its force override.
func TestSetup_AlreadyConfigured(t *testing.T) {
	device := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"model":{"tuners":2}}`)
	}))
	defer device.Close()
	cloud := newCloudServer(device.URL)
	defer cloud.Close()

	store := &memStore{}
	svc := NewSetupService(store, testConfig(cloud.URL), zerolog.Nop())

	_, err := svc.Setup(context.Background(), "user@example.com", "hunter2", false)
	require.NoError(t, err)

	_, err = svc.Setup(context.Background(), "user@example.com", "hunter2", false)
	assert.ErrorIs(t, err, ErrAlreadyConfigured)

	_, err = svc.Setup(context.Background(), "user@example.com", "hunter2", true)
	assert.NoError(t, err)
}

// TestSetup_BadCredentials verifies authentication failures leave the store
// untouched.
func TestSetup_BadCredentials(t *testing.T) {
	cloud := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code":401,"message":"Invalid email or password"}`)
	}))
	defer cloud.Close()

	store := &memStore{}
	svc := NewSetupService(store, testConfig(cloud.URL), zerolog.Nop())

	_, err := svc.Setup(context.Background(), "user@example.com", "wrong", false)
	require.Error(t, err)
	assert.True(t, tablo.IsAuthenticationError(err))

	_, err = store.GetCredentials(context.Background())
	assert.Error(t, err)
}

// TestStatus verifies reachability reporting for configured and
// unconfigured bridges.
func TestStatus(t *testing.T) {
	device := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"model":{"name":"Tablo 4th Gen","tuners":4}}`)
	}))
	defer device.Close()

	store := &memStore{}
	svc := NewSetupService(store, testConfig("http://127.0.0.1:0"), zerolog.Nop())

	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Configured)
	assert.Equal(t, model.DeviceStatusNotConfigured, status.DeviceStatus)

	require.NoError(t, store.SaveCredentials(context.Background(), storedCredentials(device.URL)))
	status, err = svc.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Configured)
	assert.Equal(t, model.DeviceStatusOnline, status.DeviceStatus)
	assert.Equal(t, "Living Room", status.DeviceName)

	device.Close()
	status, err = svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DeviceStatusOffline, status.DeviceStatus)
}

// TestReset verifies credential removal.
func TestReset(t *testing.T) {
	store := &memStore{}
	require.NoError(t, store.SaveCredentials(context.Background(), storedCredentials("http://10.0.0.5:8885")))
	svc := NewSetupService(store, testConfig(""), zerolog.Nop())

	require.NoError(t, svc.Reset(context.Background()))
	_, err := svc.Credentials(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}
