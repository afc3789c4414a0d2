package service

import (
	"context"
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

const lineupJSON = `[
	{"identifier":"ch-1","kind":"ota","name":"KABC","ota":{"major":7,"minor":1,"callSign":"KABC-DT"}},
	{"identifier":"ch-2","kind":"ota","name":"KCBS","ota":{"major":2,"minor":1,"callSign":"KCBS-DT"}}
]`

func newTuneFixture(t *testing.T, deviceHandler http.HandlerFunc) (*TuneService, *memStore, func()) {
	t.Helper()
	cloud := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, lineupJSON)
	}))
	device := httptest.NewServer(deviceHandler)

	store := &memStore{}
	require.NoError(t, store.SaveCredentials(context.Background(), storedCredentials(device.URL)))

	cfg := testConfig(cloud.URL)
	setupSvc := NewSetupService(store, cfg, zerolog.Nop())
	tuneSvc := NewTuneService(setupSvc, store, cfg, zerolog.Nop())

	return tuneSvc, store, func() {
		cloud.Close()
		device.Close()
	}
}

// TestTune_ByChannelNumber verifies number resolution against the fresh
// lineup and the resulting device call.
func TestTune_ByChannelNumber(t *testing.T) {
	var watched []string
	svc, store, cleanup := newTuneFixture(t, func(w http.ResponseWriter, r *http.Request) {
		watched = append(watched, r.URL.Path)
		io.WriteString(w, `{"state":"starting"}`)
	})
	defer cleanup()

	result, err := svc.Tune(context.Background(), TuneRequest{ChannelNumber: "7.1"})
	require.NoError(t, err)
	assert.Equal(t, "ch-1", result.ChannelID)
	assert.Equal(t, "KABC", result.ChannelName)
	assert.Equal(t, []string{"/guide/channels/ch-1/watch"}, watched)

	logs, err := store.ListTuneLogs(context.Background())
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.TuneStatusSuccess, logs[0].Status)
	assert.Equal(t, "ch-1", logs[0].ChannelID)
}

// TestTune_ByChannelID verifies a direct identifier skips the lineup lookup.
func TestTune_ByChannelID(t *testing.T) {
	svc, _, cleanup := newTuneFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/guide/channels/abc123/watch", r.URL.Path)
		io.WriteString(w, `{"state":"starting"}`)
	})
	defer cleanup()

	result, err := svc.Tune(context.Background(), TuneRequest{ChannelID: "abc123"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", result.ChannelID)
}

// TestTune_ChannelNotFound verifies unknown numbers fail with
// ErrChannelNotFound and are logged as failures.
func TestTune_ChannelNotFound(t *testing.T) {
	svc, store, cleanup := newTuneFixture(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("device must not be called for unknown channels")
	})
	defer cleanup()

	_, err := svc.Tune(context.Background(), TuneRequest{ChannelNumber: "99.9"})
	assert.ErrorIs(t, err, ErrChannelNotFound)

	logs, _ := store.ListTuneLogs(context.Background())
	require.Len(t, logs, 1)
	assert.Equal(t, model.TuneStatusFailed, logs[0].Status)
	assert.Equal(t, "99.9", logs[0].ChannelNumber)
}

// TestTune_MissingChannel verifies an empty request is rejected up front.
func TestTune_MissingChannel(t *testing.T) {
	svc, store, cleanup := newTuneFixture(t, func(w http.ResponseWriter, r *http.Request) {})
	defer cleanup()

	_, err := svc.Tune(context.Background(), TuneRequest{})
	assert.ErrorIs(t, err, ErrMissingChannel)

	logs, _ := store.ListTuneLogs(context.Background())
	assert.Empty(t, logs)
}

// TestTune_NotConfigured verifies tuning without stored credentials fails
// with ErrNotConfigured.
func TestTune_NotConfigured(t *testing.T) {
	store := &memStore{}
	cfg := testConfig("http://127.0.0.1:0")
	setupSvc := NewSetupService(store, cfg, zerolog.Nop())
	svc := NewTuneService(setupSvc, store, cfg, zerolog.Nop())

	_, err := svc.Tune(context.Background(), TuneRequest{ChannelID: "abc123"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

// TestTune_DeviceUnreachable verifies device failures propagate as
// ConnectionError and land in the tune log.
func TestTune_DeviceUnreachable(t *testing.T) {
	svc, store, cleanup := newTuneFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer cleanup()

	_, err := svc.Tune(context.Background(), TuneRequest{ChannelID: "abc123"})
	require.Error(t, err)
	assert.True(t, tablo.IsConnectionError(err))

	logs, _ := store.ListTuneLogs(context.Background())
	require.Len(t, logs, 1)
	assert.Equal(t, model.TuneStatusFailed, logs[0].Status)
}

// TestChannels verifies the flattened lineup view.
func TestChannels(t *testing.T) {
	svc, _, cleanup := newTuneFixture(t, func(w http.ResponseWriter, r *http.Request) {})
	defer cleanup()

	views, err := svc.Channels(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "7.1", views[0].Number)
	assert.Equal(t, "KABC", views[0].Name)
	assert.Equal(t, model.ChannelKindOTA, views[0].Kind)
}
