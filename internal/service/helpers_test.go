package service

import (
	"context"
	"sync"
	"time"

	"github.com/tablo-labs/tablo-bridge/internal/config"
	"github.com/tablo-labs/tablo-bridge/internal/model"
	"github.com/tablo-labs/tablo-bridge/internal/storage"
)

// memStore is an in-memory storage.Store for service tests.
type memStore struct {
	mu    sync.Mutex
	creds *model.Credentials
	logs  []*model.TuneLog
	seq   uint64
}

var _ storage.Store = (*memStore)(nil)

func (m *memStore) SaveCredentials(_ context.Context, creds *model.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *creds
	m.creds = &copied
	return nil
}

func (m *memStore) GetCredentials(_ context.Context) (*model.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds == nil {
		return nil, storage.ErrNotFound
	}
	copied := *m.creds
	return &copied, nil
}

func (m *memStore) DeleteCredentials(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = nil
	return nil
}

func (m *memStore) AppendTuneLog(_ context.Context, entry *model.TuneLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	entry.ID = m.seq
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	copied := *entry
	m.logs = append(m.logs, &copied)
	return nil
}

func (m *memStore) ListTuneLogs(_ context.Context) ([]*model.TuneLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	logs := make([]*model.TuneLog, len(m.logs))
	copy(logs, m.logs)
	return logs, nil
}

func (m *memStore) Close() error { return nil }

func testConfig(cloudURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Cloud.BaseURL = cloudURL
	cfg.Cloud.RequestTimeout = time.Second
	cfg.Device.RequestTimeout = time.Second
	return cfg
}

func storedCredentials(deviceURL string) *model.Credentials {
	return &model.Credentials{
		Username:      "user@example.com",
		Authorization: "Bearer access",
		Lighthouse:    "lh-token",
		UUID:          "11111111-2222-3333-4444-555555555555",
		Tuners:        2,
		Device:        model.DeviceDescriptor{URL: deviceURL, ServerID: "SID-1", Name: "Living Room"},
	}
}
