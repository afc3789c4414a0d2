package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/tablo-labs/tablo-bridge/internal/config"
	"github.com/tablo-labs/tablo-bridge/internal/model"
	"github.com/tablo-labs/tablo-bridge/internal/storage"
	"github.com/tablo-labs/tablo-bridge/internal/tablo"
)

// SetupService runs the one-time cloud authentication and owns the persisted
// credential bundle.
type SetupService struct {
	store storage.Store
	cfg   *config.Config
	log   zerolog.Logger
}

// NewSetupService constructs SetupService.
func NewSetupService(store storage.Store, cfg *config.Config, log zerolog.Logger) *SetupService {
	return &SetupService{store: store, cfg: cfg, log: log}
}

// Setup authenticates against the cloud and persists the resulting
// credentials. Re-running setup for a device that is already on file fails
// with ErrAlreadyConfigured unless force is set.
func (s *SetupService) Setup(ctx context.Context, username, password string, force bool) (*model.Credentials, error) {
	creds, err := tablo.Authenticate(ctx, username, password, tablo.AuthConfig{
		CloudURL: s.cfg.Cloud.BaseURL,
		Timeout:  s.cfg.Cloud.RequestTimeout,
		Logger:   s.log,
	})
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetCredentials(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Device.ServerID == creds.Device.ServerID && !force {
		return nil, ErrAlreadyConfigured
	}

	if err := s.store.SaveCredentials(ctx, creds); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("server_id", creds.Device.ServerID).
		Str("device_name", creds.Device.Name).
		Msg("bridge configured")
	return creds, nil
}

// Credentials returns the stored bundle, or ErrNotConfigured.
func (s *SetupService) Credentials(ctx context.Context) (*model.Credentials, error) {
	creds, err := s.store.GetCredentials(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotConfigured
	}
	if err != nil {
		return nil, err
	}
	return creds, nil
}

// Reset deletes the stored credentials.
func (s *SetupService) Reset(ctx context.Context) error {
	return s.store.DeleteCredentials(ctx)
}

// Status reports configuration state and device reachability.
func (s *SetupService) Status(ctx context.Context) (*model.StatusRes, error) {
	creds, err := s.Credentials(ctx)
	if errors.Is(err, ErrNotConfigured) {
		return &model.StatusRes{DeviceStatus: model.DeviceStatusNotConfigured}, nil
	}
	if err != nil {
		return nil, err
	}
	res := &model.StatusRes{
		Configured:   true,
		DeviceName:   creds.Device.Name,
		DeviceURL:    creds.Device.URL,
		Tuners:       creds.Tuners,
		DeviceStatus: model.DeviceStatusOffline,
	}
	client := deviceClient(s.cfg, creds, s.log)
	if _, err := client.GetServerInfo(ctx); err == nil {
		res.DeviceStatus = model.DeviceStatusOnline
	}
	return res, nil
}

// deviceClient rebuilds a Tablo client from persisted credentials. The
// client is only valid for the device the credentials were issued for.
func deviceClient(cfg *config.Config, creds *model.Credentials, log zerolog.Logger) *tablo.Client {
	return tablo.New(tablo.Config{
		DeviceURL:     creds.Device.URL,
		UUID:          creds.UUID,
		Lighthouse:    creds.Lighthouse,
		Authorization: creds.Authorization,
		CloudURL:      cfg.Cloud.BaseURL,
		Timeout:       cfg.Device.RequestTimeout,
		Logger:        log,
	})
}
