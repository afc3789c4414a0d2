package storage

import (
	"context"

	"github.com/tablo-labs/tablo-bridge/internal/model"
)

// Store abstracts credential and tune-log persistence. The bridge manages a
// single device, so at most one credentials record exists at a time.
type Store interface {
	SaveCredentials(ctx context.Context, creds *model.Credentials) error
	GetCredentials(ctx context.Context) (*model.Credentials, error)
	DeleteCredentials(ctx context.Context) error
	AppendTuneLog(ctx context.Context, entry *model.TuneLog) error
	ListTuneLogs(ctx context.Context) ([]*model.TuneLog, error)
	Close() error
}
