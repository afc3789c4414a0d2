package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/tablo-labs/tablo-bridge/internal/model"
	"github.com/tablo-labs/tablo-bridge/internal/storage"
)

var _ storage.Store = (*Store)(nil)

var (
	bucketCredentials = []byte("credentials")
	bucketTuneLogs    = []byte("tune_logs")
)

// Store is a BoltDB-backed Store implementation. Credentials are keyed by
// the device server ID, which doubles as the already-configured
// de-duplication key; saving for a different device replaces the old record.
type Store struct {
	db *bolt.DB
}

// New initialises the Bolt store.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketCredentials); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketTuneLogs)
		return err
	}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying Bolt DB.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveCredentials stores the credential bundle, replacing any previous one.
func (s *Store) SaveCredentials(ctx context.Context, creds *model.Credentials) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	now := time.Now().UTC()
	if creds.CreatedAt.IsZero() {
		creds.CreatedAt = now
	}
	creds.UpdatedAt = now
	payload, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketCredentials)
		cur := bkt.Cursor()
		for k, _ := cur.First(); k != nil; k, _ = cur.Next() {
			if string(k) != creds.Device.ServerID {
				if err := cur.Delete(); err != nil {
					return err
				}
			}
		}
		return bkt.Put([]byte(creds.Device.ServerID), payload)
	})
}

// GetCredentials returns the stored credential bundle, or ErrNotFound when
// the bridge has not been set up yet.
func (s *Store) GetCredentials(ctx context.Context) (*model.Credentials, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	var result *model.Credentials
	err := s.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketCredentials)
		return bkt.ForEach(func(_, v []byte) error {
			var creds model.Credentials
			if err := json.Unmarshal(v, &creds); err != nil {
				return err
			}
			result = &creds
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, storage.ErrNotFound
	}
	return result, nil
}

// DeleteCredentials removes any stored credential bundle.
func (s *Store) DeleteCredentials(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		cur := tx.Bucket(bucketCredentials).Cursor()
		for k, _ := cur.First(); k != nil; k, _ = cur.Next() {
			if err := cur.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
}

// AppendTuneLog stores one tune-attempt entry.
func (s *Store) AppendTuneLog(ctx context.Context, entry *model.TuneLog) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketTuneLogs)
		id, err := bkt.NextSequence()
		if err != nil {
			return err
		}
		entry.ID = id
		payload, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, id)
		return bkt.Put(key, payload)
	})
}

// ListTuneLogs returns all tune-log entries in insertion order.
func (s *Store) ListTuneLogs(ctx context.Context) ([]*model.TuneLog, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	var logs []*model.TuneLog
	err := s.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketTuneLogs)
		return bkt.ForEach(func(_, v []byte) error {
			var entry model.TuneLog
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			logs = append(logs, &entry)
			return nil
		})
	})
	return logs, err
}
