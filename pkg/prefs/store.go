package prefs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// ErrNotFound is returned when a user has no stored document.
var ErrNotFound = errors.New("preferences not found")

// BucketPreferences holds one JSON document per user ID.
const BucketPreferences = "preferences"

// Store persists preference documents.
type Store interface {
	Load(ctx context.Context, userID string) (*Document, error)
	Save(ctx context.Context, userID string, doc *Document) error
}

// BoltStore is a Store backed by a bbolt database file.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (or creates) the database and its bucket.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open preference database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(BucketPreferences)); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", BucketPreferences, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Load reads and decodes a user's document.
func (s *BoltStore) Load(_ context.Context, userID string) (*Document, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketPreferences))
		if b == nil {
			return fmt.Errorf("bucket %s not found", BucketPreferences)
		}

		raw := b.Get([]byte(userID))
		if raw == nil {
			return ErrNotFound
		}
		// raw is only valid inside the transaction
		data = append([]byte(nil), raw...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return Decode(data)
}

// Save encodes and writes a user's document.
func (s *BoltStore) Save(_ context.Context, userID string, doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketPreferences))
		if b == nil {
			return fmt.Errorf("bucket %s not found", BucketPreferences)
		}
		return b.Put([]byte(userID), data)
	})
}

// MemoryStore is a Store held in process memory. Documents are stored
// encoded so callers never share state with the store.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

// Load decodes a stored document.
func (m *MemoryStore) Load(_ context.Context, userID string) (*Document, error) {
	m.mu.Lock()
	data, ok := m.docs[userID]
	m.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}
	return Decode(data)
}

// Save stores an encoded copy of doc.
func (m *MemoryStore) Save(_ context.Context, userID string, doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.docs[userID] = data
	m.mu.Unlock()
	return nil
}
