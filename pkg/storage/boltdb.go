package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/osd-activate/pkg/types"
)

const (
	// DefaultPath is where the ledger lives unless configured otherwise
	DefaultPath = "/var/lib/ceph/osd-activate.db"

	// OpenTimeout bounds the wait for another process holding the database
	OpenTimeout = 2 * time.Second
)

var (
	// Bucket names
	bucketActivations = []byte("activations")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if needed) the ledger at path
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: OpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketActivations); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketActivations, err)
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// CreateActivation stores a run. Version 7 UUIDs are time-ordered, so bucket
// iteration order is recording order.
func (s *BoltStore) CreateActivation(activation *types.Activation) error {
	if activation.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate activation id: %w", err)
		}
		activation.ID = id.String()
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketActivations)
		data, err := json.Marshal(activation)
		if err != nil {
			return err
		}
		return b.Put([]byte(activation.ID), data)
	})
}

func (s *BoltStore) ListActivations() ([]*types.Activation, error) {
	return s.listActivations(func(*types.Activation) bool { return true })
}

func (s *BoltStore) ListActivationsByOSD(cluster, id string) ([]*types.Activation, error) {
	return s.listActivations(func(a *types.Activation) bool {
		return a.Cluster == cluster && a.OSDID == id
	})
}

func (s *BoltStore) listActivations(match func(*types.Activation) bool) ([]*types.Activation, error) {
	var activations []*types.Activation
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketActivations)
		return b.ForEach(func(k, v []byte) error {
			var activation types.Activation
			if err := json.Unmarshal(v, &activation); err != nil {
				return err
			}
			if match(&activation) {
				activations = append(activations, &activation)
			}
			return nil
		})
	})
	return activations, err
}
