package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bucketRoutes = []byte("undelivered_routes")

// ErrNotFound is returned when the driver has no cached route.
var ErrNotFound = errors.New("cached route not found")

// Entry is the command a driver has not yet received.
type Entry struct {
	RouteID  uuid.UUID       `json:"route_id"`
	Command  json.RawMessage `json:"command"`
	StoredAt time.Time       `json:"stored_at"`
}

// RouteStore keeps a single undelivered route command per driver. A newer
// put replaces the older one.
type RouteStore struct {
	db *bolt.DB
}

func NewRouteStore(path string) (*RouteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open route cache: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRoutes); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketRoutes, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &RouteStore{db: db}, nil
}

func (s *RouteStore) Close() error {
	return s.db.Close()
}

func (s *RouteStore) Put(driverID, routeID uuid.UUID, command []byte) error {
	data, err := json.Marshal(Entry{RouteID: routeID, Command: command, StoredAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRoutes).Put(driverID[:], data)
	})
}

func (s *RouteStore) Get(driverID uuid.UUID) (*Entry, error) {
	var entry Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRoutes).Get(driverID[:])
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *RouteStore) Delete(driverID uuid.UUID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRoutes).Delete(driverID[:])
	})
}

// DeleteRoute removes the driver's entry only when it still holds routeID.
func (s *RouteStore) DeleteRoute(driverID, routeID uuid.UUID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRoutes)
		data := b.Get(driverID[:])
		if data == nil {
			return nil
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			return err
		}
		if entry.RouteID != routeID {
			return nil
		}
		return b.Delete(driverID[:])
	})
}
