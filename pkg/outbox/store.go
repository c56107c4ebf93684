package outbox

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

const (
	defaultBucket = "outbox"
	// deadBucket keeps items that ran out of retries until an operator replays them.
	deadBucket = "outbox.dead"
)

// Item is a message the broker did not accept yet.
type Item struct {
	ID            string    `json:"id"`
	RoutingKey    string    `json:"routing_key"`
	CorrelationID string    `json:"correlation_id"`
	Body          []byte    `json:"body"`
	Retries       int       `json:"retries"`
	Timestamp     time.Time `json:"timestamp"`

	seq uint64
}

// Store persists outbox items in BoltDB in FIFO order.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// Open initializes the BoltDB file and ensures the bucket exists.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{defaultBucket, deadBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		bucket: []byte(defaultBucket),
	}, nil
}

// Enqueue appends an item. Keys come from the bucket sequence, so cursor order is enqueue order.
func (s *Store) Enqueue(item Item) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now()
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		payload, err := json.Marshal(item)
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), payload)
	})
}

// Batch returns up to limit items, oldest first, without removing them.
func (s *Store) Batch(limit int) ([]Item, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 50
	}

	var items []Item
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, v := c.First(); k != nil && len(items) < limit; k, v = c.Next() {
			var item Item
			if err := json.Unmarshal(v, &item); err != nil {
				continue
			}
			item.seq = binary.BigEndian.Uint64(k)
			items = append(items, item)
		}
		return nil
	})
	return items, err
}

// Remove deletes an item returned by Batch.
func (s *Store) Remove(item Item) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete(seqKey(item.seq))
	})
}

// Update rewrites an item returned by Batch in place, keeping its position.
func (s *Store) Update(item Item) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put(seqKey(item.seq), payload)
	})
}

// Bury moves an item returned by Batch to the dead bucket in one transaction.
func (s *Store) Bury(item Item) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		dead := tx.Bucket([]byte(deadBucket))
		seq, err := dead.NextSequence()
		if err != nil {
			return err
		}
		if err := dead.Put(seqKey(seq), payload); err != nil {
			return err
		}
		return tx.Bucket(s.bucket).Delete(seqKey(item.seq))
	})
}

// Dead returns up to limit buried items, oldest first.
func (s *Store) Dead(limit int) ([]Item, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	var items []Item
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(deadBucket)).Cursor()
		for k, v := c.First(); k != nil && (limit <= 0 || len(items) < limit); k, v = c.Next() {
			var item Item
			if err := json.Unmarshal(v, &item); err != nil {
				continue
			}
			items = append(items, item)
		}
		return nil
	})
	return items, err
}

// DeadCount returns the number of buried items.
func (s *Store) DeadCount() (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket([]byte(deadBucket)).Stats().KeyN
		return nil
	})
	return count, err
}

// Size returns the number of buffered items.
func (s *Store) Size() (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return count, err
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
