// Package idempotency stores responses of idempotent requests in BoltDB so
// that a retried request with the same key replays the first outcome.
package idempotency

import (
	"encoding/json"
	"errors"
	"time"

	bolt "github.com/boltdb/bolt"
)

const bucketName = "idempotency_keys"

var ErrNotFound = errors.New("idempotency key not found")

// Record is the stored outcome of the first request seen for Key.
type Record struct {
	Key         string    `json:"key"`
	Fingerprint string    `json:"fingerprint"`
	StatusCode  int       `json:"status_code"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the BoltDB file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(key string) (*Record, error) {
	var rec Record
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Save stores rec unless its key already exists. It returns the stored record
// and whether this call wrote it.
func (s *Store) Save(rec *Record) (*Record, bool, error) {
	var stored Record
	created := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if v := b.Get([]byte(rec.Key)); v != nil {
			return json.Unmarshal(v, &stored)
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now().UTC()
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		stored = *rec
		created = true
		return b.Put([]byte(rec.Key), data)
	})
	if err != nil {
		return nil, false, err
	}
	return &stored, created, nil
}

// Purge deletes records created before cutoff and returns how many were removed.
func (s *Store) Purge(cutoff time.Time) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil || rec.CreatedAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}
