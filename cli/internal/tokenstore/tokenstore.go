// Package tokenstore keeps the CLI admin session between invocations.
package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	sessionBucket = "session"
	adminKey      = "admin"
)

var ErrNoSession = errors.New("not logged in")

// Entry is a stored session token with the claims the CLI shows without
// decoding it.
type Entry struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

type Store struct {
	db *bbolt.DB
}

// Open creates the database file and its parent directory when missing.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state file %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(sessionBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save replaces the stored session.
func (s *Store) Save(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(sessionBucket)).Put([]byte(adminKey), data)
	})
}

// Load returns ErrNoSession when nothing is stored.
func (s *Store) Load() (Entry, error) {
	var e Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(sessionBucket)).Get([]byte(adminKey))
		if v == nil {
			return ErrNoSession
		}
		return json.Unmarshal(v, &e)
	})
	return e, err
}

// Clear removes the stored session. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(sessionBucket)).Delete([]byte(adminKey))
	})
}
