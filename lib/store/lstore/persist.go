package lstore

import (
	"errors"
	"fmt"
	"github.com/panunburn/kv/lib/store"
	bolt "go.etcd.io/bbolt"
	"os"
	"time"
)

var entriesBucket = []byte("entries")

// Load opens the store persisted at path. A missing file is not an error:
// the store starts empty and a warning is logged.
func Load(path string) (store.IStore, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		Logger.Warningf("no store found at %s, starting with an empty store", path)
		return NewLocalStore(), nil
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open store file %s: %w", path, err)
	}
	defer db.Close()

	entries := make(map[string]string)
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(entriesBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			entries[string(k)] = string(v)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read store file %s: %w", path, err)
	}

	Logger.Infof("loaded %d entries from %s", len(entries), path)
	return NewLocalStoreFrom(entries), nil
}

// saveEntries replaces the contents of the bucket with entries in one transaction.
func saveEntries(path string, entries map[string]string) error {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open store file %s: %w", path, err)
	}
	defer db.Close()

	err = db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(entriesBucket) != nil {
			if err := tx.DeleteBucket(entriesBucket); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket(entriesBucket)
		if err != nil {
			return err
		}
		for k, v := range entries {
			if err := b.Put([]byte(k), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save store to %s: %w", path, err)
	}

	Logger.Infof("saved %d entries to %s", len(entries), path)
	return nil
}
