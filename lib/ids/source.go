package ids

import (
	"encoding/binary"
	"errors"
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	bolt "go.etcd.io/bbolt"
	"os"
	"sync"
	"time"
)

var Logger = logger.GetLogger("ids")

var (
	idBucket = []byte("ids")
	lastKey  = []byte("last")
)

// --------------------------------------------------------------------------
// Persistent Source
// --------------------------------------------------------------------------

type persistentSource struct {
	mu   sync.Mutex
	db   *bolt.DB
	last int64
}

// NewPersistentSource opens the id file at path. When the file does not exist
// the sequence starts at 1 and a warning is logged.
func NewPersistentSource(path string) (IIdSource, error) {
	_, statErr := os.Stat(path)
	missing := errors.Is(statErr, os.ErrNotExist)

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open id file %s: %w", path, err)
	}

	var last int64
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(idBucket)
		if err != nil {
			return err
		}
		if v := b.Get(lastKey); len(v) == 8 {
			last = int64(binary.BigEndian.Uint64(v))
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to read id file %s: %w", path, err)
	}

	if missing {
		Logger.Warningf("no id file found at %s, starting at 1", path)
	} else {
		Logger.Infof("id source resumed at %d", last+1)
	}
	return &persistentSource{db: db, last: last}, nil
}

func (s *persistentSource) Next() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return 0, fmt.Errorf("id source is closed")
	}

	next := s.last + 1
	err := s.db.Update(func(tx *bolt.Tx) error {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(next))
		return tx.Bucket(idBucket).Put(lastKey, buf[:])
	})
	if err != nil {
		return 0, fmt.Errorf("failed to persist id %d: %w", next, err)
	}
	s.last = next
	return next, nil
}

func (s *persistentSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// --------------------------------------------------------------------------
// Memory Source
// --------------------------------------------------------------------------

type memorySource struct {
	mu   sync.Mutex
	last int64
}

// NewMemorySource returns a source starting at 1 that is lost on restart.
func NewMemorySource() IIdSource {
	return &memorySource{}
}

func (s *memorySource) Next() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++
	return s.last, nil
}

func (s *memorySource) Close() error { return nil }
