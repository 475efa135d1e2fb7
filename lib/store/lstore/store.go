package lstore

import (
	"github.com/lni/dragonboat/v4/logger"
	"github.com/panunburn/kv/lib/store"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("store")

type storeImpl struct {
	data *xsync.MapOf[string, string]
}

// NewLocalStore creates an empty in-memory store.
func NewLocalStore() store.IStore {
	return &storeImpl{
		data: xsync.NewMapOf[string, string](),
	}
}

// NewLocalStoreFrom creates a store holding a copy of entries.
func NewLocalStoreFrom(entries map[string]string) store.IStore {
	s := &storeImpl{
		data: xsync.NewMapOf[string, string](xsync.WithPresize(len(entries))),
	}
	for k, v := range entries {
		s.data.Store(k, v)
	}
	return s
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Get(key string) (string, bool) {
	return s.data.Load(key)
}

func (s *storeImpl) Put(key, value string) (string, bool) {
	previous, loaded := s.data.LoadAndStore(key, value)
	return previous, loaded
}

func (s *storeImpl) Delete(key string) (string, bool) {
	previous, loaded := s.data.LoadAndDelete(key)
	return previous, loaded
}

func (s *storeImpl) Entries() map[string]string {
	entries := make(map[string]string, s.data.Size())
	s.data.Range(func(k, v string) bool {
		entries[k] = v
		return true
	})
	return entries
}

func (s *storeImpl) Replace(entries map[string]string) {
	s.data.Clear()
	for k, v := range entries {
		s.data.Store(k, v)
	}
}

func (s *storeImpl) Len() int {
	return s.data.Size()
}

func (s *storeImpl) Save(path string) error {
	return saveEntries(path, s.Entries())
}
