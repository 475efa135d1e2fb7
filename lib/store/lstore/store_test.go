package lstore

import (
	"fmt"
	"github.com/panunburn/kv/lib/store"
	"github.com/stretchr/testify/require"
	"path/filepath"
	"sync"
	"testing"
)

func TestPutGetDelete(t *testing.T) {
	s := NewLocalStore()

	_, ok := s.Get("a")
	require.False(t, ok)

	prev, loaded := s.Put("a", "b")
	require.False(t, loaded)
	require.Empty(t, prev)

	prev, loaded = s.Put("a", "c")
	require.True(t, loaded)
	require.Equal(t, "b", prev)

	v, ok := s.Get("a")
	require.True(t, ok)
	require.Equal(t, "c", v)

	prev, loaded = s.Delete("a")
	require.True(t, loaded)
	require.Equal(t, "c", prev)

	_, loaded = s.Delete("a")
	require.False(t, loaded)
	require.Equal(t, 0, s.Len())
	require.Empty(t, s.Entries())
}

func TestConcurrentWrites(t *testing.T) {
	s := NewLocalStore()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Put(fmt.Sprintf("k-%d-%d", i, j), "v")
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 800, s.Len())
	require.Len(t, s.Entries(), 800)
}

func TestEntriesIsDetached(t *testing.T) {
	tests := []struct {
		name  string
		write func(s store.IStore)
	}{
		{name: "Put", write: func(s store.IStore) { s.Put("a", "2") }},
		{name: "Delete", write: func(s store.IStore) { s.Delete("a") }},
		{name: "Replace", write: func(s store.IStore) { s.Replace(map[string]string{"b": "3"}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewLocalStoreFrom(map[string]string{"a": "1"})
			entries := s.Entries()
			tt.write(s)
			require.Equal(t, map[string]string{"a": "1"}, entries)
		})
	}
}

func TestReplace(t *testing.T) {
	s := NewLocalStoreFrom(map[string]string{"a": "1", "b": "2"})
	s.Replace(map[string]string{"c": "3"})
	require.Equal(t, map[string]string{"c": "3"}, s.Entries())
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.store")

	s := NewLocalStore()
	s.Put("a", "b")
	s.Put("c", "d")
	require.NoError(t, s.Save(path))

	// saving again replaces the previous contents
	s.Delete("c")
	require.NoError(t, s.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"a": "b"}, loaded.Entries())
}

func TestLoadMissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.store"))
	require.NoError(t, err)
	require.Equal(t, 0, s.Len())
}
