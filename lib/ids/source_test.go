package ids

import (
	"github.com/stretchr/testify/require"
	"path/filepath"
	"sync"
	"testing"
)

func TestPersistentSourceStartsAtOne(t *testing.T) {
	s, err := NewPersistentSource(filepath.Join(t.TempDir(), "id.store"))
	require.NoError(t, err)
	defer s.Close()

	id, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, int64(1), id)
}

func TestPersistentSourceSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "id.store")

	s, err := NewPersistentSource(path)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := s.Next()
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())

	s, err = NewPersistentSource(path)
	require.NoError(t, err)
	defer s.Close()

	id, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, int64(6), id)
}

func TestClosedSource(t *testing.T) {
	s, err := NewPersistentSource(filepath.Join(t.TempDir(), "id.store"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Next()
	require.Error(t, err)
}

func TestConcurrentIdsAreUnique(t *testing.T) {
	sources := map[string]IIdSource{
		"memory": NewMemorySource(),
	}
	persistent, err := NewPersistentSource(filepath.Join(t.TempDir(), "id.store"))
	require.NoError(t, err)
	defer persistent.Close()
	sources["persistent"] = persistent

	for name, s := range sources {
		t.Run(name, func(t *testing.T) {
			var (
				mu   sync.Mutex
				seen = make(map[int64]bool)
				wg   sync.WaitGroup
			)
			for i := 0; i < 4; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 25; j++ {
						id, err := s.Next()
						if err != nil {
							t.Errorf("next: %v", err)
							return
						}
						mu.Lock()
						seen[id] = true
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			require.Len(t, seen, 100)
		})
	}
}
