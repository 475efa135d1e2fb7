package paxos

import (
	"github.com/stretchr/testify/require"
	"path/filepath"
	"testing"
)

func openStringJournal(t *testing.T, dir string) IJournal[string] {
	t.Helper()
	j, err := OpenWALJournal[string](dir,
		func(v string) ([]byte, error) { return []byte(v), nil },
		func(b []byte) (string, error) { return string(b), nil },
	)
	require.NoError(t, err)
	return j
}

func TestJournalReplay(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "paxos")

	j := openStringJournal(t, dir)
	e := NewEngine[string]("test", NewLog[string](), nil, j)
	require.NoError(t, e.Learn(1, "a"))
	require.NoError(t, e.Learn(2, "b"))
	require.NoError(t, e.Learn(2, "b"), "relearning is not journaled twice")
	require.NoError(t, j.Close())

	j = openStringJournal(t, dir)
	defer j.Close()

	l := NewLog[string]()
	n, err := ReplayInto(j, l)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, map[int64]string{1: "a", 2: "b"}, l.LearnedValues())
	require.Equal(t, int64(3), l.NextRound())

	// appends continue after the replayed entries
	require.NoError(t, j.Append(3, "c"))
	n, err = ReplayInto(j, l)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestJournalEmpty(t *testing.T) {
	j := openStringJournal(t, filepath.Join(t.TempDir(), "paxos"))
	defer j.Close()

	n, err := ReplayInto(j, NewLog[string]())
	require.NoError(t, err)
	require.Zero(t, n)
}
