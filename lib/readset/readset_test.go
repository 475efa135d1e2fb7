package readset

import (
	"github.com/panunburn/kv/lib/protocol"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
)

func TestConflictGating(t *testing.T) {
	r := New()
	put := protocol.Put("k", "v")

	require.True(t, r.Validate(put), "no reader before mark")

	r.Mark("k")
	require.False(t, r.Validate(put))
	require.False(t, r.Validate(protocol.Delete("k")))
	require.True(t, r.Validate(protocol.Put("other", "v")), "other keys are not affected")

	r.Unmark("k")
	require.True(t, r.Validate(put), "no reader after unmark")
}

func TestCommandsWithoutWriteKeyAlwaysPass(t *testing.T) {
	r := New()
	r.Mark("k")
	require.True(t, r.Validate(protocol.Get("k")))
	require.True(t, r.Validate(protocol.Print()))
}

func TestNestedReaders(t *testing.T) {
	r := New()
	r.Mark("k")
	r.Mark("k")
	require.Equal(t, 2, r.Readers("k"))

	r.Unmark("k")
	require.False(t, r.Validate(protocol.Put("k", "v")))

	r.Unmark("k")
	require.Equal(t, 0, r.Readers("k"))
	require.Equal(t, "{}", r.String())
}

func TestUnmarkWithoutMark(t *testing.T) {
	r := New()
	r.Unmark("k")
	require.Equal(t, 0, r.Readers("k"))
	require.Equal(t, "{}", r.String())
}

func TestConcurrentMarkUnmark(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				r.Mark("k")
				r.Unmark("k")
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 0, r.Readers("k"))
	require.True(t, r.Validate(protocol.Put("k", "v")))
}
