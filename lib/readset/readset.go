package readset

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/panunburn/kv/lib/protocol"
	"github.com/puzpuzpuz/xsync/v3"
	"sort"
	"strings"
)

var Logger = logger.GetLogger("readset")

// ReadSet counts the readers currently holding each key. Keys with no readers
// are not present in the table.
type ReadSet struct {
	readers *xsync.MapOf[string, int]
}

// New returns an empty ReadSet.
func New() *ReadSet {
	return &ReadSet{readers: xsync.NewMapOf[string, int]()}
}

// Mark registers one more reader for key.
func (r *ReadSet) Mark(key string) {
	r.readers.Compute(key, func(count int, _ bool) (int, bool) {
		return count + 1, false
	})
}

// Unmark releases one reader of key. The key is removed when no reader is left.
// Unmarking a key that is not marked has no effect.
func (r *ReadSet) Unmark(key string) {
	r.readers.Compute(key, func(count int, loaded bool) (int, bool) {
		if !loaded {
			Logger.Debugf("unmark of key %q that has no readers", key)
			return 0, true
		}
		if count <= 1 {
			return 0, true
		}
		return count - 1, false
	})
}

// Readers returns the number of readers currently holding key.
func (r *ReadSet) Readers(key string) int {
	count, _ := r.readers.Load(key)
	return count
}

// Validate reports whether cmd can be committed, that is whether the key it
// writes is not being read. Commands that write no key always pass.
func (r *ReadSet) Validate(cmd protocol.Command) bool {
	key, writes := protocol.WriteKey(cmd)
	if !writes {
		return true
	}
	if n := r.Readers(key); n > 0 {
		Logger.Debugf("%s conflicts with %d reader(s) of %q", cmd, n, key)
		return false
	}
	return true
}

func (r *ReadSet) String() string {
	entries := make([]string, 0, r.readers.Size())
	r.readers.Range(func(key string, count int) bool {
		entries = append(entries, fmt.Sprintf("%s=%d", key, count))
		return true
	})
	sort.Strings(entries)
	return "{" + strings.Join(entries, ", ") + "}"
}
