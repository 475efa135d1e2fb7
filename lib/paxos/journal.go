package paxos

import (
	"encoding/binary"
	"fmt"
	"github.com/tidwall/wal"
	"sync"
)

// IJournal durably records learned values.
type IJournal[V comparable] interface {
	// Append records value as learned for round.
	Append(round int64, value V) error
	// Replay calls fn for every recorded round in the order they were appended.
	Replay(fn func(round int64, value V) error) error
	// Close flushes and closes the journal.
	Close() error
}

type walJournal[V comparable] struct {
	mu     sync.Mutex
	log    *wal.Log
	next   uint64
	encode func(V) ([]byte, error)
	decode func([]byte) (V, error)
}

// OpenWALJournal opens or creates a write-ahead log in dir. Each entry holds
// the 8 byte round followed by the encoded value.
func OpenWALJournal[V comparable](dir string, encode func(V) ([]byte, error), decode func([]byte) (V, error)) (IJournal[V], error) {
	opts := *wal.DefaultOptions
	log, err := wal.Open(dir, &opts)
	if err != nil {
		return nil, fmt.Errorf("wal.Open: %w", err)
	}

	last, err := log.LastIndex()
	if err != nil {
		_ = log.Close()
		return nil, fmt.Errorf("wal.LastIndex: %w", err)
	}

	return &walJournal[V]{
		log:    log,
		next:   last + 1,
		encode: encode,
		decode: decode,
	}, nil
}

func (j *walJournal[V]) Append(round int64, value V) error {
	payload, err := j.encode(value)
	if err != nil {
		return fmt.Errorf("encode round %d: %w", round, err)
	}
	data := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint64(data[:8], uint64(round))
	copy(data[8:], payload)

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.log.Write(j.next, data); err != nil {
		return fmt.Errorf("wal.Write(%d): %w", j.next, err)
	}
	j.next++
	return nil
}

func (j *walJournal[V]) Replay(fn func(round int64, value V) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	empty, err := j.log.IsEmpty()
	if err != nil {
		return fmt.Errorf("wal.IsEmpty: %w", err)
	}
	if empty {
		return nil
	}

	first, err := j.log.FirstIndex()
	if err != nil {
		return fmt.Errorf("wal.FirstIndex: %w", err)
	}
	last, err := j.log.LastIndex()
	if err != nil {
		return fmt.Errorf("wal.LastIndex: %w", err)
	}

	for idx := first; idx <= last; idx++ {
		data, err := j.log.Read(idx)
		if err != nil {
			return fmt.Errorf("wal.Read(%d): %w", idx, err)
		}
		if len(data) < 8 {
			return fmt.Errorf("journal entry %d is too short", idx)
		}
		value, err := j.decode(data[8:])
		if err != nil {
			return fmt.Errorf("decode journal entry %d: %w", idx, err)
		}
		if err := fn(int64(binary.BigEndian.Uint64(data[:8])), value); err != nil {
			return err
		}
	}
	return nil
}

func (j *walJournal[V]) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.log.Close()
}

// ReplayInto loads every journaled value into log as learned.
func ReplayInto[V comparable](j IJournal[V], log *Log[V]) (int, error) {
	n := 0
	err := j.Replay(func(round int64, value V) error {
		log.setLearned(round, value)
		n++
		return nil
	})
	return n, err
}
