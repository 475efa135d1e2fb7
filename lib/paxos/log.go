package paxos

import (
	"sort"
	"sync"
)

// Log holds the acceptor records and learned values of every round a node
// has seen. It is safe for concurrent use.
type Log[V comparable] struct {
	mu      sync.RWMutex
	records map[int64]Record[V]
	learned map[int64]V
}

// NewLog returns an empty log.
func NewLog[V comparable]() *Log[V] {
	return &Log[V]{
		records: make(map[int64]Record[V]),
		learned: make(map[int64]V),
	}
}

// Record returns the record of round.
func (l *Log[V]) Record(round int64) (Record[V], bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.records[round]
	return r, ok
}

func (l *Log[V]) setRecord(round int64, r Record[V]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[round] = r
}

// Learned returns the value learned for round.
func (l *Log[V]) Learned(round int64) (V, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.learned[round]
	return v, ok
}

func (l *Log[V]) setLearned(round int64, v V) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.learned[round] = v
}

// NextRound returns the highest round known to the log plus one.
// The first round is 1.
func (l *Log[V]) NextRound() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var maxRound int64
	for r := range l.records {
		maxRound = max(maxRound, r)
	}
	for r := range l.learned {
		maxRound = max(maxRound, r)
	}
	return maxRound + 1
}

// Rounds returns the rounds that have a record, in ascending order.
func (l *Log[V]) Rounds() []int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rounds := make([]int64, 0, len(l.records))
	for r := range l.records {
		rounds = append(rounds, r)
	}
	sort.Slice(rounds, func(i, j int) bool { return rounds[i] < rounds[j] })
	return rounds
}

// Records returns a copy of all round records.
func (l *Log[V]) Records() map[int64]Record[V] {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[int64]Record[V], len(l.records))
	for r, rec := range l.records {
		if rec.Accepted != nil {
			p := *rec.Accepted
			rec.Accepted = &p
		}
		out[r] = rec
	}
	return out
}

// LearnedValues returns a copy of all learned values.
func (l *Log[V]) LearnedValues() map[int64]V {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[int64]V, len(l.learned))
	for r, v := range l.learned {
		out[r] = v
	}
	return out
}

// Restore replaces the contents of the log.
func (l *Log[V]) Restore(records map[int64]Record[V], learned map[int64]V) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = make(map[int64]Record[V], len(records))
	for r, rec := range records {
		l.records[r] = rec
	}
	l.learned = make(map[int64]V, len(learned))
	for r, v := range learned {
		l.learned[r] = v
	}
}
