package paxos

import (
	"math/rand"
	"sync"
	"time"
)

// IFailureInjector decides whether a consensus step should behave as if the
// node had crashed.
type IFailureInjector interface {
	// MightFail reports whether the current step fails.
	MightFail() bool
}

type noFailures struct{}

// NoFailures returns an injector that never fails.
func NoFailures() IFailureInjector { return noFailures{} }

func (noFailures) MightFail() bool { return false }

type randomFailures struct {
	mu   sync.Mutex
	rnd  *rand.Rand
	rate int
}

// NewRandomFailures returns an injector that fails ratePercent percent of the
// steps. A rate of 0 or less never fails.
func NewRandomFailures(ratePercent int) IFailureInjector {
	if ratePercent <= 0 {
		return NoFailures()
	}
	return &randomFailures{
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
		rate: min(ratePercent, 100),
	}
}

func (f *randomFailures) MightFail() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rnd.Intn(100) < f.rate
}
