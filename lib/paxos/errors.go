package paxos

import "errors"

var (
	// ErrRejected is returned when an acceptor declines a prepare or accept.
	ErrRejected = errors.New("rejected")
	// ErrUnavailable is returned when an acceptor simulates a crash.
	ErrUnavailable = errors.New("unavailable")
	// ErrProtocol is returned for an accept on a round that was never prepared.
	ErrProtocol = errors.New("protocol error")
	// ErrProposerFailed is returned when the proposer itself fails between phases.
	ErrProposerFailed = errors.New("proposer failed")
	// ErrNoQuorum is returned when too few acceptors are left to accept a proposal.
	ErrNoQuorum = errors.New("no quorum")
)

// IsNoResponse reports whether err is a decline or a simulated crash.
// Both are handled identically by proposers.
func IsNoResponse(err error) bool {
	return errors.Is(err, ErrRejected) || errors.Is(err, ErrUnavailable)
}
