package replication

import "errors"

var (
	// ErrTransactionAbort is returned by Broadcast when a node voted against
	// the write. No store was modified and the write can be retried.
	ErrTransactionAbort = errors.New("transaction aborted")
	// ErrUnreachable is returned by remote handles when a peer did not answer
	// in time.
	ErrUnreachable = errors.New("peer unreachable")
	// ErrShuttingDown is returned once the coordinator was shut down.
	ErrShuttingDown = errors.New("shutting down")
)
