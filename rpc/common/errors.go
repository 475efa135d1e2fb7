package common

import (
	"errors"
	"github.com/panunburn/kv/lib/paxos"
	"github.com/panunburn/kv/lib/protocol"
	"github.com/panunburn/kv/lib/replication"
)

// ErrCode classifies the error carried by a response, so that the calling
// side can rebuild an error matching the original sentinel.
type ErrCode uint8

const (
	ErrCNone             ErrCode = iota // No error
	ErrCInternal                        // Any error without a more specific code
	ErrCInvalidRequest                  // protocol.ErrInvalidRequest
	ErrCTransactionAbort                // replication.ErrTransactionAbort
	ErrCShuttingDown                    // replication.ErrShuttingDown
	ErrCUnreachable                     // replication.ErrUnreachable
	ErrCRejected                        // paxos.ErrRejected
	ErrCUnavailable                     // paxos.ErrUnavailable
	ErrCProtocol                        // paxos.ErrProtocol
)

var codeSentinels = []struct {
	code ErrCode
	err  error
}{
	{ErrCInvalidRequest, protocol.ErrInvalidRequest},
	{ErrCTransactionAbort, replication.ErrTransactionAbort},
	{ErrCShuttingDown, replication.ErrShuttingDown},
	{ErrCUnreachable, replication.ErrUnreachable},
	{ErrCRejected, paxos.ErrRejected},
	{ErrCUnavailable, paxos.ErrUnavailable},
	{ErrCProtocol, paxos.ErrProtocol},
}

// CodeOf returns the code of err.
func CodeOf(err error) ErrCode {
	if err == nil {
		return ErrCNone
	}
	for _, cs := range codeSentinels {
		if errors.Is(err, cs.err) {
			return cs.code
		}
	}
	return ErrCInternal
}

// RemoteError is an error returned by a remote node. It unwraps to the
// sentinel matching its code.
type RemoteError struct {
	Code ErrCode
	Msg  string
}

func (e *RemoteError) Error() string {
	return e.Msg
}

func (e *RemoteError) Unwrap() error {
	for _, cs := range codeSentinels {
		if cs.code == e.Code {
			return cs.err
		}
	}
	return nil
}

// Error returns the error carried by the message, or nil.
func (m *Message) Error() error {
	if m.Err == "" && m.Code == ErrCNone {
		return nil
	}
	return &RemoteError{Code: m.Code, Msg: m.Err}
}
