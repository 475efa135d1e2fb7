package common

import (
	"encoding/json"
	"fmt"
	"github.com/panunburn/kv/lib/paxos"
	"github.com/panunburn/kv/lib/protocol"
	"github.com/panunburn/kv/lib/replication"
)

// --------------------------------------------------------------------------
// Service IDs
// --------------------------------------------------------------------------

// Every node serves several services behind one transport. The service id is
// carried in the frame header (or the URL for http) and selects the adapter.
const (
	ServiceCoordinator uint64 = iota + 1 // ICoordinator, served by the coordinator node
	ServiceReplica                       // IReplica, served by replica nodes
	ServiceGateway                       // IGateway, served by every node
	ServiceIDSource                      // IIdSource, served by the id server
)

// ServiceName returns a readable name for a service id.
func ServiceName(serviceID uint64) string {
	switch serviceID {
	case ServiceCoordinator:
		return "coordinator"
	case ServiceReplica:
		return "replica"
	case ServiceGateway:
		return "gateway"
	case ServiceIDSource:
		return "ids"
	default:
		return fmt.Sprintf("service-%d", serviceID)
	}
}

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// Membership fields
	Addr     string                `json:"addr,omitempty"`     // Used for: Connect, Register, Disconnect, Add, Remove
	Snapshot *replication.Snapshot `json:"snapshot,omitempty"` // Used for: Connect (response)

	// Command fields
	Command *protocol.Command     `json:"command,omitempty"` // Used for: Broadcast, Process
	Tx      *protocol.Transaction `json:"tx,omitempty"`      // Used for: Validate, Commit, Abort, Learn, Accept (response)

	// Consensus fields
	Round    int64                                 `json:"round,omitempty"`    // Used for: Prepare, Accept, Learn
	ID       int64                                 `json:"id,omitempty"`       // Used for: Prepare, NextID (response)
	Proposal *paxos.Proposal[protocol.Transaction] `json:"proposal,omitempty"` // Used for: Accept (request), Prepare (response)

	// Response only fields
	Value string  `json:"value,omitempty"` // Used for: Broadcast, Process responses
	Ok    bool    `json:"ok,omitempty"`    // Used for: Validate, Broadcast, Process responses
	Code  ErrCode `json:"code,omitempty"`  // Classifies Err so the caller can match it
	Err   string  `json:"err,omitempty"`   // Empty if no error, otherwise contains the error message
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewResponse creates a response of the given type carrying err, if any.
func NewResponse(msgType MessageType, err error) *Message {
	msg := &Message{MsgType: msgType}
	msg.SetError(err)
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err error) *Message {
	msg := &Message{MsgType: MsgTError}
	msg.SetError(err)
	if msg.Code == ErrCNone {
		msg.Code = ErrCInternal
	}
	return msg
}

// SetError stores err and its code in the message.
func (m *Message) SetError(err error) {
	if err == nil {
		return
	}
	m.Err = err.Error()
	m.Code = CodeOf(err)
}

// NewConnectRequest creates a new Connect request
func NewConnectRequest(addr protocol.Address) *Message {
	return &Message{MsgType: MsgTConnect, Addr: addr.String()}
}

// NewConnectResponse creates a new Connect response
func NewConnectResponse(snapshot replication.Snapshot, err error) *Message {
	msg := NewResponse(MsgTConnect, err)
	if err == nil {
		msg.Snapshot = &snapshot
	}
	return msg
}

// NewRegisterRequest creates a new Register request
func NewRegisterRequest(addr protocol.Address) *Message {
	return &Message{MsgType: MsgTRegister, Addr: addr.String()}
}

// NewDisconnectRequest creates a new Disconnect request
func NewDisconnectRequest(addr protocol.Address) *Message {
	return &Message{MsgType: MsgTDisconnect, Addr: addr.String()}
}

// NewShutdownRequest creates a new Shutdown request
func NewShutdownRequest() *Message {
	return &Message{MsgType: MsgTShutdown}
}

// NewBroadcastRequest creates a new Broadcast request
func NewBroadcastRequest(cmd protocol.Command) *Message {
	return &Message{MsgType: MsgTBroadcast, Command: &cmd}
}

// NewProcessRequest creates a new Process request
func NewProcessRequest(cmd protocol.Command) *Message {
	return &Message{MsgType: MsgTProcess, Command: &cmd}
}

// NewResultResponse creates a Broadcast or Process response
func NewResultResponse(msgType MessageType, result protocol.Result, err error) *Message {
	msg := NewResponse(msgType, err)
	msg.Value = result.Value
	msg.Ok = result.Found
	return msg
}

// Result returns the command result carried by a Broadcast or Process response.
func (m *Message) Result() protocol.Result {
	return protocol.Result{Value: m.Value, Found: m.Ok}
}

// NewAddRequest creates a new Add request
func NewAddRequest(addr protocol.Address) *Message {
	return &Message{MsgType: MsgTAdd, Addr: addr.String()}
}

// NewRemoveRequest creates a new Remove request
func NewRemoveRequest(addr protocol.Address) *Message {
	return &Message{MsgType: MsgTRemove, Addr: addr.String()}
}

// NewTxRequest creates a Validate, Commit or Abort request
func NewTxRequest(msgType MessageType, tx protocol.Transaction) *Message {
	return &Message{MsgType: msgType, Tx: &tx}
}

// NewValidateResponse creates a new Validate response
func NewValidateResponse(vote bool, err error) *Message {
	msg := NewResponse(MsgTValidate, err)
	msg.Ok = vote
	return msg
}

// NewPrepareRequest creates a new Prepare request
func NewPrepareRequest(round, id int64) *Message {
	return &Message{MsgType: MsgTPrepare, Round: round, ID: id}
}

// NewPrepareResponse creates a new Prepare response
func NewPrepareResponse(promise paxos.Promise[protocol.Transaction], err error) *Message {
	msg := NewResponse(MsgTPrepare, err)
	msg.ID = promise.ID
	msg.Proposal = promise.Accepted
	return msg
}

// Promise returns the promise carried by a Prepare response.
func (m *Message) Promise() paxos.Promise[protocol.Transaction] {
	return paxos.Promise[protocol.Transaction]{ID: m.ID, Accepted: m.Proposal}
}

// NewAcceptRequest creates a new Accept request
func NewAcceptRequest(round int64, proposal paxos.Proposal[protocol.Transaction]) *Message {
	return &Message{MsgType: MsgTAccept, Round: round, Proposal: &proposal}
}

// NewAcceptResponse creates a new Accept response
func NewAcceptResponse(value protocol.Transaction, err error) *Message {
	msg := NewResponse(MsgTAccept, err)
	if err == nil {
		msg.Tx = &value
	}
	return msg
}

// NewLearnRequest creates a new Learn request
func NewLearnRequest(round int64, value protocol.Transaction) *Message {
	return &Message{MsgType: MsgTLearn, Round: round, Tx: &value}
}

// NewNextIDRequest creates a new NextID request
func NewNextIDRequest() *Message {
	return &Message{MsgType: MsgTNextID}
}

// NewNextIDResponse creates a new NextID response
func NewNextIDResponse(id int64, err error) *Message {
	msg := NewResponse(MsgTNextID, err)
	msg.ID = id
	return msg
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

var messageTypeNames = map[MessageType]string{
	MsgTSuccess:    "success",
	MsgTError:      "error",
	MsgTConnect:    "connect",
	MsgTRegister:   "register",
	MsgTDisconnect: "disconnect",
	MsgTShutdown:   "shutdown",
	MsgTBroadcast:  "broadcast",
	MsgTAdd:        "add",
	MsgTRemove:     "remove",
	MsgTValidate:   "validate",
	MsgTCommit:     "commit",
	MsgTAbort:      "abort",
	MsgTPrepare:    "prepare",
	MsgTAccept:     "accept",
	MsgTLearn:      "learn",
	MsgTProcess:    "process",
	MsgTNextID:     "nextId",
}

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for msgType, name := range messageTypeNames {
		if name == s {
			*t = msgType
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types
	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// ICoordinator operations
	MsgTConnect    // Join as partially joined node
	MsgTRegister   // Complete a join
	MsgTDisconnect // Leave the cluster
	MsgTShutdown   // Shut down (coordinator or replica)
	MsgTBroadcast  // Commit a command cluster-wide

	// IReplica operations
	MsgTAdd      // A node joined
	MsgTRemove   // A node left
	MsgTValidate // Vote on a transaction
	MsgTCommit   // Apply a transaction
	MsgTAbort    // Drop a transaction

	// IAcceptor operations
	MsgTPrepare // Paxos phase 1
	MsgTAccept  // Paxos phase 2
	MsgTLearn   // Paxos phase 3

	// IGateway operations
	MsgTProcess // Process a client command

	// IIdSource operations
	MsgTNextID // Mint a proposal id
)
