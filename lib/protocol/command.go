package protocol

import (
	"encoding/binary"
	"fmt"
)

// Kind identifies the variant of a Command.
type Kind uint8

const (
	KindGet    Kind = iota + 1 // Read a key from the local store.
	KindPut                    // Insert or update a key.
	KindDelete                 // Delete a key.
	KindPrint                  // Dump the replicated state on every node.
)

func (k Kind) String() string {
	switch k {
	case KindGet:
		return "GET"
	case KindPut:
		return "PUT"
	case KindDelete:
		return "DELETE"
	case KindPrint:
		return "PRINT"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// Command is a single client request. Which fields are meaningful depends on Kind:
// Get and Delete use Key, Put uses Key and Value, Print uses neither.
// Command is comparable so it can be used as a consensus value.
type Command struct {
	Kind  Kind   `json:"kind"`
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`
}

// Get returns a command reading key.
func Get(key string) Command { return Command{Kind: KindGet, Key: key} }

// Put returns a command storing value under key.
func Put(key, value string) Command { return Command{Kind: KindPut, Key: key, Value: value} }

// Delete returns a command removing key.
func Delete(key string) Command { return Command{Kind: KindDelete, Key: key} }

// Print returns a command dumping the replicated state.
func Print() Command { return Command{Kind: KindPrint} }

// Validate checks that the fields required by the command kind are present.
func (c Command) Validate() error {
	switch c.Kind {
	case KindGet, KindDelete:
		if c.Key == "" {
			return fmt.Errorf("%w: %s requires a key", ErrInvalidRequest, c.Kind)
		}
	case KindPut:
		if c.Key == "" {
			return fmt.Errorf("%w: PUT requires a key", ErrInvalidRequest)
		}
	case KindPrint:
	default:
		return fmt.Errorf("%w: unknown command kind %d", ErrInvalidRequest, uint8(c.Kind))
	}
	return nil
}

// IsWrite reports whether the command must be committed cluster-wide.
// Print counts as a write: it is broadcast so that every node dumps its state.
func (c Command) IsWrite() bool {
	switch c.Kind {
	case KindPut, KindDelete, KindPrint:
		return true
	default:
		return false
	}
}

func (c Command) String() string {
	switch c.Kind {
	case KindGet, KindDelete:
		return fmt.Sprintf("%s %s", c.Kind, c.Key)
	case KindPut:
		return fmt.Sprintf("%s %s %s", c.Kind, c.Key, c.Value)
	default:
		return c.Kind.String()
	}
}

// WriteKey returns the single key the command would modify.
// The boolean is false for reads and for commands without a key.
func WriteKey(c Command) (string, bool) {
	switch c.Kind {
	case KindPut, KindDelete:
		return c.Key, true
	case KindGet, KindPrint:
		return "", false
	default:
		return "", false
	}
}

// --------------------------------------------------------------------------
// Binary Encoding
// --------------------------------------------------------------------------

// commandHeaderSize is 1 byte kind + 4 bytes key length.
const commandHeaderSize = 1 + 4

// SizeBytes returns the exact number of bytes MarshalBinary produces.
func (c Command) SizeBytes() int {
	return commandHeaderSize + len(c.Key) + len(c.Value)
}

// MarshalBinary encodes the command as:
// 1 byte kind,
// 4 bytes key length (big endian),
// N bytes key,
// the remaining bytes are the value.
func (c Command) MarshalBinary() ([]byte, error) {
	result := make([]byte, c.SizeBytes())
	result[0] = byte(c.Kind)
	binary.BigEndian.PutUint32(result[1:5], uint32(len(c.Key)))
	copy(result[commandHeaderSize:], c.Key)
	copy(result[commandHeaderSize+len(c.Key):], c.Value)
	return result, nil
}

// UnmarshalBinary decodes a command produced by MarshalBinary.
func (c *Command) UnmarshalBinary(data []byte) error {
	if len(data) < commandHeaderSize {
		return fmt.Errorf("data too short for command")
	}
	keyLen := int(binary.BigEndian.Uint32(data[1:5]))
	if len(data) < commandHeaderSize+keyLen {
		return fmt.Errorf("data too short for key of length %d", keyLen)
	}
	c.Kind = Kind(data[0])
	c.Key = string(data[commandHeaderSize : commandHeaderSize+keyLen])
	c.Value = string(data[commandHeaderSize+keyLen:])
	return nil
}

// --------------------------------------------------------------------------
// Transaction
// --------------------------------------------------------------------------

// Transaction is a command tagged with the id the coordinator assigned when it
// was broadcast. It is the value agreed on by consensus, so two identical
// commands committed one after another occupy two log rounds.
type Transaction struct {
	ID      string  `json:"id"`
	Command Command `json:"command"`
}

func (t Transaction) String() string {
	return fmt.Sprintf("%s [%s]", t.Command, t.ID)
}

// MarshalBinary encodes the transaction as a 2 byte id length, the id and the
// binary encoded command.
func (t Transaction) MarshalBinary() ([]byte, error) {
	cmd, err := t.Command.MarshalBinary()
	if err != nil {
		return nil, err
	}
	result := make([]byte, 2+len(t.ID)+len(cmd))
	binary.BigEndian.PutUint16(result[0:2], uint16(len(t.ID)))
	copy(result[2:], t.ID)
	copy(result[2+len(t.ID):], cmd)
	return result, nil
}

// UnmarshalBinary decodes a transaction produced by MarshalBinary.
func (t *Transaction) UnmarshalBinary(data []byte) error {
	if len(data) < 2 {
		return fmt.Errorf("data too short for transaction")
	}
	idLen := int(binary.BigEndian.Uint16(data[0:2]))
	if len(data) < 2+idLen {
		return fmt.Errorf("data too short for transaction id of length %d", idLen)
	}
	t.ID = string(data[2 : 2+idLen])
	return t.Command.UnmarshalBinary(data[2+idLen:])
}

// --------------------------------------------------------------------------
// Result
// --------------------------------------------------------------------------

// Result is the outcome of processing a command. For Put and Delete, Value is
// the previous value and Found reports whether there was one.
type Result struct {
	Value string `json:"value,omitempty"`
	Found bool   `json:"found,omitempty"`
}

// Describe renders the result the way the command line client shows it.
func (r Result) Describe(c Command) string {
	switch c.Kind {
	case KindGet:
		if !r.Found {
			return fmt.Sprintf("%s is not set", c.Key)
		}
		return r.Value
	case KindPut:
		if !r.Found {
			return fmt.Sprintf("%s set to %s", c.Key, c.Value)
		}
		return fmt.Sprintf("%s set to %s (was %s)", c.Key, c.Value, r.Value)
	case KindDelete:
		if !r.Found {
			return fmt.Sprintf("%s was not set", c.Key)
		}
		return fmt.Sprintf("%s deleted (was %s)", c.Key, r.Value)
	case KindPrint:
		return "state printed on every node"
	default:
		return ""
	}
}
