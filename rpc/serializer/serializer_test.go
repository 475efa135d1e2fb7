package serializer

import (
	"github.com/panunburn/kv/lib/paxos"
	"github.com/panunburn/kv/lib/protocol"
	"github.com/panunburn/kv/lib/replication"
	"github.com/panunburn/kv/rpc/common"
	"github.com/stretchr/testify/require"
	"testing"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":    NewJSONSerializer,
	"GOB":     NewGOBSerializer,
	"Msgpack": NewMsgpackSerializer,
}

func testTx(id string, cmd protocol.Command) protocol.Transaction {
	return protocol.Transaction{ID: id, Command: cmd}
}

// testMessages creates a set of test messages with different fields filled
func testMessages() map[string]common.Message {
	tx := testTx("0b5c", protocol.Put("key", "value"))
	return map[string]common.Message{
		"Success": {MsgType: common.MsgTSuccess},
		"Broadcast": {
			MsgType: common.MsgTBroadcast,
			Command: &protocol.Command{Kind: protocol.KindPut, Key: "k", Value: "v v"},
		},
		"Process": {
			MsgType: common.MsgTProcess,
			Command: &protocol.Command{Kind: protocol.KindGet, Key: "k"},
		},
		"ProcessResponse": {
			MsgType: common.MsgTProcess,
			Value:   "v",
			Ok:      true,
		},
		"Validate": {
			MsgType: common.MsgTValidate,
			Tx:      &tx,
		},
		"Prepare": {
			MsgType: common.MsgTPrepare,
			Round:   7,
			ID:      42,
		},
		"PrepareResponse": {
			MsgType:  common.MsgTPrepare,
			ID:       42,
			Proposal: &paxos.Proposal[protocol.Transaction]{ID: 41, Value: tx},
		},
		"Add": {
			MsgType: common.MsgTAdd,
			Addr:    "127.0.0.1:9001",
		},
		"Error": {
			MsgType: common.MsgTError,
			Code:    common.ErrCTransactionAbort,
			Err:     "transaction aborted: PUT key value",
		},
		"ConnectResponse": {
			MsgType: common.MsgTConnect,
			Snapshot: &replication.Snapshot{
				Entries: map[string]string{"a": "b", "c": ""},
				Members: []protocol.Address{{Host: "127.0.0.1", Port: 9001}, {Host: "node-2", Port: 8080}},
				Rounds: map[int64]paxos.Record[protocol.Transaction]{
					1: {Promised: 3, Accepted: &paxos.Proposal[protocol.Transaction]{ID: 3, Value: tx}},
					2: {Promised: 5},
				},
				Learned: map[int64]protocol.Transaction{1: tx},
			},
		},
	}
}

func TestSerializerRoundTrip(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for msgName, msg := range testMessages() {
				t.Run(msgName, func(t *testing.T) {
					data, err := serializer.Serialize(msg)
					require.NoError(t, err)

					var result common.Message
					require.NoError(t, serializer.Deserialize(data, &result))
					require.Equal(t, msg, result)
				})
			}
		})
	}
}

func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			// MsgTUnknown is skipped, json refuses unknown names
			for msgType := common.MsgTSuccess; msgType <= common.MsgTNextID; msgType++ {
				data, err := serializer.Serialize(common.Message{MsgType: msgType})
				require.NoError(t, err, msgType.String())

				var result common.Message
				require.NoError(t, serializer.Deserialize(data, &result), msgType.String())
				require.Equal(t, msgType, result.MsgType)
			}
		})
	}
}

func TestErrorSurvivesRoundTrip(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			data, err := serializer.Serialize(*common.NewErrorResponse(paxos.ErrRejected))
			require.NoError(t, err)

			var result common.Message
			require.NoError(t, serializer.Deserialize(data, &result))
			require.ErrorIs(t, result.Error(), paxos.ErrRejected)
		})
	}
}

func TestInvalidData(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			var msg common.Message
			require.Error(t, factory().Deserialize([]byte{0xc1, 0xff, 0x00}, &msg))
		})
	}
}

func TestNew(t *testing.T) {
	for _, name := range []string{"", "msgpack", "json", "gob"} {
		s, err := New(name)
		require.NoError(t, err)
		require.NotNil(t, s)
	}
	_, err := New("binary")
	require.Error(t, err)
}
