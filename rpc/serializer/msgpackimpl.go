package serializer

import (
	"github.com/panunburn/kv/rpc/common"
	"github.com/ugorji/go/codec"
)

// NewMsgpackSerializer creates a new serializer using the msgpack format
func NewMsgpackSerializer() IRPCSerializer {
	handle := &codec.MsgpackHandle{}
	handle.WriteExt = true
	handle.RawToString = true
	return &msgpackSerializerImpl{handle: handle}
}

// msgpackSerializerImpl implements the IRPCSerializer interface using msgpack.
// Types implementing encoding.BinaryMarshaler (commands and transactions) are
// written with their own binary encoding
type msgpackSerializerImpl struct {
	handle *codec.MsgpackHandle
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (m *msgpackSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	var b []byte
	if err := codec.NewEncoderBytes(&b, m.handle).Encode(msg); err != nil {
		return nil, err
	}
	return b, nil
}

func (m *msgpackSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	return codec.NewDecoderBytes(b, m.handle).Decode(msg)
}
