package serializer

import "fmt"

// New returns the serializer registered under name (msgpack, json or gob)
func New(name string) (IRPCSerializer, error) {
	switch name {
	case "msgpack", "":
		return NewMsgpackSerializer(), nil
	case "json":
		return NewJSONSerializer(), nil
	case "gob":
		return NewGOBSerializer(), nil
	default:
		return nil, fmt.Errorf("unknown serializer %q. must be one of msgpack, json, gob", name)
	}
}
