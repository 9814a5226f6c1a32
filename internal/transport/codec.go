package transport

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is the gRPC content-subtype this package registers and expects
// every call to use (via grpc.CallContentSubtype(codecName) on the client;
// Serve forces the same codec on the server with grpc.ForceServerCodec).
const codecName = "json"

// jsonCodec lets this package carry plain Go structs over gRPC without a
// protoc-generated message type. Hand-authoring .pb.go files without being
// able to run protoc risks a broken protoreflect.ProtoMessage
// implementation that could never be verified, so the wire messages here
// are ordinary structs marshaled with encoding/json instead (see
// DESIGN.md). gRPC itself, its stream framing, and its service dispatch are
// otherwise used exactly as with a protobuf codec.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
