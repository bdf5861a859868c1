// Package netcodec provides the wire codec pkg/ring forces on every gRPC
// call it makes. The upstream gRPC server this module was grown from
// (pkg/api/grpc in the teacher project) registers protoc-generated
// message types against a generated ServiceDesc; no protoc toolchain or
// .proto sources travel with this codebase (see DESIGN.md), so both the
// ServiceDesc (pkg/ring) and the wire format (here) are hand-written
// instead of generated.
package netcodec

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// Name is the codec's registered name and gRPC's negotiated
// content-subtype; gRPC requires it be lowercase.
const Name = "dlsh-gob"

// Codec implements google.golang.org/grpc/encoding.Codec with
// encoding/gob in place of protobuf. Every message pkg/ring/proto
// defines is a plain exported struct gob can reflect over directly.
type Codec struct{}

func (Codec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("netcodec: marshal: %w", err)
	}
	return buf.Bytes(), nil
}

func (Codec) Unmarshal(data []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("netcodec: unmarshal: %w", err)
	}
	return nil
}

func (Codec) Name() string { return Name }

// init registers Codec under Name so it is available by content-subtype
// negotiation as well as by explicit grpc.ForceServerCodec/ForceCodec,
// which is how pkg/ring actually selects it (subtype negotiation also
// requires client and server to agree out of band, which a direct
// worker-to-worker ring has no use for).
func init() {
	encoding.RegisterCodec(Codec{})
}
