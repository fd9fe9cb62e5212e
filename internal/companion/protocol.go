// Package companion implements the registry that lets independent
// generation passes share interface and aspect definitions. A single
// registry process per build session serves Get and Set requests over a
// local UDP socket, one CBOR-encoded request per datagram.
package companion

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// MaxPayload is the largest datagram either side sends or accepts.
const MaxPayload = 65507

// Op is the kind of a registry request.
type Op uint8

const (
	OpGet  Op = 1
	OpSet  Op = 2
	OpList Op = 3
	OpPing Op = 4
)

func (o Op) String() string {
	switch o {
	case OpGet:
		return "get"
	case OpSet:
		return "set"
	case OpList:
		return "list"
	case OpPing:
		return "ping"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// Status is the kind of a registry response.
type Status uint8

const (
	StatusString   Status = 1
	StatusAck      Status = 2
	StatusNotFound Status = 3
	StatusError    Status = 4
	StatusKeys     Status = 5
	StatusPong     Status = 6
)

// Request is a single datagram sent to the registry. ID is echoed back in
// the response so a client can drop stray replies.
type Request struct {
	ID    string `cbor:"1,keyasint"`
	Op    Op     `cbor:"2,keyasint"`
	Key   string `cbor:"3,keyasint,omitempty"`
	Value []byte `cbor:"4,keyasint,omitempty"`
}

// Response is a single datagram sent back by the registry.
type Response struct {
	ID      string   `cbor:"1,keyasint"`
	Status  Status   `cbor:"2,keyasint"`
	Value   []byte   `cbor:"3,keyasint,omitempty"`
	Keys    []string `cbor:"4,keyasint,omitempty"`
	Message string   `cbor:"5,keyasint,omitempty"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("companion: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalRequest serializes a Request and enforces the datagram limit.
func MarshalRequest(r *Request) ([]byte, error) {
	data, err := cborEncMode.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("companion: marshal request: %w", err)
	}
	if len(data) > MaxPayload {
		return nil, &PayloadTooLargeError{Key: r.Key, Size: len(data)}
	}
	return data, nil
}

// UnmarshalRequest deserializes a Request.
func UnmarshalRequest(data []byte) (*Request, error) {
	var r Request
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("companion: unmarshal request: %w", err)
	}
	return &r, nil
}

// MarshalResponse serializes a Response and enforces the datagram limit.
func MarshalResponse(r *Response) ([]byte, error) {
	data, err := cborEncMode.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("companion: marshal response: %w", err)
	}
	if len(data) > MaxPayload {
		return nil, &PayloadTooLargeError{Size: len(data)}
	}
	return data, nil
}

// UnmarshalResponse deserializes a Response.
func UnmarshalResponse(data []byte) (*Response, error) {
	var r Response
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("companion: unmarshal response: %w", err)
	}
	return &r, nil
}

// Marshal encodes an arbitrary registry value with the same canonical mode
// used on the wire.
func Marshal(v interface{}) ([]byte, error) {
	return cborEncMode.Marshal(v)
}

// Unmarshal decodes a registry value.
func Unmarshal(data []byte, v interface{}) error {
	return cbor.Unmarshal(data, v)
}
