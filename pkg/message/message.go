// Package message defines the wire envelope shared by every transport:
// a small header map plus an opaque payload, serializable either as JSON
// or as a length-prefixed binary frame.
package message

import (
	"bytes"
	"encoding/binary"
	"fmt"

	json "github.com/goccy/go-json"

	pynerr "github.com/pynector/pynector-go/pkg/errors"
)

// Message is the transport-agnostic envelope passed to Transport.Send and
// returned (reassembled) from Transport.Receive.
type Message struct {
	Headers map[string]any
	Payload []byte
}

type jsonEnvelope struct {
	Headers map[string]any `json:"headers"`
	Payload []byte         `json:"payload"`
}

// SerializeJSON encodes m as a JSON object with "headers" and "payload"
// keys. Payload is base64-encoded by the JSON encoder's []byte handling.
func (m Message) SerializeJSON() ([]byte, error) {
	env := jsonEnvelope{Headers: m.Headers, Payload: m.Payload}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, pynerr.NewSerializationError("failed to marshal message to JSON", err)
	}
	return b, nil
}

// DeserializeJSON decodes a JSON object previously produced by
// SerializeJSON. The root value must be a JSON object; anything else
// (array, scalar, malformed JSON) is rejected.
func DeserializeJSON(data []byte) (Message, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Message{}, pynerr.NewDeserializationError("message root must be a JSON object", nil)
	}
	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, pynerr.NewDeserializationError("failed to unmarshal message from JSON", err)
	}
	return Message{Headers: env.Headers, Payload: env.Payload}, nil
}

// SerializeBinary encodes m as a length-prefixed binary frame:
//
//	4 bytes  big-endian header length (N)
//	N bytes  JSON-encoded headers map
//	4 bytes  big-endian payload length (M)
//	M bytes  payload
func (m Message) SerializeBinary() ([]byte, error) {
	headerBytes, err := json.Marshal(m.Headers)
	if err != nil {
		return nil, pynerr.NewSerializationError("failed to marshal message headers", err)
	}

	out := make([]byte, 0, 8+len(headerBytes)+len(m.Payload))
	var lenBuf [4]byte

	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(headerBytes)))
	out = append(out, lenBuf[:]...)
	out = append(out, headerBytes...)

	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(m.Payload)))
	out = append(out, lenBuf[:]...)
	out = append(out, m.Payload...)

	return out, nil
}

// DeserializeBinary decodes a frame previously produced by SerializeBinary.
// Any truncation (short header-length prefix, short header block, short
// payload-length prefix, or short payload) is reported as a
// DeserializationError naming how many bytes were actually available.
func DeserializeBinary(data []byte) (Message, error) {
	const lenPrefixSize = 4

	if len(data) < lenPrefixSize {
		return Message{}, pynerr.NewDeserializationError(
			fmt.Sprintf("frame too short for header length prefix: got %d bytes, need %d", len(data), lenPrefixSize), nil)
	}
	headerLen := int(binary.BigEndian.Uint32(data[:lenPrefixSize]))
	offset := lenPrefixSize

	if len(data) < offset+headerLen {
		return Message{}, pynerr.NewDeserializationError(
			fmt.Sprintf("frame too short for header block: got %d bytes after prefix, need %d", len(data)-offset, headerLen), nil)
	}
	headerBytes := data[offset : offset+headerLen]
	offset += headerLen

	if len(data) < offset+lenPrefixSize {
		return Message{}, pynerr.NewDeserializationError(
			fmt.Sprintf("frame too short for payload length prefix: got %d bytes, need %d", len(data)-offset, lenPrefixSize), nil)
	}
	payloadLen := int(binary.BigEndian.Uint32(data[offset : offset+lenPrefixSize]))
	offset += lenPrefixSize

	if len(data) < offset+payloadLen {
		return Message{}, pynerr.NewDeserializationError(
			fmt.Sprintf("frame too short for payload: got %d bytes, need %d", len(data)-offset, payloadLen), nil)
	}
	payload := data[offset : offset+payloadLen]

	var headers map[string]any
	if len(headerBytes) > 0 {
		if err := json.Unmarshal(headerBytes, &headers); err != nil {
			return Message{}, pynerr.NewDeserializationError("failed to unmarshal binary frame headers", err)
		}
	}

	payloadCopy := make([]byte, len(payload))
	copy(payloadCopy, payload)

	return Message{Headers: headers, Payload: payloadCopy}, nil
}
