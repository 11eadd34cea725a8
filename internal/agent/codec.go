// Package agent manages communication with the out-of-process enforcement
// agent: one-shot request/response calls and a persistent connection used for
// polling and liveness pings. Messages are length-prefixed JSON: a 4-byte
// unsigned integer in native byte order followed by UTF-8 JSON of that length.
package agent

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MaxMessageLen caps accepted messages at 1 MiB, matching the agent's own limit.
const MaxMessageLen = 1024 * 1024

// ReadMessage reads one length-prefixed JSON message from r into v.
func ReadMessage(r io.Reader, v any) error {
	var lenBytes [4]byte
	if _, err := io.ReadFull(r, lenBytes[:]); err != nil {
		return fmt.Errorf("failed to read message length: %w", err)
	}

	length := binary.NativeEndian.Uint32(lenBytes[:])
	if length > MaxMessageLen {
		return fmt.Errorf("message too large: %d bytes (max %d)", length, MaxMessageLen)
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("failed to read message body: %w", err)
	}

	if err := json.Unmarshal(buf, v); err != nil {
		return fmt.Errorf("invalid message JSON: %w", err)
	}
	return nil
}

// WriteMessage writes v as one length-prefixed JSON message to w.
func WriteMessage(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if len(data) > MaxMessageLen {
		return fmt.Errorf("message too large: %d bytes (max %d)", len(data), MaxMessageLen)
	}

	var lenBytes [4]byte
	binary.NativeEndian.PutUint32(lenBytes[:], uint32(len(data)))
	if _, err := w.Write(lenBytes[:]); err != nil {
		return fmt.Errorf("failed to write message length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write message body: %w", err)
	}
	return nil
}
