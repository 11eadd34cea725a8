package agent

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	req := Request{
		Type:            TypeStartSession,
		Mode:            "strict",
		DurationMinutes: 25,
		ScheduledID:     "sched-1",
		Locked:          true,
	}
	require.NoError(t, WriteMessage(&buf, req))

	// 4-byte length prefix followed by exactly that many bytes.
	prefix := binary.NativeEndian.Uint32(buf.Bytes()[:4])
	assert.Equal(t, int(prefix), buf.Len()-4)

	var got Request
	require.NoError(t, ReadMessage(&buf, &got))
	assert.Equal(t, req, got)
}

func TestReadMessageRejectsOversized(t *testing.T) {
	var buf bytes.Buffer
	var lenBytes [4]byte
	binary.NativeEndian.PutUint32(lenBytes[:], MaxMessageLen+1)
	buf.Write(lenBytes[:])

	var v Response
	err := ReadMessage(&buf, &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestReadMessageTruncatedBody(t *testing.T) {
	var buf bytes.Buffer
	var lenBytes [4]byte
	binary.NativeEndian.PutUint32(lenBytes[:], 100)
	buf.Write(lenBytes[:])
	buf.WriteString(`{"status":"OK"}`)

	var v Response
	assert.Error(t, ReadMessage(&buf, &v))
}

func TestReadMessageInvalidJSON(t *testing.T) {
	var buf bytes.Buffer
	body := []byte("not json")
	var lenBytes [4]byte
	binary.NativeEndian.PutUint32(lenBytes[:], uint32(len(body)))
	buf.Write(lenBytes[:])
	buf.Write(body)

	var v Response
	assert.Error(t, ReadMessage(&buf, &v))
}

func TestRequestOmitsEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, Request{Type: TypePing}))

	assert.Equal(t, `{"type":"PING"}`, string(buf.Bytes()[4:]))
}
