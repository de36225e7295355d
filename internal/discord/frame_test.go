package discord

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, OpHandshake, []byte(`{"v":1}`)))

	b := buf.Bytes()
	require.Len(t, b, 8+7)
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(b[0:4]))
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(b[4:8]))
	assert.Equal(t, `{"v":1}`, string(b[8:]))
}

func TestReadFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, OpFrame, []byte(`{"cmd":"SET_ACTIVITY"}`)))
	require.NoError(t, WriteFrame(&buf, OpPing, nil))

	op, payload, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, OpFrame, op)
	assert.JSONEq(t, `{"cmd":"SET_ACTIVITY"}`, string(payload))

	op, payload, err = ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, OpPing, op)
	assert.Empty(t, payload)

	_, _, err = ReadFrame(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrame_Truncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, OpFrame, []byte(`{"cmd":"SET_ACTIVITY"}`)))
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-3])

	_, _, err := ReadFrame(truncated)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadFrame_TooLarge(t *testing.T) {
	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], uint32(OpFrame))
	binary.LittleEndian.PutUint32(header[4:8], maxPayload+1)

	_, _, err := ReadFrame(bytes.NewReader(header))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestOpcode_String(t *testing.T) {
	assert.Equal(t, "HANDSHAKE", OpHandshake.String())
	assert.Equal(t, "FRAME", OpFrame.String())
	assert.Equal(t, "CLOSE", OpClose.String())
	assert.Equal(t, "PING", OpPing.String())
	assert.Equal(t, "PONG", OpPong.String())
	assert.Equal(t, "OP(9)", Opcode(9).String())
}
