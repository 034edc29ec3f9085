// SPDX-License-Identifier: AGPL-3.0-or-later
package protocol_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/termchat/termchat/internal/protocol"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	payload := []byte("hello termchat")
	require.NoError(t, protocol.Encode(&buf, protocol.TypePing, 0, nil))
	require.NoError(t, protocol.Encode(&buf, protocol.TypeClientCapabilities, 7, payload))

	p1, err := protocol.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, protocol.TypePing, p1.Type)
	require.Equal(t, uint32(0), p1.ClientID)
	require.Empty(t, p1.Payload)

	p2, err := protocol.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, protocol.TypeClientCapabilities, p2.Type)
	require.Equal(t, uint32(7), p2.ClientID)
	require.Equal(t, payload, p2.Payload)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, protocol.Encode(&buf, protocol.TypePing, 0, nil))
	b := buf.Bytes()
	b[0] ^= 0xFF

	_, err := protocol.Decode(bytes.NewReader(b))
	require.Error(t, err)
	var perr *protocol.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, protocol.ErrKindProtocol, perr.Kind)
}

func TestDecodeRejectsLengthOverCap(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, protocol.Encode(&buf, protocol.TypeClientCapabilities, 1, []byte("x")))
	b := buf.Bytes()
	// Overwrite the length field with something past MaxPayloadLen.
	b[6], b[7], b[8], b[9] = 0xFF, 0xFF, 0xFF, 0xFF

	_, err := protocol.Decode(bytes.NewReader(b))
	require.Error(t, err)
}

func TestDecodeDetectsSingleBitFlipInPayload(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, protocol.Encode(&buf, protocol.TypeClientCapabilities, 1, []byte("unflipped payload")))
	b := buf.Bytes()
	b[len(b)-1] ^= 0x01 // flip one bit in the payload, leaving the CRC stale

	_, err := protocol.Decode(bytes.NewReader(b))
	require.Error(t, err)
	var perr *protocol.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, protocol.ErrKindProtocol, perr.Kind)
}

func TestDecodeRejectsEmptyPayloadOnNonControlType(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, protocol.Encode(&buf, protocol.TypeImageFrame, 1, nil))
	_, err := protocol.Decode(&buf)
	require.Error(t, err)
}

func TestControlTypesAllowEmptyPayload(t *testing.T) {
	t.Parallel()
	for _, typ := range []protocol.Type{
		protocol.TypePing, protocol.TypePong, protocol.TypeClientLeave,
		protocol.TypeStreamStart, protocol.TypeStreamStop,
	} {
		var buf bytes.Buffer
		require.NoError(t, protocol.Encode(&buf, typ, 1, nil))
		p, err := protocol.Decode(&buf)
		require.NoError(t, err)
		require.Equal(t, typ, p.Type)
	}
}

func TestIsHandshakeFixedPredicate(t *testing.T) {
	t.Parallel()
	require.True(t, protocol.TypeProtocolVersion.IsHandshake())
	require.True(t, protocol.TypeHandshakeComplete.IsHandshake())
	require.False(t, protocol.TypeImageFrame.IsHandshake())
	require.False(t, protocol.TypeEncrypted.IsHandshake())
}

func TestServerOnlyTypesRejectedFromClient(t *testing.T) {
	t.Parallel()
	require.True(t, protocol.TypeServerState.IsServerOnly())
	require.True(t, protocol.TypeClearConsole.IsServerOnly())
	require.False(t, protocol.TypePing.IsServerOnly())
}
