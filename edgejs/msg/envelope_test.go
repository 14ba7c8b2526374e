package msg

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	req, err := NewRequest(42, true, KindTimerStart, TimerStart{ID: 7, Delay: 100})
	require.NoError(t, err)

	wire, err := Encode(req)
	require.NoError(t, err)

	decoded, err := Decode(wire)
	require.NoError(t, err)

	assert.Equal(t, req.CmdID, decoded.CmdID)
	assert.Equal(t, req.Sync, decoded.Sync)
	assert.Equal(t, req.Kind, decoded.Kind)
	assert.False(t, decoded.IsError())

	var payload TimerStart
	require.NoError(t, DecodePayload(decoded, &payload))
	assert.Equal(t, uint32(7), payload.ID)
	assert.Equal(t, uint32(100), payload.Delay)
}

func TestNewErrorPreservesCmdID(t *testing.T) {
	req := &Envelope{CmdID: 9, Sync: false, Kind: KindCacheGet}
	reply := NewError(req, ErrNotFound, errors.New("no such key"))

	assert.Equal(t, uint32(9), reply.CmdID)
	assert.Equal(t, ErrNotFound, reply.ErrorKind)
	assert.Equal(t, "no such key", reply.ErrorString)
	assert.True(t, reply.IsError())
}

func TestNewReplyEchoesCmdID(t *testing.T) {
	req := &Envelope{CmdID: 55, Sync: true, Kind: KindCryptoDigest}
	reply, err := NewReply(req, KindCryptoDigest, CryptoDigestReady{Digest: []byte{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, req.CmdID, reply.CmdID)
	assert.Equal(t, req.Sync, reply.Sync)
}
