package diskserver

import (
	"testing"

	"github.com/Anthya1104/dss/internal/contract"
	"github.com/Anthya1104/dss/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return &Server{Name: "disk1", Store: NewStore()}
}

func TestWriteBlockThenReadBlock_RoundTrip(t *testing.T) {
	s := newTestServer(t)
	block := []byte("stripe payload")

	resp := s.WriteBlock(contract.WriteBlockParams{
		DSSName: "dss1", FileName: "f1", StripeNum: 0,
		BlockType: contract.BlockTypeData, BlockData: wire.EncodeBlock(block),
	})
	require.True(t, resp.Ok())

	readResp := s.ReadBlock(contract.ReadBlockParams{DSSName: "dss1", FileName: "f1", StripeNum: 0})
	require.True(t, readResp.Ok())

	var data contract.ReadBlockData
	require.NoError(t, wire.DecodePayload(readResp.Data, &data))
	got, err := wire.DecodeBlock(data.BlockData)
	require.NoError(t, err)
	assert.Equal(t, block, got)
	assert.Equal(t, contract.BlockTypeData, data.BlockType)
}

func TestReadBlock_NotFound(t *testing.T) {
	s := newTestServer(t)
	resp := s.ReadBlock(contract.ReadBlockParams{DSSName: "dss1", FileName: "missing", StripeNum: 0})
	assert.False(t, resp.Ok())
}

func TestFail_DeletesAllBlocksForDSS(t *testing.T) {
	s := newTestServer(t)
	block := []byte("x")
	require.True(t, s.WriteBlock(contract.WriteBlockParams{
		DSSName: "dss1", FileName: "f1", StripeNum: 0,
		BlockType: contract.BlockTypeData, BlockData: wire.EncodeBlock(block),
	}).Ok())

	resp := s.Fail(contract.FailParams{DSSName: "dss1"})
	require.True(t, resp.Ok())

	files, stripes := s.Store.Stats("dss1")
	assert.Equal(t, 0, files)
	assert.Equal(t, 0, stripes)
}

func TestRecoveryWrite_RestoresBlock(t *testing.T) {
	s := newTestServer(t)
	block := []byte("recovered")

	resp := s.RecoveryWrite(contract.RecoveryWriteParams{
		DSSName: "dss1", FileName: "f1", StripeNum: 2,
		BlockType: contract.BlockTypeParity, BlockData: wire.EncodeBlock(block),
	})
	require.True(t, resp.Ok())

	readResp := s.ReadBlock(contract.ReadBlockParams{DSSName: "dss1", FileName: "f1", StripeNum: 2})
	require.True(t, readResp.Ok())
	var data contract.ReadBlockData
	require.NoError(t, wire.DecodePayload(readResp.Data, &data))
	assert.Equal(t, contract.BlockTypeParity, data.BlockType)
}

func TestDispatch_UnknownCommand(t *testing.T) {
	s := newTestServer(t)
	resp := s.Dispatch(&wire.Request{Command: "nonsense"})
	assert.False(t, resp.Ok())
}
