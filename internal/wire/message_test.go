package wire_test

import (
	"testing"

	"github.com/Anthya1104/dss/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registerDiskParams struct {
	DiskName string `json:"disk_name"`
	IPv4Addr string `json:"ipv4_addr"`
	MPort    int    `json:"m_port"`
	CPort    int    `json:"c_port"`
}

func TestRequestRoundTrip(t *testing.T) {
	req, err := wire.NewRequest("register-disk", registerDiskParams{
		DiskName: "D1", IPv4Addr: "127.0.0.1", MPort: 9001, CPort: 9002,
	}, "D1")
	require.NoError(t, err)

	raw, err := wire.Marshal(req)
	require.NoError(t, err)

	parsed, err := wire.UnmarshalRequest(raw)
	require.NoError(t, err)
	assert.Equal(t, "register-disk", parsed.Command)
	assert.Equal(t, "D1", parsed.Sender)

	var params registerDiskParams
	require.NoError(t, wire.DecodePayload(parsed.Parameters, &params))
	assert.Equal(t, "D1", params.DiskName)
	assert.Equal(t, 9002, params.CPort)
}

func TestResponseRoundTrip(t *testing.T) {
	resp, err := wire.Success(map[string]string{"hello": "world"})
	require.NoError(t, err)

	raw, err := wire.Marshal(resp)
	require.NoError(t, err)

	parsed, err := wire.UnmarshalResponse(raw)
	require.NoError(t, err)
	assert.True(t, parsed.Ok())

	var data map[string]string
	require.NoError(t, wire.DecodePayload(parsed.Data, &data))
	assert.Equal(t, "world", data["hello"])
}

func TestFailureResponse(t *testing.T) {
	resp := wire.Failure("Unknown command")
	assert.False(t, resp.Ok())
	assert.Equal(t, "Unknown command", resp.Message)
}

func TestBlockEncodeDecodeRoundTrip(t *testing.T) {
	block := []byte{0x00, 0xff, 0x10, 0xab}
	encoded := wire.EncodeBlock(block)
	decoded, err := wire.DecodeBlock(encoded)
	require.NoError(t, err)
	assert.Equal(t, block, decoded)
}

func TestUnmarshalRequest_Garbage(t *testing.T) {
	_, err := wire.UnmarshalRequest([]byte("not json"))
	assert.Error(t, err)
}
