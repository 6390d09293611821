package manager

import (
	"math/rand"
	"testing"

	"github.com/Anthya1104/dss/internal/contract"
	"github.com/Anthya1104/dss/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState() *State {
	return NewState(rand.New(rand.NewSource(1)))
}

func registerDisks(t *testing.T, s *State, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		resp := s.RegisterDisk(contract.RegisterDiskParams{
			DiskName: string(rune('a'+i)) + "disk",
			IPv4Addr: "127.0.0.1",
			MPort:    10000 + i*2,
			CPort:    10001 + i*2,
		})
		require.True(t, resp.Ok())
	}
}

func TestRegisterUser_DuplicateRejected(t *testing.T) {
	s := newTestState()
	p := contract.RegisterUserParams{UserName: "alice", IPv4Addr: "127.0.0.1", MPort: 9000, CPort: 9001}
	require.True(t, s.RegisterUser(p).Ok())

	resp := s.RegisterUser(p)
	assert.False(t, resp.Ok())
}

func TestRegisterDisk_PortCollisionRejected(t *testing.T) {
	s := newTestState()
	require.True(t, s.RegisterUser(contract.RegisterUserParams{UserName: "alice", IPv4Addr: "127.0.0.1", MPort: 9000, CPort: 9001}).Ok())

	resp := s.RegisterDisk(contract.RegisterDiskParams{DiskName: "disk1", IPv4Addr: "127.0.0.1", MPort: 9001, CPort: 9002})
	assert.False(t, resp.Ok())
}

func TestDeregisterDisk_RefusedWhileInDSS(t *testing.T) {
	s := newTestState()
	registerDisks(t, s, 3)
	require.True(t, s.RegisterUser(contract.RegisterUserParams{UserName: "alice", IPv4Addr: "127.0.0.1", MPort: 9000, CPort: 9001}).Ok())
	require.True(t, s.ConfigureDSS(contract.ConfigureDSSParams{DSSName: "dss1", N: 3, StripingUnit: 256, UserName: "alice"}).Ok())

	resp := s.DeregisterDisk(contract.DeregisterDiskParams{DiskName: "adisk"})
	assert.False(t, resp.Ok())
}

func TestConfigureDSS_InsufficientFreeDisksRejected(t *testing.T) {
	s := newTestState()
	registerDisks(t, s, 2)
	require.True(t, s.RegisterUser(contract.RegisterUserParams{UserName: "alice", IPv4Addr: "127.0.0.1", MPort: 9000, CPort: 9001}).Ok())

	resp := s.ConfigureDSS(contract.ConfigureDSSParams{DSSName: "dss1", N: 3, StripingUnit: 256, UserName: "alice"})
	assert.False(t, resp.Ok())
}

func TestConfigureDSS_NonPowerOfTwoStripingUnitRejected(t *testing.T) {
	s := newTestState()
	registerDisks(t, s, 3)
	require.True(t, s.RegisterUser(contract.RegisterUserParams{UserName: "alice", IPv4Addr: "127.0.0.1", MPort: 9000, CPort: 9001}).Ok())

	resp := s.ConfigureDSS(contract.ConfigureDSSParams{DSSName: "dss1", N: 3, StripingUnit: 200, UserName: "alice"})
	assert.False(t, resp.Ok())
}

func TestCopy_SecondCallerRejectedWhileHeld(t *testing.T) {
	s := newTestState()
	registerDisks(t, s, 3)
	require.True(t, s.RegisterUser(contract.RegisterUserParams{UserName: "alice", IPv4Addr: "127.0.0.1", MPort: 9000, CPort: 9001}).Ok())
	require.True(t, s.ConfigureDSS(contract.ConfigureDSSParams{DSSName: "dss1", N: 3, StripingUnit: 256, UserName: "alice"}).Ok())

	resp1 := s.Copy(contract.CopyParams{FileName: "f1", FileSize: 1024, Owner: "alice"})
	require.True(t, resp1.Ok())

	resp2 := s.Copy(contract.CopyParams{FileName: "f2", FileSize: 1024, Owner: "alice"})
	assert.False(t, resp2.Ok())
}

func TestCopy_RoundRobinsAcrossDSSes(t *testing.T) {
	s := newTestState()
	registerDisks(t, s, 6)
	require.True(t, s.RegisterUser(contract.RegisterUserParams{UserName: "alice", IPv4Addr: "127.0.0.1", MPort: 9000, CPort: 9001}).Ok())
	require.True(t, s.ConfigureDSS(contract.ConfigureDSSParams{DSSName: "dssA", N: 3, StripingUnit: 256, UserName: "alice"}).Ok())
	require.True(t, s.ConfigureDSS(contract.ConfigureDSSParams{DSSName: "dssB", N: 3, StripingUnit: 256, UserName: "alice"}).Ok())

	resp1 := s.Copy(contract.CopyParams{FileName: "f1", FileSize: 1024, Owner: "alice"})
	require.True(t, resp1.Ok())
	var layout1 contract.DSSLayout
	require.NoError(t, wire.DecodePayload(resp1.Data, &layout1))
	require.True(t, s.CopyComplete(contract.CopyCompleteParams{FileName: "f1", FileSize: 1024, Owner: "alice", DSSName: layout1.DSSName}).Ok())

	resp2 := s.Copy(contract.CopyParams{FileName: "f2", FileSize: 1024, Owner: "alice"})
	require.True(t, resp2.Ok())
	var layout2 contract.DSSLayout
	require.NoError(t, wire.DecodePayload(resp2.Data, &layout2))

	assert.NotEqual(t, layout1.DSSName, layout2.DSSName)
}

func TestDiskFailure_RefusedWhileReadInProgress(t *testing.T) {
	s := newTestState()
	registerDisks(t, s, 3)
	require.True(t, s.RegisterUser(contract.RegisterUserParams{UserName: "alice", IPv4Addr: "127.0.0.1", MPort: 9000, CPort: 9001}).Ok())
	require.True(t, s.ConfigureDSS(contract.ConfigureDSSParams{DSSName: "dss1", N: 3, StripingUnit: 256, UserName: "alice"}).Ok())

	resp := s.Copy(contract.CopyParams{FileName: "f1", FileSize: 1024, Owner: "alice"})
	require.True(t, resp.Ok())
	var layout contract.DSSLayout
	require.NoError(t, wire.DecodePayload(resp.Data, &layout))
	require.True(t, s.CopyComplete(contract.CopyCompleteParams{FileName: "f1", FileSize: 1024, Owner: "alice", DSSName: layout.DSSName}).Ok())

	require.True(t, s.Read(contract.ReadParams{DSSName: layout.DSSName, FileName: "f1", UserName: "alice"}).Ok())

	resp2 := s.DiskFailure(contract.DiskFailureParams{DSSName: layout.DSSName})
	assert.False(t, resp2.Ok())
}

func TestDecommissionComplete_FreesDisks(t *testing.T) {
	s := newTestState()
	registerDisks(t, s, 3)
	require.True(t, s.RegisterUser(contract.RegisterUserParams{UserName: "alice", IPv4Addr: "127.0.0.1", MPort: 9000, CPort: 9001}).Ok())
	require.True(t, s.ConfigureDSS(contract.ConfigureDSSParams{DSSName: "dss1", N: 3, StripingUnit: 256, UserName: "alice"}).Ok())

	resp := s.DecommissionDSS(contract.DecommissionDSSParams{DSSName: "dss1"})
	require.True(t, resp.Ok())

	require.True(t, s.DecommissionComplete(contract.DecommissionCompleteParams{DSSName: "dss1"}).Ok())

	for _, d := range s.disks {
		assert.Equal(t, DiskFree, d.State)
	}
	_, exists := s.dsses["dss1"]
	assert.False(t, exists)
}
