package diskserver

import (
	"net"

	"github.com/Anthya1104/dss/internal/contract"
	"github.com/Anthya1104/dss/internal/wire"
	"github.com/sirupsen/logrus"
)

// Server is one disk process's command endpoint, bound on its own TCP
// command port (spec.md §11: write-block/read-block/recovery-write payload
// scales with the striping unit, so the command port is stream-framed
// rather than UDP). The management port is a separate no-op UDP listener,
// matching disk.py's management_handler, which only logs what it receives.
type Server struct {
	Name   string
	Store  *Store
	cmdLn  *wire.StreamListener
	mgmtLn *wire.UDPListener
}

// CPort returns the command port this server is bound to.
func (s *Server) CPort() int { return s.cmdLn.Port() }

func NewServer(name string, mPort, cPort int) (*Server, error) {
	mgmtLn, err := wire.ListenUDP(name+"-mgmt", mPort)
	if err != nil {
		return nil, err
	}
	cmdLn, err := wire.ListenStream(name+"-cmd", cPort)
	if err != nil {
		mgmtLn.Stop()
		return nil, err
	}
	return &Server{Name: name, Store: NewStore(), cmdLn: cmdLn, mgmtLn: mgmtLn}, nil
}

// ServeManagement and ServeCommands each run one endpoint until Stop is
// called. Both block, so call each in its own goroutine.
func (s *Server) ServeManagement() {
	s.mgmtLn.Serve(func(req *wire.Request, from net.Addr) *wire.Response {
		logrus.Debugf("disk %s: management message received from %s", s.Name, from)
		return nil
	})
}

func (s *Server) ServeCommands() {
	s.cmdLn.Serve(func(req *wire.Request, from net.Addr) *wire.Response {
		return s.Dispatch(req)
	})
}

func (s *Server) Stop() {
	s.cmdLn.Stop()
	s.mgmtLn.Stop()
}

// Dispatch routes one decoded command request to its handler, disk.py's
// handle_command_message.
func (s *Server) Dispatch(req *wire.Request) *wire.Response {
	switch req.Command {
	case "write-block":
		var p contract.WriteBlockParams
		if err := wire.DecodePayload(req.Parameters, &p); err != nil {
			return wire.Failure("Missing required parameters")
		}
		return s.WriteBlock(p)
	case "read-block":
		var p contract.ReadBlockParams
		if err := wire.DecodePayload(req.Parameters, &p); err != nil {
			return wire.Failure("Missing required parameters")
		}
		return s.ReadBlock(p)
	case "fail":
		var p contract.FailParams
		if err := wire.DecodePayload(req.Parameters, &p); err != nil {
			return wire.Failure("Missing DSS name")
		}
		return s.Fail(p)
	case "recovery-write":
		var p contract.RecoveryWriteParams
		if err := wire.DecodePayload(req.Parameters, &p); err != nil {
			return wire.Failure("Missing required parameters")
		}
		return s.RecoveryWrite(p)
	default:
		return wire.Failure("Unknown command")
	}
}

func (s *Server) WriteBlock(p contract.WriteBlockParams) *wire.Response {
	if p.FileName == "" || p.DSSName == "" || p.BlockType == "" || p.BlockData == "" {
		return wire.Failure("Missing required parameters")
	}
	block, err := wire.DecodeBlock(p.BlockData)
	if err != nil {
		return wire.Failure(err.Error())
	}
	s.Store.Write(p.DSSName, p.FileName, p.StripeNum, block, p.BlockType)
	logrus.Debugf("disk %s: stored %s block for %s stripe %d", s.Name, p.BlockType, p.FileName, p.StripeNum)
	resp, _ := wire.Success(nil)
	return resp
}

func (s *Server) ReadBlock(p contract.ReadBlockParams) *wire.Response {
	if p.FileName == "" || p.DSSName == "" {
		return wire.Failure("Missing required parameters")
	}
	block, blockType, ok := s.Store.Read(p.DSSName, p.FileName, p.StripeNum)
	if !ok {
		return wire.Failure("Block not found")
	}
	logrus.Debugf("disk %s: read %s block for %s stripe %d", s.Name, blockType, p.FileName, p.StripeNum)
	resp, err := wire.Success(contract.ReadBlockData{BlockData: wire.EncodeBlock(block), BlockType: blockType})
	if err != nil {
		return wire.Failure("internal error encoding response")
	}
	return resp
}

func (s *Server) Fail(p contract.FailParams) *wire.Response {
	if p.DSSName == "" {
		return wire.Failure("Missing DSS name")
	}
	s.Store.Fail(p.DSSName)
	logrus.Infof("disk %s: simulated failure for DSS %s", s.Name, p.DSSName)
	resp, _ := wire.Success(nil)
	return resp
}

func (s *Server) RecoveryWrite(p contract.RecoveryWriteParams) *wire.Response {
	if p.FileName == "" || p.DSSName == "" || p.BlockType == "" || p.BlockData == "" {
		return wire.Failure("Missing required parameters")
	}
	block, err := wire.DecodeBlock(p.BlockData)
	if err != nil {
		return wire.Failure(err.Error())
	}
	s.Store.Write(p.DSSName, p.FileName, p.StripeNum, block, p.BlockType)
	logrus.Infof("disk %s: recovered %s block for %s stripe %d", s.Name, p.BlockType, p.FileName, p.StripeNum)
	resp, _ := wire.Success(nil)
	return resp
}

// RegisterWithManager sends this disk's register-disk request and waits
// for the manager's response (disk.py's register_with_manager).
func RegisterWithManager(managerAddr wire.Addr, name, ipv4 string, mPort, cPort int) (*wire.Response, error) {
	req, err := wire.NewRequest("register-disk", contract.RegisterDiskParams{
		DiskName: name,
		IPv4Addr: ipv4,
		MPort:    mPort,
		CPort:    cPort,
	}, name)
	if err != nil {
		return nil, err
	}
	return wire.SendUDPRequest(managerAddr, req)
}

// DeregisterWithManager sends this disk's deregister-disk request.
func DeregisterWithManager(managerAddr wire.Addr, name string) (*wire.Response, error) {
	req, err := wire.NewRequest("deregister-disk", contract.DeregisterDiskParams{DiskName: name}, name)
	if err != nil {
		return nil, err
	}
	return wire.SendUDPRequest(managerAddr, req)
}
