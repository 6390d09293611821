// Package manager implements the DSS manager: registry, DSS directory, and
// the per-operation critical sections guarding copy / read / disk-failure /
// decommission (spec.md §4.4).
package manager

import (
	"math/rand"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/Anthya1104/dss/internal/config"
	"github.com/Anthya1104/dss/internal/contract"
	"github.com/Anthya1104/dss/internal/wire"
	"github.com/sirupsen/logrus"
)

// State holds every piece of mutable manager state (spec.md §4.4). All
// handlers run behind mu, matching spec.md §5: "the manager is logically
// single-threaded... An implementation that uses multiple threads to
// receive must serialize handler execution behind a single mutex."
type State struct {
	mu sync.Mutex

	users map[string]*UserEntry
	disks map[string]*DiskEntry
	dsses map[string]*DSSEntry

	copySlot    *slot
	failureSlot *slot
	decommSlot  *slot
	reads       []readOp

	dssSelectionIndex int
	rng               *rand.Rand
}

// NewState builds an empty manager state. rng must be supplied so
// configure-dss's random disk selection is reproducible under test (spec.md
// §4.4: "All random choices... must use a seedable generator").
func NewState(rng *rand.Rand) *State {
	return &State{
		users: make(map[string]*UserEntry),
		disks: make(map[string]*DiskEntry),
		dsses: make(map[string]*DSSEntry),
		rng:   rng,
	}
}

func success(data interface{}) *wire.Response {
	resp, err := wire.Success(data)
	if err != nil {
		logrus.Errorf("manager: failed to encode response data: %v", err)
		return wire.Failure("internal error encoding response")
	}
	return resp
}

// Dispatch decodes params from req and routes to the matching handler, the
// same command switch manager.py's handle_message implements.
func (s *State) Dispatch(req *wire.Request) *wire.Response {
	logrus.Debugf("manager: received command %q from %q", req.Command, req.Sender)

	switch req.Command {
	case "register-user":
		var p contract.RegisterUserParams
		if err := wire.DecodePayload(req.Parameters, &p); err != nil {
			return wire.Failure("Missing required parameters")
		}
		return s.RegisterUser(p)
	case "register-disk":
		var p contract.RegisterDiskParams
		if err := wire.DecodePayload(req.Parameters, &p); err != nil {
			return wire.Failure("Missing required parameters")
		}
		return s.RegisterDisk(p)
	case "deregister-user":
		var p contract.DeregisterUserParams
		if err := wire.DecodePayload(req.Parameters, &p); err != nil {
			return wire.Failure("Missing user name")
		}
		return s.DeregisterUser(p)
	case "deregister-disk":
		var p contract.DeregisterDiskParams
		if err := wire.DecodePayload(req.Parameters, &p); err != nil {
			return wire.Failure("Missing disk name")
		}
		return s.DeregisterDisk(p)
	case "configure-dss":
		var p contract.ConfigureDSSParams
		if err := wire.DecodePayload(req.Parameters, &p); err != nil {
			return wire.Failure("Missing required parameters")
		}
		return s.ConfigureDSS(p)
	case "ls":
		var p contract.ListFilesParams
		if err := wire.DecodePayload(req.Parameters, &p); err != nil {
			return wire.Failure("Missing user name")
		}
		return s.ListFiles(p)
	case "copy":
		var p contract.CopyParams
		if err := wire.DecodePayload(req.Parameters, &p); err != nil {
			return wire.Failure("Missing required parameters: file_name, file_size, owner")
		}
		return s.Copy(p)
	case "copy-complete":
		var p contract.CopyCompleteParams
		if err := wire.DecodePayload(req.Parameters, &p); err != nil {
			return wire.Failure("Missing required parameters")
		}
		return s.CopyComplete(p)
	case "read":
		var p contract.ReadParams
		if err := wire.DecodePayload(req.Parameters, &p); err != nil {
			return wire.Failure("Missing required parameters: dss_name, file_name, user_name")
		}
		return s.Read(p)
	case "read-complete":
		var p contract.ReadCompleteParams
		if err := wire.DecodePayload(req.Parameters, &p); err != nil {
			return wire.Failure("Missing required parameters")
		}
		return s.ReadComplete(p)
	case "disk-failure":
		var p contract.DiskFailureParams
		if err := wire.DecodePayload(req.Parameters, &p); err != nil {
			return wire.Failure("Missing required parameter: dss_name")
		}
		return s.DiskFailure(p)
	case "recovery-complete":
		var p contract.RecoveryCompleteParams
		if err := wire.DecodePayload(req.Parameters, &p); err != nil {
			return wire.Failure("Missing required parameter: dss_name")
		}
		return s.RecoveryComplete(p)
	case "decommission-dss":
		var p contract.DecommissionDSSParams
		if err := wire.DecodePayload(req.Parameters, &p); err != nil {
			return wire.Failure("Missing required parameter: dss_name")
		}
		return s.DecommissionDSS(p)
	case "decommission-complete":
		var p contract.DecommissionCompleteParams
		if err := wire.DecodePayload(req.Parameters, &p); err != nil {
			return wire.Failure("Missing required parameter: dss_name")
		}
		return s.DecommissionComplete(p)
	default:
		return wire.Failure("Unknown command")
	}
}

// RegisterUser validates and admits a new user registration.
func (s *State) RegisterUser(p contract.RegisterUserParams) *wire.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.UserName == "" || p.IPv4Addr == "" || p.MPort == 0 || p.CPort == 0 {
		return wire.Failure("Missing required parameters")
	}
	if !isValidName(p.UserName) {
		return wire.Failure("Invalid user name")
	}
	if _, exists := s.users[p.UserName]; exists {
		return wire.Failure("User name already registered")
	}
	if s.portInUse(p.MPort) || s.portInUse(p.CPort) {
		return wire.Failure("Port already in use")
	}

	s.users[p.UserName] = &UserEntry{Name: p.UserName, IPv4: p.IPv4Addr, MPort: p.MPort, CPort: p.CPort}
	logrus.Infof("manager: user %s registered", p.UserName)
	return success(nil)
}

// RegisterDisk validates and admits a new disk registration, entering it
// in the Free state.
func (s *State) RegisterDisk(p contract.RegisterDiskParams) *wire.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.DiskName == "" || p.IPv4Addr == "" || p.MPort == 0 || p.CPort == 0 {
		return wire.Failure("Missing required parameters")
	}
	if !isValidName(p.DiskName) {
		return wire.Failure("Invalid disk name")
	}
	if _, exists := s.disks[p.DiskName]; exists {
		return wire.Failure("Disk name already registered")
	}
	if s.portInUse(p.MPort) || s.portInUse(p.CPort) {
		return wire.Failure("Port already in use")
	}

	s.disks[p.DiskName] = &DiskEntry{Name: p.DiskName, IPv4: p.IPv4Addr, MPort: p.MPort, CPort: p.CPort, State: DiskFree}
	logrus.Infof("manager: disk %s registered with state Free", p.DiskName)
	return success(nil)
}

// DeregisterUser removes a registered user unconditionally.
func (s *State) DeregisterUser(p contract.DeregisterUserParams) *wire.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.UserName == "" {
		return wire.Failure("Missing user name")
	}
	if _, exists := s.users[p.UserName]; !exists {
		return wire.Failure("User not found")
	}
	delete(s.users, p.UserName)
	logrus.Infof("manager: user %s deregistered", p.UserName)
	return success(nil)
}

// DeregisterDisk removes a registered disk, but only while it is Free.
func (s *State) DeregisterDisk(p contract.DeregisterDiskParams) *wire.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.DiskName == "" {
		return wire.Failure("Missing disk name")
	}
	d, exists := s.disks[p.DiskName]
	if !exists {
		return wire.Failure("Disk not found")
	}
	if d.State != DiskFree {
		return wire.Failure("Disk is in use")
	}
	delete(s.disks, p.DiskName)
	logrus.Infof("manager: disk %s deregistered", p.DiskName)
	return success(nil)
}

// ConfigureDSS validates parameters, picks n disks uniformly at random
// from the Free set, and registers the new DSS. No partial state is
// mutated if any check fails.
func (s *State) ConfigureDSS(p contract.ConfigureDSSParams) *wire.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.DSSName == "" || p.N == 0 || p.StripingUnit == 0 || p.UserName == "" {
		return wire.Failure("Missing required parameters")
	}
	if !isValidName(p.DSSName) {
		return wire.Failure("Invalid DSS name")
	}
	if p.N < config.MinDiskCount {
		return wire.Failure("n must be >= 3")
	}
	if p.StripingUnit < config.MinStripingUnit || p.StripingUnit > config.MaxStripingUnit {
		return wire.Failure("Invalid striping unit size")
	}
	if p.StripingUnit&(p.StripingUnit-1) != 0 {
		return wire.Failure("Striping unit must be power of 2")
	}
	if _, exists := s.dsses[p.DSSName]; exists {
		return wire.Failure("DSS name already exists")
	}

	var free []string
	for name, d := range s.disks {
		if d.State == DiskFree {
			free = append(free, name)
		}
	}
	if len(free) < p.N {
		return wire.Failure("Insufficient free disks")
	}
	sort.Strings(free)

	selected := sampleNames(s.rng, free, p.N)
	for _, name := range selected {
		s.disks[name].State = DiskInDSS
		s.disks[name].DSSName = p.DSSName
	}

	s.dsses[p.DSSName] = &DSSEntry{
		Name:         p.DSSName,
		N:            p.N,
		StripingUnit: p.StripingUnit,
		DiskNames:    selected,
		Owner:        p.UserName,
		Files:        make(map[string]*FileEntry),
	}

	logrus.Infof("manager: DSS %s configured with %d disks: %v", p.DSSName, p.N, selected)
	return success(nil)
}

// sampleNames picks k names uniformly at random from pool without
// replacement, the Go equivalent of Python's random.sample.
func sampleNames(rng *rand.Rand, pool []string, k int) []string {
	shuffled := append([]string{}, pool...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:k]
}

// ListFiles returns every DSS's parameters, ordered disk contacts, and
// file table, for a registered user.
func (s *State) ListFiles(p contract.ListFilesParams) *wire.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.UserName == "" {
		return wire.Failure("Missing user name")
	}
	if _, exists := s.users[p.UserName]; !exists {
		return wire.Failure("User not registered")
	}
	if len(s.dsses) == 0 {
		return wire.Failure("No DSSs configured")
	}

	var dssNames []string
	for name := range s.dsses {
		dssNames = append(dssNames, name)
	}
	sort.Strings(dssNames)

	var dssInfos []contract.DSSInfo
	for _, name := range dssNames {
		dssInfos = append(dssInfos, s.buildDSSInfo(s.dsses[name]))
	}

	logrus.Infof("manager: listing files: %d DSS(es) found", len(dssInfos))
	return success(contract.ListFilesData{DSSes: dssInfos})
}

func (s *State) buildDSSInfo(dss *DSSEntry) contract.DSSInfo {
	info := contract.DSSInfo{
		DSSName:      dss.Name,
		N:            dss.N,
		StripingUnit: dss.StripingUnit,
		Disks:        s.diskContacts(dss.DiskNames),
	}
	var fileNames []string
	for name := range dss.Files {
		fileNames = append(fileNames, name)
	}
	sort.Strings(fileNames)
	for _, name := range fileNames {
		f := dss.Files[name]
		info.Files = append(info.Files, contract.FileInfo{FileName: f.Name, FileSize: f.Size, Owner: f.Owner})
	}
	return info
}

func (s *State) diskContacts(names []string) []contract.DiskContact {
	contacts := make([]contract.DiskContact, 0, len(names))
	for _, name := range names {
		d, ok := s.disks[name]
		if !ok {
			continue
		}
		contacts = append(contacts, contract.DiskContact{DiskName: d.Name, IPv4Addr: d.IPv4, CPort: d.CPort})
	}
	return contacts
}

func (s *State) layoutFor(dss *DSSEntry) contract.DSSLayout {
	return contract.DSSLayout{
		DSSName:      dss.Name,
		N:            dss.N,
		StripingUnit: dss.StripingUnit,
		Disks:        s.diskContacts(dss.DiskNames),
	}
}

// Copy is Phase 1 of a file copy: admits one caller into the copy critical
// section (with a 60s timeout override for a stuck holder) and selects the
// target DSS by round-robin over DSSes in lexicographic name order.
func (s *State) Copy(p contract.CopyParams) *wire.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.dsses) == 0 {
		return wire.Failure("No DSSs configured")
	}

	if s.copySlot != nil {
		if !s.copySlot.expired(config.CopySectionTimeout * time.Second) {
			return wire.Failure("Copy operation already in progress")
		}
		logrus.Warnf("manager: copy section timed out after %ds, resetting", config.CopySectionTimeout)
		s.copySlot = nil
	}

	if p.FileName == "" || p.FileSize == 0 || p.Owner == "" {
		return wire.Failure("Missing required parameters: file_name, file_size, owner")
	}

	var dssNames []string
	for name := range s.dsses {
		dssNames = append(dssNames, name)
	}
	sort.Strings(dssNames)

	selectedName := dssNames[s.dssSelectionIndex%len(dssNames)]
	s.dssSelectionIndex++

	s.copySlot = newSlot()

	layout := s.layoutFor(s.dsses[selectedName])
	logrus.Infof("manager: copy phase 1: selected DSS %s for file %s", selectedName, p.FileName)
	return success(layout)
}

// CopyComplete is Phase 2: records the file under the DSS and releases the
// copy section.
func (s *State) CopyComplete(p contract.CopyCompleteParams) *wire.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.copySlot == nil {
		return wire.Failure("No copy operation in progress")
	}
	if p.FileName == "" || p.FileSize == 0 || p.Owner == "" || p.DSSName == "" {
		return wire.Failure("Missing required parameters")
	}

	dss, exists := s.dsses[p.DSSName]
	if !exists {
		s.copySlot = nil
		return wire.Failure("DSS not found")
	}

	dss.Files[p.FileName] = &FileEntry{Name: p.FileName, Size: p.FileSize, Owner: p.Owner}
	s.copySlot = nil

	logrus.Infof("manager: copy phase 2: file %s added to DSS %s", p.FileName, p.DSSName)
	return success(nil)
}

// Read validates DSS/file/ownership and admits a (possibly concurrent)
// read, recording it in the reads-in-progress list.
func (s *State) Read(p contract.ReadParams) *wire.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.DSSName == "" || p.FileName == "" || p.UserName == "" {
		return wire.Failure("Missing required parameters: dss_name, file_name, user_name")
	}

	dss, exists := s.dsses[p.DSSName]
	if !exists {
		return wire.Failure("DSS not found")
	}
	file, exists := dss.Files[p.FileName]
	if !exists {
		return wire.Failure("File not found on DSS")
	}
	if file.Owner != p.UserName {
		return wire.Failure("User is not the owner of this file")
	}

	s.reads = append(s.reads, readOp{DSSName: p.DSSName, FileName: p.FileName, UserName: p.UserName})

	data := contract.ReadData{
		DSSName:      p.DSSName,
		FileSize:     file.Size,
		N:            dss.N,
		StripingUnit: dss.StripingUnit,
		Disks:        s.diskContacts(dss.DiskNames),
	}
	logrus.Infof("manager: read started: %s from DSS %s by %s", p.FileName, p.DSSName, p.UserName)
	return success(data)
}

// ReadComplete removes the matching in-progress read record.
func (s *State) ReadComplete(p contract.ReadCompleteParams) *wire.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.DSSName == "" || p.FileName == "" || p.UserName == "" {
		return wire.Failure("Missing required parameters")
	}

	idx := -1
	for i, op := range s.reads {
		if op.DSSName == p.DSSName && op.FileName == p.FileName && op.UserName == p.UserName {
			idx = i
			break
		}
	}
	if idx == -1 {
		return wire.Failure("Read operation not found in progress")
	}

	s.reads = append(s.reads[:idx], s.reads[idx+1:]...)
	logrus.Infof("manager: read completed: %s from DSS %s by %s", p.FileName, p.DSSName, p.UserName)
	return success(nil)
}

// DiskFailure is Phase 1 of disk-failure simulation: refused while any
// read is in progress or another disk-failure is already underway.
func (s *State) DiskFailure(p contract.DiskFailureParams) *wire.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.DSSName == "" {
		return wire.Failure("Missing required parameter: dss_name")
	}
	dss, exists := s.dsses[p.DSSName]
	if !exists {
		return wire.Failure("DSS not found")
	}
	if len(s.reads) > 0 {
		return wire.Failure("Read operations in progress - cannot perform disk failure")
	}
	if s.failureSlot != nil {
		return wire.Failure("Disk failure operation already in progress")
	}

	s.failureSlot = newSlot()
	layout := s.layoutFor(dss)
	logrus.Infof("manager: disk failure phase 1: DSS %s parameters provided", p.DSSName)
	return success(layout)
}

// RecoveryComplete is Phase 2: releases the disk-failure section.
func (s *State) RecoveryComplete(p contract.RecoveryCompleteParams) *wire.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.DSSName == "" {
		return wire.Failure("Missing required parameter: dss_name")
	}
	if s.failureSlot == nil {
		return wire.Failure("No disk failure operation in progress")
	}
	if _, exists := s.dsses[p.DSSName]; !exists {
		s.failureSlot = nil
		return wire.Failure("DSS not found")
	}

	s.failureSlot = nil
	logrus.Infof("manager: disk failure phase 2: DSS %s recovery completed", p.DSSName)
	return success(nil)
}

// DecommissionDSS takes the decommission section and returns the DSS
// layout for the caller to clean up.
func (s *State) DecommissionDSS(p contract.DecommissionDSSParams) *wire.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.DSSName == "" {
		return wire.Failure("Missing required parameter: dss_name")
	}
	dss, exists := s.dsses[p.DSSName]
	if !exists {
		return wire.Failure("DSS not found")
	}
	if s.decommSlot != nil {
		return wire.Failure("Decommission operation already in progress")
	}

	s.decommSlot = newSlot()
	layout := s.layoutFor(dss)
	logrus.Infof("manager: decommission phase 1: DSS %s parameters provided", p.DSSName)
	return success(layout)
}

// DecommissionComplete flips every member disk back to Free, removes the
// DSS and its files, and releases the decommission section.
func (s *State) DecommissionComplete(p contract.DecommissionCompleteParams) *wire.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.DSSName == "" {
		return wire.Failure("Missing required parameter: dss_name")
	}
	if s.decommSlot == nil {
		return wire.Failure("No decommission operation in progress")
	}
	dss, exists := s.dsses[p.DSSName]
	if !exists {
		s.decommSlot = nil
		return wire.Failure("DSS not found")
	}

	for _, name := range dss.DiskNames {
		if d, ok := s.disks[name]; ok {
			d.State = DiskFree
			d.DSSName = ""
		}
	}
	delete(s.dsses, p.DSSName)
	s.decommSlot = nil

	logrus.Infof("manager: decommission phase 2: DSS %s decommissioned, %d disks freed", p.DSSName, len(dss.DiskNames))
	return success(nil)
}

// Manager wraps State with the UDP endpoint that serves every command
// (spec.md §2: "The manager exposes one endpoint that serves all
// control-plane requests.").
type Manager struct {
	State    *State
	listener *wire.UDPListener
}

// NewManager binds the manager's single UDP endpoint on port.
func NewManager(port int, rng *rand.Rand) (*Manager, error) {
	listener, err := wire.ListenUDP("manager", port)
	if err != nil {
		return nil, err
	}
	return &Manager{State: NewState(rng), listener: listener}, nil
}

// Serve runs the manager's receive loop until Stop is called.
func (m *Manager) Serve() {
	m.listener.Serve(func(req *wire.Request, from net.Addr) *wire.Response {
		return m.State.Dispatch(req)
	})
}

// Stop closes the manager's socket.
func (m *Manager) Stop() {
	m.listener.Stop()
}
