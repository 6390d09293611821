package manager

import (
	"unicode"

	"github.com/Anthya1104/dss/internal/config"
)

// DiskState is where a registered disk sits relative to DSS membership.
type DiskState int

const (
	DiskFree DiskState = iota
	DiskInDSS
)

// UserEntry is the manager's record of a registered user (spec.md §3).
type UserEntry struct {
	Name  string
	IPv4  string
	MPort int
	CPort int
}

// DiskEntry is the manager's record of a registered disk.
type DiskEntry struct {
	Name    string
	IPv4    string
	MPort   int
	CPort   int
	State   DiskState
	DSSName string // valid only when State == DiskInDSS
}

func isValidName(name string) bool {
	if name == "" || len(name) > config.MaxNameLength {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// portInUse reports whether port collides with any registered user or
// disk's management or command port — ports are exclusive across both
// tables (spec.md §3 invariants).
func (s *State) portInUse(port int) bool {
	for _, u := range s.users {
		if u.MPort == port || u.CPort == port {
			return true
		}
	}
	for _, d := range s.disks {
		if d.MPort == port || d.CPort == port {
			return true
		}
	}
	return false
}
