// Package diskserver implements a disk's block store and command endpoint:
// write-block, read-block, fail, recovery-write (disk.py's storage dict and
// command handlers, disk.handle_command_message).
package diskserver

import (
	"sync"

	"github.com/Anthya1104/dss/internal/contract"
)

type blockEntry struct {
	data      []byte
	blockType contract.BlockType
}

// Store is the three-level block map a disk keeps: dss -> file -> stripe.
// A single mutex guards it, so every method is safe for concurrent callers;
// the stream listener in front of it handles one connection at a time, as
// disk.py's socket thread does.
type Store struct {
	mu      sync.Mutex
	storage map[string]map[string]map[int]blockEntry
}

func NewStore() *Store {
	return &Store{storage: make(map[string]map[string]map[int]blockEntry)}
}

func (s *Store) Write(dss, file string, stripe int, data []byte, blockType contract.BlockType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.storage[dss]; !ok {
		s.storage[dss] = make(map[string]map[int]blockEntry)
	}
	if _, ok := s.storage[dss][file]; !ok {
		s.storage[dss][file] = make(map[int]blockEntry)
	}
	s.storage[dss][file][stripe] = blockEntry{data: data, blockType: blockType}
}

func (s *Store) Read(dss, file string, stripe int) ([]byte, contract.BlockType, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, ok := s.storage[dss]
	if !ok {
		return nil, "", false
	}
	stripes, ok := files[file]
	if !ok {
		return nil, "", false
	}
	entry, ok := stripes[stripe]
	if !ok {
		return nil, "", false
	}
	return entry.data, entry.blockType, true
}

// Fail deletes every block stored for dss, simulating the disk losing its
// contents (disk.py's handle_fail).
func (s *Store) Fail(dss string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.storage, dss)
}

// Stats reports how many files and stripes are stored for dss, for tests.
func (s *Store) Stats(dss string) (files int, stripes int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.storage[dss]
	if !ok {
		return 0, 0
	}
	files = len(f)
	for _, strps := range f {
		stripes += len(strps)
	}
	return files, stripes
}
