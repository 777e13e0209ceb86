package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/HSouheill/gym_backend/models"
)

// Persisted is what survives between runs: the tokens and the last role the
// session resolved to. Role is only a hint for probing.
type Persisted struct {
	Token        string      `json:"token,omitempty"`
	RefreshToken string      `json:"refreshToken,omitempty"`
	Role         models.Role `json:"role,omitempty"`
}

type Store interface {
	Load() (Persisted, error)
	Save(p Persisted) error
	Clear() error
}

// MemoryStore keeps the session for the life of the process
type MemoryStore struct {
	mu sync.Mutex
	p  Persisted
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (Persisted, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p, nil
}

func (s *MemoryStore) Save(p Persisted) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p = p
	return nil
}

func (s *MemoryStore) Clear() error {
	return s.Save(Persisted{})
}

// FileStore keeps the session in a JSON file readable only by the owner
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (Persisted, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p Persisted
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(data, &p); err != nil {
		// a corrupt file is treated as no session
		return Persisted{}, nil
	}
	return p, nil
}

func (s *FileStore) Save(p Persisted) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
