package credentials

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
)

// AccessTokenKey is the key holding the bearer token.
const AccessTokenKey = "access_token"

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("credential not found")

// Store is a read-only key-value view over wherever credentials live.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
}

// MemoryStore keeps credentials in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore copies values into a new store.
func NewMemoryStore(values map[string]string) *MemoryStore {
	dup := make(map[string]string, len(values))
	for k, v := range values {
		dup[k] = v
	}
	return &MemoryStore{values: dup}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = map[string]string{}
	}
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// EnvStore reads credentials from environment variables named
// <Prefix>_<KEY>, e.g. TROLLEY_ACCESS_TOKEN.
type EnvStore struct {
	Prefix string
}

func (s EnvStore) Get(_ context.Context, key string) (string, error) {
	name := strings.ToUpper(key)
	if p := strings.TrimSpace(s.Prefix); p != "" {
		name = strings.ToUpper(p) + "_" + name
	}
	v, ok := os.LookupEnv(name)
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}
