package tokenstore

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// MemoryStore keeps the credential for the lifetime of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	value domain.Credential
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(context.Context) (domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.value == "" {
		return "", ErrNoCredential
	}
	return s.value, nil
}

func (s *MemoryStore) Set(_ context.Context, c domain.Credential) error {
	if c == "" {
		return ErrEmptyCredential
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = c
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = ""
	return nil
}
