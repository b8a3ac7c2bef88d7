package menu

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	contractx "github.com/saborai/saborai/agent/contract"
)

// MemoryStore is an in-process Store and Retriever for local runs and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	menus map[string]string
}

var (
	_ Store               = (*MemoryStore)(nil)
	_ contractx.Retriever = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{menus: make(map[string]string)}
}

func (s *MemoryStore) Save(_ context.Context, name string, text string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidMenu
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.menus[strings.TrimSpace(name)] = text
	return nil
}

func (s *MemoryStore) Fetch(_ context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrInvalidMenu
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.menus[strings.TrimSpace(name)]
	if !ok {
		return "", ErrMenuNotFound
	}
	return text, nil
}

func (s *MemoryStore) Delete(_ context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidMenu
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.menus, strings.TrimSpace(name))
	return nil
}

func (s *MemoryStore) Retrieve(ctx context.Context, _ string, menuName string) (string, error) {
	if strings.TrimSpace(menuName) != "" {
		text, err := s.Fetch(ctx, menuName)
		if errors.Is(err, ErrMenuNotFound) {
			return "", nil
		}
		return text, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.menus))
	for name := range s.menus {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, s.menus[name])
	}
	return strings.Join(parts, "\n\n"), nil
}
