package session

import (
	"context"
	"errors"

	"github.com/joy-dx/lockablemap"
	"github.com/joy-dx/sessionnet/dto"
)

// MemoryStore keeps the pair for the lifetime of the process.
// The pair is held as one map value so a Set is never observed half applied.
type MemoryStore struct {
	namespace string
	entries   *lockablemap.LockableMap[string, dto.Credentials]
}

func NewMemoryStore(namespace string) *MemoryStore {
	return &MemoryStore{
		namespace: namespace,
		entries:   lockablemap.NewLockableMap[string, dto.Credentials](),
	}
}

func (s *MemoryStore) Get(ctx context.Context) (dto.Credentials, error) {
	creds, err := s.entries.Get(s.namespace)
	var notFound *lockablemap.KeyNotFoundError
	if errors.As(err, &notFound) {
		return dto.Credentials{}, nil
	}
	return creds, err
}

func (s *MemoryStore) Set(ctx context.Context, creds dto.Credentials) error {
	s.entries.Set(s.namespace, creds)
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.entries.Remove(s.namespace)
	return nil
}
