package treasuremap

import (
	"errors"
	"fmt"

	"github.com/manishvishnoi2/nucypher/pkg/pre"
	"github.com/manishvishnoi2/nucypher/pkg/pre/hrac"
	"github.com/manishvishnoi2/nucypher/pkg/pre/store"
)

// Store publishes encrypted maps keyed by HRAC.
type Store struct {
	s store.Store
}

// NewStore returns a map store over s. Keys are namespaced so s can be
// shared with other stores.
func NewStore(s store.Store) *Store {
	return &Store{s: store.WithPrefix(s, "treasuremap/")}
}

// Publish stores e, replacing any earlier map with the same HRAC.
func (s *Store) Publish(e *EncryptedMap) error {
	if err := s.s.Put(e.HRAC.Bytes(), e.Bytes()); err != nil {
		return fmt.Errorf("treasuremap: publish %s: %w", e.HRAC, err)
	}
	return nil
}

// Fetch returns the map stored for id, or pre.ErrUnknownPolicy.
func (s *Store) Fetch(id hrac.HRAC) (*EncryptedMap, error) {
	b, err := s.s.Get(id.Bytes())
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: no treasure map for %s", pre.ErrUnknownPolicy, id)
	}
	if err != nil {
		return nil, fmt.Errorf("treasuremap: fetch %s: %w", id, err)
	}
	return EncryptedMapFromBytes(b)
}
