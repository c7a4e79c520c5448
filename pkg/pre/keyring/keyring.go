// Package keyring is the Key Registry: it persists participant identities
// under a name and hands them back to the roles that need them.
package keyring

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	osring "github.com/99designs/keyring"

	"github.com/manishvishnoi2/nucypher/pkg/pre"
	"github.com/manishvishnoi2/nucypher/pkg/pre/identity"
)

// ErrNotFound is returned when no identity is stored under a name.
var ErrNotFound = errors.New("keyring: identity not found")

// Registry stores identities by name.
//
// Implementations MUST be safe for concurrent use.
type Registry interface {
	// Store saves id under name, replacing any previous identity.
	Store(name string, id *identity.Identity) error
	// Load returns the identity saved under name.
	Load(name string) (*identity.Identity, error)
	// Names lists the stored names in sorted order.
	Names() ([]string, error)
}

// LoadOrGenerate returns the identity under name, creating and storing a
// fresh one if none exists.
func LoadOrGenerate(r Registry, name string) (*identity.Identity, error) {
	id, err := r.Load(name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if id, err = identity.Generate(); err != nil {
		return nil, err
	}
	if err := r.Store(name, id); err != nil {
		return nil, err
	}
	return id, nil
}

// Memory is a process-local Registry.
type Memory struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemory returns an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

func (m *Memory) Store(name string, id *identity.Identity) error {
	if name == "" {
		return errors.New("keyring: empty name")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.items[name]; ok {
		pre.ZeroizeBytes(old)
	}
	m.items[name] = id.Bytes()
	return nil
}

func (m *Memory) Load(name string) (*identity.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.items[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return identity.FromBytes(b)
}

func (m *Memory) Names() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.items))
	for n := range m.items {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// Keyring is a Registry backed by an OS keyring (Secret Service, Keychain,
// Windows credential store) or the encrypted file backend.
type Keyring struct {
	ring osring.Keyring
}

// Config selects and configures the keyring backend.
type Config struct {
	// ServiceName namespaces the stored items.
	ServiceName string
	// Backend restricts the backend, e.g. "file" or "secret-service".
	// Empty lets the library pick the platform default.
	Backend string
	// FileDir is the directory of the file backend.
	FileDir string
	// Password unlocks the file backend.
	Password string
}

// DefaultServiceName is used when Config.ServiceName is empty.
const DefaultServiceName = "nucypher"

// Open opens the configured keyring.
func Open(cfg Config) (*Keyring, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}
	kc := osring.Config{
		ServiceName: cfg.ServiceName,
		FileDir:     cfg.FileDir,
	}
	if cfg.Backend != "" {
		kc.AllowedBackends = []osring.BackendType{osring.BackendType(cfg.Backend)}
	}
	if cfg.Password != "" {
		kc.FilePasswordFunc = osring.FixedStringPrompt(cfg.Password)
	}
	ring, err := osring.Open(kc)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	return &Keyring{ring: ring}, nil
}

// New wraps an already opened keyring.
func New(ring osring.Keyring) *Keyring {
	return &Keyring{ring: ring}
}

func (k *Keyring) Store(name string, id *identity.Identity) error {
	if name == "" {
		return errors.New("keyring: empty name")
	}
	data := id.Bytes()
	err := k.ring.Set(osring.Item{
		Key:         name,
		Data:        data,
		Label:       fmt.Sprintf("%s identity %s", DefaultServiceName, id.NodeID()),
		Description: "threshold re-encryption identity",
	})
	if err != nil {
		return fmt.Errorf("failed to store identity in keyring: %w", err)
	}
	return nil
}

func (k *Keyring) Load(name string) (*identity.Identity, error) {
	item, err := k.ring.Get(name)
	if errors.Is(err, osring.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get identity from keyring: %w", err)
	}
	defer pre.ZeroizeBytes(item.Data)
	return identity.FromBytes(item.Data)
}

func (k *Keyring) Names() ([]string, error) {
	keys, err := k.ring.Keys()
	if err != nil {
		return nil, fmt.Errorf("failed to list keys from keyring: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}
