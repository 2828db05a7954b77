// ABOUTME: Thread-safe name-keyed store of entries for the dispatcher.
// ABOUTME: Intentionally a thin leaf: registration, uniqueness, exact-name lookup.

package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/2389/coven-dispatch/internal/entry"
)

// ErrDuplicateName indicates an entry with the same name is already registered.
var ErrDuplicateName = errors.New("entry name already registered")

// ErrInvalidEntry indicates the entry is not registrable (empty name).
var ErrInvalidEntry = errors.New("invalid entry")

// ErrNotFound indicates the named entry is not registered.
var ErrNotFound = errors.New("entry not found")

// Registry maps names to entries. Entries are registered once at setup and
// treated as read-only afterwards.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry.Entry
	logger  *slog.Logger
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		entries: make(map[string]entry.Entry),
		logger:  logger,
	}
}

// Register adds an entry. Returns ErrInvalidEntry for an empty name and
// ErrDuplicateName if the name is taken; the registry is unchanged on failure.
func (r *Registry) Register(e entry.Entry) error {
	desc := e.Describe()
	if desc.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidEntry)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[desc.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, desc.Name)
	}

	r.entries[desc.Name] = e
	r.logger.Debug("entry registered",
		"name", desc.Name,
		"kind", desc.Kind.String(),
		"capabilities", desc.Capabilities,
	)
	return nil
}

// Get looks up an entry by exact name.
func (r *Registry) Get(name string) (entry.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return e, nil
}

// Names returns all registered entry names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
