// Package registry tracks accepted fingerprints.
package registry

import (
	"sync"

	"github.com/opmodel/editions/internal/fingerprint"
)

// Registry is a grow-only set of accepted fingerprints. It is safe for
// concurrent use.
type Registry struct {
	mu   sync.Mutex
	seen map[fingerprint.Fingerprint]struct{}
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{seen: make(map[fingerprint.Fingerprint]struct{})}
}

// Add inserts fp and reports whether it was new. Check and insert happen
// under one lock, so two callers can never both accept the same fingerprint.
func (r *Registry) Add(fp fingerprint.Fingerprint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.seen[fp]; ok {
		return false
	}
	r.seen[fp] = struct{}{}
	return true
}

// Contains reports whether fp has been accepted.
func (r *Registry) Contains(fp fingerprint.Fingerprint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.seen[fp]
	return ok
}

// Len returns the number of accepted fingerprints.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.seen)
}
