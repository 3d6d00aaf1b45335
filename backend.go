package zsmooth

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ajroetker/go-highway/hwy/contrib/workerpool"
)

// BackendFunc builds an EdgeAwarePass using up to workers goroutines.
// The returned release func frees backend resources.
type BackendFunc func(workers int) (pass EdgeAwarePass, release func(), err error)

var (
	backendsMu sync.RWMutex
	backends   = map[string]BackendFunc{
		"go": newGoBackend,
	}
)

// RegisterBackend makes an edge-aware pass available by name.
func RegisterBackend(name string, fn BackendFunc) {
	backendsMu.Lock()
	defer backendsMu.Unlock()

	backends[name] = fn
}

// Backends lists registered backend names.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewBackend instantiates a registered backend.
func NewBackend(name string, workers int) (EdgeAwarePass, func(), error) {
	backendsMu.RLock()
	fn, ok := backends[name]
	backendsMu.RUnlock()

	if !ok {
		return nil, nil, &InvalidConfigError{Field: "backend", Reason: fmt.Sprintf("unknown backend %q, available: %v", name, Backends())}
	}
	return fn(workers)
}

func newGoBackend(workers int) (EdgeAwarePass, func(), error) {
	if workers == 1 {
		return Bilateral{}, func() {}, nil
	}
	pool := workerpool.New(workers)
	return Bilateral{Pool: pool}, pool.Close, nil
}
