package decoder

import (
	"io"
	"path/filepath"
	"strings"
	"sync"
)

// Factory constructs a fresh Decoder reading from r.
type Factory func(r io.Reader) Decoder

// Registry maps a file extension to the Decoder factory that can read it,
// mirroring pdal::StageFactory::inferReaderDriver's driver inference by
// extension.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a Registry pre-populated with the built-in PCD
// driver.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(".pcd", func(rd io.Reader) Decoder { return NewPCD(rd) })
	return r
}

// Register associates ext (including its leading dot, e.g. ".pcd") with
// factory.
func (r *Registry) Register(ext string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(ext)] = factory
}

// Infer returns the Decoder factory registered for path's extension, and
// false if none is registered - the caller treats this as a manifest
// omission (spec §4.6, §7).
func (r *Registry) Infer(path string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[strings.ToLower(filepath.Ext(path))]
	return factory, ok
}
