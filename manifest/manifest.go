// Package manifest tracks per-input-file bookkeeping across a build:
// which origin id was assigned to which path, which paths were skipped
// outright for lacking a decoder, and which paths partially failed during
// decoding.
package manifest

import (
	"sync"

	"github.com/goccy/go-json"

	"go.viam.com/pointindex/geom"
)

// Manifest is append-only and guarded by a single mutex (spec §5).
type Manifest struct {
	mu sync.Mutex

	origins   []string
	omissions []string
	failures  map[geom.Origin]string
}

// New returns an empty Manifest.
func New() *Manifest {
	return &Manifest{failures: make(map[geom.Origin]string)}
}

// AddOrigin allocates a fresh Origin id for path and records it.
func (m *Manifest) AddOrigin(path string) geom.Origin {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := geom.Origin(len(m.origins))
	m.origins = append(m.origins, path)
	return id
}

// AddOmission records path as skipped because no decoder could be
// inferred for it - a distinct bookkeeping path from a per-file decode
// failure, since no Origin was ever allocated for it (spec §10).
func (m *Manifest) AddOmission(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.omissions = append(m.omissions, path)
}

// AddFailure records that origin's decode task ended in error, after an
// Origin id had already been allocated for it.
func (m *Manifest) AddFailure(origin geom.Origin, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[origin] = reason
}

// PathFor returns the input path an Origin id was allocated for.
func (m *Manifest) PathFor(origin geom.Origin) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int(origin) >= len(m.origins) {
		return "", false
	}
	return m.origins[origin], true
}

// Omissions returns every path that was skipped for lacking a decoder.
func (m *Manifest) Omissions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.omissions))
	copy(out, m.omissions)
	return out
}

// Failures returns a copy of the origin-to-reason failure map.
func (m *Manifest) Failures() map[geom.Origin]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[geom.Origin]string, len(m.failures))
	for k, v := range m.failures {
		out[k] = v
	}
	return out
}

type manifestJSON struct {
	Origins   []string                `json:"origins"`
	Omissions []string                `json:"omissions"`
	Failures  map[geom.Origin]string  `json:"failures"`
}

// MarshalJSON encodes the manifest for the "manifest" key of the
// persisted meta document (spec §6).
func (m *Manifest) MarshalJSON() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return json.Marshal(manifestJSON{
		Origins:   m.origins,
		Omissions: m.omissions,
		Failures:  m.failures,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var j manifestJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.origins = j.Origins
	m.omissions = j.Omissions
	m.failures = j.Failures
	if m.failures == nil {
		m.failures = make(map[geom.Origin]string)
	}
	return nil
}
