// Package source implements the blob-transport collaborator (spec §6):
// a small, uniform interface over local disk, S3 and GCS, dispatched by
// URL scheme the way entwine's Arbiter selects a driver.
package source

import (
	"strings"

	"github.com/pkg/errors"
)

// Source is a per-path object over one storage backend.
type Source interface {
	// IsRemote reports whether this source is backed by a network store.
	IsRemote() bool
	// Path returns the local filesystem path this source resolves to; it
	// is only meaningful when IsRemote is false.
	Path() string
	// Resolve returns a new Source rooted at subpath relative to this one.
	Resolve(subpath string) Source
	// GetRoot returns the full contents addressed by this source.
	GetRoot() ([]byte, error)
	// GetAsString fetches the blob named by key, relative to this source,
	// decoded as UTF-8 text.
	GetAsString(key string) (string, error)
	// Put writes data to the blob named by key, relative to this source.
	Put(key string, data []byte) error
}

// New dispatches uri to the backend implied by its scheme: "s3://" for
// S3, "gs://" for GCS, and "file://" or a bare path for the local
// filesystem.
func New(uri string) (Source, error) {
	switch {
	case strings.HasPrefix(uri, "s3://"):
		return newS3(strings.TrimPrefix(uri, "s3://"))
	case strings.HasPrefix(uri, "gs://"):
		return newGCS(strings.TrimPrefix(uri, "gs://"))
	case strings.HasPrefix(uri, "file://"):
		return newLocal(strings.TrimPrefix(uri, "file://")), nil
	default:
		return newLocal(uri), nil
	}
}

var errNotFound = errors.New("source: blob not found")

// IsNotFound reports whether err indicates a missing blob, matching the
// "found bool" convention branch.ChunkStore expects from its adapter.
func IsNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}
