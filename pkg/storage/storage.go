package storage

import (
	"context"
	"os"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when the requested key does not exist.
	ErrNotFound = errors.New("Not found")
)

// Storage is the interface document stores must implement. Keys are
// slash-separated paths, values are opaque byte slices.
type Storage interface {
	Reader
	Writer

	Remove(ctx context.Context, key string) error

	// Search returns the bodies of all objects under the "path" key of the
	// query.
	Search(ctx context.Context, query map[string]string) ([][]byte, error)

	// List returns the keys found under the given path.
	List(ctx context.Context, path string) ([]string, error)

	// Clear removes all objects under the "path" key of the query.
	Clear(ctx context.Context, query map[string]string) error
}

// Reader can read a stored object.
type Reader interface {
	Read(ctx context.Context, key string) ([]byte, error)
}

// Writer can write an object to storage.
type Writer interface {
	Write(ctx context.Context, key string, body []byte, options *Options) error
}

// Options alter the behavior of a write.
type Options struct {
	// TTL is the time to live in seconds. Zero means no expiry. Only
	// honored by backends that support expiry.
	TTL int64

	// Mode is the file mode applied by filesystem backed storage.
	Mode os.FileMode

	// DirMode is the mode applied to directories created by filesystem
	// backed storage.
	DirMode os.FileMode
}

// NewOptions returns Options with defaults applied.
func NewOptions() Options {
	return Options{
		Mode:    0644,
		DirMode: 0755,
	}
}
