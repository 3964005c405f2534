// Package blob is the attachment storage boundary used by evidence and case
// archives. The production deployment points this at an object store; the
// in-memory implementation backs tests and development.
package blob

import (
	"context"

	dErrors "github.com/CthulhuOnIce/Stasi-sub000/pkg/domain-errors"
)

// ErrNotFound signals an unresolved blob reference.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "blob not found")

// Store holds opaque byte payloads keyed by generated IDs.
type Store interface {
	Put(ctx context.Context, filename string, data []byte) (string, error)
	Get(ctx context.Context, id string) (filename string, data []byte, err error)
	Delete(ctx context.Context, id string) error
}
