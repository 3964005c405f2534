// Package docstore is the persistence boundary for aggregate documents. Each
// aggregate (case, prisoner) serializes to a single document; the store is a
// dumb upsert/fetch/delete surface keyed by collection and id.
package docstore

import (
	"context"

	dErrors "github.com/CthulhuOnIce/Stasi-sub000/pkg/domain-errors"
)

// ErrNotFound keeps storage-specific 404s consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "document not found")

// Store persists aggregate documents. Implementations must treat Save as an
// upsert and List as a full collection scan for startup rehydration.
type Store interface {
	Save(ctx context.Context, collection, id string, doc []byte) error
	Get(ctx context.Context, collection, id string) ([]byte, error)
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string) (map[string][]byte, error)
}

// Collection names used by the court service.
const (
	CollectionCases     = "cases"
	CollectionPrisoners = "prisoners"
)
