//go:build !cgo

package history

import "context"

// Persistent reports whether Open returns a durable index.
const Persistent = false

// Open returns an in-memory index. Builds without cgo have no KuzuDB
// driver, so runs are indexed for the life of the process only.
func Open(_ context.Context, _ string) (Index, error) {
	return NewMemIndex(), nil
}
