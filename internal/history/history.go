// Package history indexes finished generation runs as a small graph of
// runs, the units they executed and the modules they deployed.
package history

import (
	"context"
	"io"
	"time"
)

// Run is one finished generation run.
type Run struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Client    string    `json:"client"`
	Units     []string  `json:"units"`
	Modules   []string  `json:"modules"`
	FileCount int       `json:"fileCount"`
	Success   bool      `json:"success"`
}

// Stats summarizes an index.
type Stats struct {
	Runs     int `json:"runs"`
	Failures int `json:"failures"`
	Units    int `json:"units"`
	Modules  int `json:"modules"`
}

// Index records runs and answers questions about them. Implementations:
// KuzuIndex (persistent, cgo) and MemIndex.
type Index interface {
	io.Closer

	// InitSchema prepares the backing storage. Called once before Record.
	InitSchema(ctx context.Context) error

	Record(ctx context.Context, run Run) error

	// Recent returns up to limit runs, newest first.
	Recent(ctx context.Context, limit int) ([]Run, error)
	// ForUnit returns up to limit runs that executed unitID, newest first.
	ForUnit(ctx context.Context, unitID string, limit int) ([]Run, error)
	// ForModule returns up to limit runs that deployed moduleID, newest first.
	ForModule(ctx context.Context, moduleID string, limit int) ([]Run, error)

	Stats(ctx context.Context) (*Stats, error)
}

// DefaultLimit applies when a query passes a non-positive limit.
const DefaultLimit = 20

func limitOr(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	return n
}
