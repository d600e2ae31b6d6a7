// Package store persists parsed activities.
package store

import (
	"context"
	"errors"

	"github.com/lucasjlepore/techjournal/canonical"
)

// ErrNotFound is returned when an activity id is not stored.
var ErrNotFound = errors.New("activity not found")

// Record is everything stored for one activity.
type Record struct {
	Activity canonical.Activity     `json:"activity"`
	Laps     []canonical.Lap        `json:"laps"`
	Points   []canonical.TrackPoint `json:"points"`
}

// Repository is the persistence seam used by the importer and the CLI.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Upsert stores or replaces the record keyed by its activity id.
	Upsert(ctx context.Context, rec *Record) error
	// Insert stores rec only when its activity id is not stored yet. The
	// check and the write happen in one transaction; created is false when
	// the id was already present.
	Insert(ctx context.Context, rec *Record) (created bool, err error)
	Exists(ctx context.Context, id string) (bool, error)
	// ExistsFileName reports whether any stored activity came from a file
	// with this base name.
	ExistsFileName(ctx context.Context, name string) (bool, error)
	Get(ctx context.Context, id string) (*Record, error)
	// List returns activity summaries ordered by start time, then id.
	// Activities without a start time sort last.
	List(ctx context.Context) ([]canonical.Activity, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
