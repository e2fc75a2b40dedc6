// internal/catalog/catalog.go
//
// The corpus of car listings the game draws rounds from.
// Implementations: in-memory (memory.go) and SQLite (sqlite.go).

package catalog

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"

	"github.com/robalobadob/carguess/internal/car"
)

var (
	ErrNotFound = errors.New("catalog: not found")
	ErrEmpty    = errors.New("catalog: empty")
)

// Catalog defines access to the listing corpus.
type Catalog interface {
	// Random returns one uniformly sampled record, or ErrEmpty.
	Random(ctx context.Context) (car.Car, error)

	// Get returns the record with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (car.Car, error)

	// SearchTitles returns deduplicated titles containing query,
	// case-insensitive and literal. Blank queries return an empty slice.
	SearchTitles(ctx context.Context, query string) ([]string, error)

	// Count reports the number of records.
	Count(ctx context.Context) (int, error)

	// Upsert inserts or replaces records by id.
	Upsert(ctx context.Context, cars ...car.Car) error
}

// randomIndex returns a uniform index in [0, n) using crypto/rand.
func randomIndex(n int) int {
	if n <= 1 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}
