// internal/catalog/memory.go
//
// In-memory Catalog. Used by tests and when the server runs without a
// database file. Records keep insertion order, which is also the order
// title search walks them in.

package catalog

import (
	"context"
	"errors"
	"sync"

	"github.com/robalobadob/carguess/internal/car"
	"github.com/robalobadob/carguess/internal/suggest"
)

type memory struct {
	mu    sync.RWMutex
	order []string
	cars  map[string]car.Car
}

// NewMemory constructs an in-memory Catalog holding cars.
func NewMemory(cars ...car.Car) Catalog {
	m := &memory{cars: make(map[string]car.Car)}
	_ = m.Upsert(context.Background(), cars...)
	return m
}

func (m *memory) Random(ctx context.Context) (car.Car, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.order) == 0 {
		return car.Car{}, ErrEmpty
	}
	return m.cars[m.order[randomIndex(len(m.order))]], nil
}

func (m *memory) Get(ctx context.Context, id string) (car.Car, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.cars[id]; ok {
		return c, nil
	}
	return car.Car{}, ErrNotFound
}

func (m *memory) SearchTitles(ctx context.Context, query string) ([]string, error) {
	m.mu.RLock()
	titles := make([]string, 0, len(m.order))
	for _, id := range m.order {
		titles = append(titles, m.cars[id].Title)
	}
	m.mu.RUnlock()
	return suggest.Match(titles, query), nil
}

func (m *memory) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order), nil
}

func (m *memory) Upsert(ctx context.Context, cars ...car.Car) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cars {
		if c.ID == "" {
			return errors.New("catalog: record without id")
		}
		if _, ok := m.cars[c.ID]; !ok {
			m.order = append(m.order, c.ID)
		}
		c.Ticket = ""
		m.cars[c.ID] = c
	}
	return nil
}
