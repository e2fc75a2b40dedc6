package rounds

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// Ledger remembers which tickets have been scored.
type Ledger interface {
	// Consume marks t as scored. It returns ErrTicketUsed if t was
	// already consumed.
	Consume(ctx context.Context, t Ticket) error

	// Prune forgets tickets that expired before now.
	Prune(ctx context.Context, now time.Time) (int64, error)
}

// memoryLedger is a map-based Ledger guarded by a mutex.
type memoryLedger struct {
	mu   sync.Mutex
	used map[string]time.Time // ticket id -> expiry
}

func NewMemoryLedger() Ledger {
	return &memoryLedger{used: make(map[string]time.Time)}
}

func (m *memoryLedger) Consume(ctx context.Context, t Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.used[t.ID]; ok {
		return ErrTicketUsed
	}
	m.used[t.ID] = t.ExpiresAt
	return nil
}

func (m *memoryLedger) Prune(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, exp := range m.used {
		if exp.Before(now) {
			delete(m.used, id)
			n++
		}
	}
	return n, nil
}

// SQLLedger stores consumed tickets in the scored_tickets table.
type SQLLedger struct {
	db *sql.DB
}

func NewSQLLedger(db *sql.DB) *SQLLedger { return &SQLLedger{db: db} }

func (l *SQLLedger) Consume(ctx context.Context, t Ticket) error {
	res, err := l.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO scored_tickets (id, car_id, expires_at) VALUES (?, ?, ?)`,
		t.ID, t.CarID, t.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("consume ticket: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTicketUsed
	}
	return nil
}

func (l *SQLLedger) Prune(ctx context.Context, now time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM scored_tickets WHERE expires_at < ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune tickets: %w", err)
	}
	return res.RowsAffected()
}
