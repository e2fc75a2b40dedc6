package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robalobadob/carguess/internal/car"
	"github.com/robalobadob/carguess/internal/suggest"
)

// SQLite is a Catalog backed by the cars table. The *sql.DB must come
// from db.Open so that casefold() is available.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLite { return &SQLite{db: db} }

// Random picks an offset uniformly in [0, COUNT(*)).
func (s *SQLite) Random(ctx context.Context) (car.Car, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return car.Car{}, err
	}
	if n == 0 {
		return car.Car{}, ErrEmpty
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT doc FROM cars ORDER BY rowid LIMIT 1 OFFSET ?`, randomIndex(n))
	c, err := scanDoc(row)
	if errors.Is(err, ErrNotFound) {
		// rows were removed between COUNT and SELECT
		return car.Car{}, ErrEmpty
	}
	return c, err
}

func (s *SQLite) Get(ctx context.Context, id string) (car.Car, error) {
	return scanDoc(s.db.QueryRowContext(ctx, `SELECT doc FROM cars WHERE id=?`, id))
}

// SearchTitles uses instr() rather than LIKE or a pattern, so the query is
// matched as literal text.
func (s *SQLite) SearchTitles(ctx context.Context, query string) ([]string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []string{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT title FROM cars
        WHERE instr(casefold(title), casefold(?)) > 0
        ORDER BY rowid
        LIMIT ?`, q, suggest.MaxRawMatches)
	if err != nil {
		return nil, fmt.Errorf("search titles: %w", err)
	}
	defer rows.Close()

	raw := make([]string, 0, suggest.MaxRawMatches)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		raw = append(raw, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return suggest.Dedupe(raw), nil
}

func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cars`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cars: %w", err)
	}
	return n, nil
}

func (s *SQLite) Upsert(ctx context.Context, cars ...car.Car) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO cars (id, title, year, price, initial_price_rub, doc, imported_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            title=excluded.title,
            year=excluded.year,
            price=excluded.price,
            initial_price_rub=excluded.initial_price_rub,
            doc=excluded.doc,
            imported_at=excluded.imported_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, c := range cars {
		if c.ID == "" {
			return errors.New("catalog: record without id")
		}
		c.Ticket = ""
		doc, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode %s: %w", c.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.Title, c.Year.Ptr(), c.Price.Ptr(), c.InitialPriceRub.Ptr(), string(doc), now,
		); err != nil {
			return fmt.Errorf("upsert %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

func scanDoc(row *sql.Row) (car.Car, error) {
	var doc string
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return car.Car{}, ErrNotFound
		}
		return car.Car{}, err
	}
	var c car.Car
	if err := json.Unmarshal([]byte(doc), &c); err != nil {
		return car.Car{}, fmt.Errorf("decode car: %w", err)
	}
	return c, nil
}
