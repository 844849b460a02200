package store

import (
	"context"
	"fmt"
)

// NextSequence increments the named counter and returns the new value,
// creating the counter at zero first if needed. Called inside a transaction
// it holds the row until commit, so concurrent callers never share a value.
func (q *Queries) NextSequence(ctx context.Context, name string) (int, error) {
	if _, err := q.exec(ctx, `INSERT INTO sequences (name, last_no) VALUES (?, 0)
		ON CONFLICT (name) DO NOTHING`, name); err != nil {
		return 0, fmt.Errorf("creating sequence %q: %w", name, err)
	}
	if _, err := q.exec(ctx, `UPDATE sequences SET last_no = last_no + 1 WHERE name = ?`, name); err != nil {
		return 0, fmt.Errorf("advancing sequence %q: %w", name, err)
	}
	var lastNo int
	if err := q.get(ctx, &lastNo, `SELECT last_no FROM sequences WHERE name = ?`, name); err != nil {
		return 0, fmt.Errorf("reading sequence %q: %w", name, err)
	}
	return lastNo, nil
}
