package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Store wraps the shared *sql.DB and provides the transaction helper every
// check-then-set path runs under. Repositories expose *Tx methods that
// expect to be called inside Transact so that read-then-write sequences
// (consume a code, debit a balance) commit or roll back as one unit.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store bound to the given database handle.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// DB exposes the underlying handle for plain reads.
func (s *Store) DB() *sql.DB { return s.db }

// Transact runs fn inside a transaction, committing on nil and rolling
// back on error or panic. Write paths are never retried here: retrying a
// consume or debit after an ambiguous failure risks double application, so
// the error is returned for the caller to re-query and decide.
func (s *Store) Transact(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
