//services/billing-service/internal/store/postgres/tx_manager.postgres.go

package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

type txKey struct{}

func txFrom(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

// runInTx runs fn in a READ COMMITTED transaction carried by ctx. An enclosing
// transaction is reused.
func (s *Store) runInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := txFrom(ctx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return unavailable("begin tx", err)
	}

	// Ensure rollback on panic
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		}
	}()

	err = fn(context.WithValue(ctx, txKey{}, tx))
	if err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return unavailable("commit", err)
	}
	return nil
}

// RunInFleetTx takes a transaction-scoped advisory lock on the fleet before running fn.
// Every statement under READ COMMITTED sees rows committed by the previous lock holder,
// so the overlap check and the insert act on current data.
func (s *Store) RunInFleetTx(ctx context.Context, fleetID uuid.UUID, fn func(ctx context.Context) error) error {
	return s.runInTx(ctx, func(ctx context.Context) error {
		if _, err := s.conn(ctx).ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, fleetID.String()); err != nil {
			return unavailable("lock fleet", err)
		}
		return fn(ctx)
	})
}
