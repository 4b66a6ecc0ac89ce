package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"liqwatch/internal/model"
	"liqwatch/internal/store"
)

type positionRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPositionRepo creates the postgres balance/open-order repository.
func NewPositionRepo(db *sqlx.DB, timeout time.Duration) store.PositionRepo {
	return &positionRepo{db: db, timeout: timeout}
}

func (r *positionRepo) InsertBalances(ctx context.Context, balances []model.BalanceSnapshot) error {
	if len(balances) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin balance batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO balance_snapshots (venue, asset, free, locked, total, quote_value, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	if err != nil {
		return fmt.Errorf("prepare balance insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range balances {
		if _, err := stmt.ExecContext(ctx,
			b.Venue, b.Asset, b.Free, b.Locked, b.Total, b.QuoteValue, b.CapturedAt); err != nil {
			return fmt.Errorf("insert balance %s: %w", b.Asset, err)
		}
	}

	return tx.Commit()
}

func (r *positionRepo) ReplaceOpenOrders(ctx context.Context, venue model.Venue, orders []model.OpenOrder) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin open-order replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM open_orders WHERE venue = $1`, venue); err != nil {
		return fmt.Errorf("clear open orders: %w", err)
	}

	if len(orders) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO open_orders (venue, order_id, side, price, amount, filled, order_type, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
		if err != nil {
			return fmt.Errorf("prepare open-order insert: %w", err)
		}
		defer stmt.Close()

		for _, o := range orders {
			if _, err := stmt.ExecContext(ctx,
				o.Venue, o.OrderID, o.Side, o.Price, o.Amount, o.Filled,
				o.OrderType, o.CreatedAt); err != nil {
				return fmt.Errorf("insert open order %s: %w", o.OrderID, err)
			}
		}
	}

	return tx.Commit()
}
