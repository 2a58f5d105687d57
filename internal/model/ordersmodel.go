package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

// ErrNotFound is returned when a mirrored order row is absent.
var ErrNotFound = sqlx.ErrNotFound

// OrderRecord is a row in the orders mirror table. Big integers travel as
// decimal strings; Postgres stores them as NUMERIC.
type OrderRecord struct {
	Account               string `db:"account"`
	OrderIndex            uint64 `db:"order_index"`
	CollateralToken       string `db:"collateral_token"`
	IndexToken            string `db:"index_token"`
	CollateralDelta       string `db:"collateral_delta"`
	SizeDelta             string `db:"size_delta"`
	IsLong                bool   `db:"is_long"`
	TriggerPrice          string `db:"trigger_price"`
	TriggerAboveThreshold bool   `db:"trigger_above_threshold"`
	ExecutionFee          string `db:"execution_fee"`
	TrailingBps           uint64 `db:"trailing_bps"`
	UpdatedAtMs           int64  `db:"updated_at_ms"`
}

// OrdersModel mirrors the in-process order store into Postgres so indexers
// and dashboards can read live orders without touching the engine.
type OrdersModel interface {
	Upsert(ctx context.Context, rec *OrderRecord) error
	Delete(ctx context.Context, account string, orderIndex uint64) error
	FindOne(ctx context.Context, account string, orderIndex uint64) (*OrderRecord, error)
	ActiveByAccount(ctx context.Context, account string) ([]OrderRecord, error)
}

type defaultOrdersModel struct {
	conn sqlx.SqlConn
}

// NewOrdersModel returns a model for the orders mirror table.
func NewOrdersModel(conn sqlx.SqlConn) OrdersModel {
	return &defaultOrdersModel{conn: conn}
}

const orderColumns = `
    account,
    order_index,
    collateral_token,
    index_token,
    collateral_delta,
    size_delta,
    is_long,
    trigger_price,
    trigger_above_threshold,
    execution_fee,
    trailing_bps,
    updated_at_ms`

func (m *defaultOrdersModel) Upsert(ctx context.Context, rec *OrderRecord) error {
	if rec == nil {
		return errors.New("model: nil order record")
	}
	query := `
INSERT INTO orders (` + orderColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (account, order_index) DO UPDATE SET
    collateral_delta = EXCLUDED.collateral_delta,
    size_delta = EXCLUDED.size_delta,
    trigger_price = EXCLUDED.trigger_price,
    trigger_above_threshold = EXCLUDED.trigger_above_threshold,
    trailing_bps = EXCLUDED.trailing_bps,
    updated_at_ms = EXCLUDED.updated_at_ms`
	_, err := m.conn.ExecCtx(ctx, query,
		rec.Account, rec.OrderIndex, rec.CollateralToken, rec.IndexToken,
		rec.CollateralDelta, rec.SizeDelta, rec.IsLong, rec.TriggerPrice,
		rec.TriggerAboveThreshold, rec.ExecutionFee, rec.TrailingBps, rec.UpdatedAtMs)
	if err != nil {
		return fmt.Errorf("model: upsert order %s/%d: %w", rec.Account, rec.OrderIndex, err)
	}
	return nil
}

func (m *defaultOrdersModel) Delete(ctx context.Context, account string, orderIndex uint64) error {
	query := `DELETE FROM orders WHERE account = $1 AND order_index = $2`
	if _, err := m.conn.ExecCtx(ctx, query, account, orderIndex); err != nil {
		return fmt.Errorf("model: delete order %s/%d: %w", account, orderIndex, err)
	}
	return nil
}

func (m *defaultOrdersModel) FindOne(ctx context.Context, account string, orderIndex uint64) (*OrderRecord, error) {
	query := `SELECT` + orderColumns + ` FROM orders WHERE account = $1 AND order_index = $2 LIMIT 1`
	var rec OrderRecord
	err := m.conn.QueryRowCtx(ctx, &rec, query, account, orderIndex)
	switch {
	case err == nil:
		return &rec, nil
	case errors.Is(err, sqlx.ErrNotFound) || errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("model: find order %s/%d: %w", account, orderIndex, err)
	}
}

func (m *defaultOrdersModel) ActiveByAccount(ctx context.Context, account string) ([]OrderRecord, error) {
	query := `SELECT` + orderColumns + ` FROM orders WHERE account = $1 ORDER BY order_index`
	var rows []OrderRecord
	if err := m.conn.QueryRowsCtx(ctx, &rows, query, account); err != nil {
		return nil, fmt.Errorf("model: active orders for %s: %w", account, err)
	}
	return rows, nil
}
