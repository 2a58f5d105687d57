// Package orders mirrors engine events into Postgres. The mirror is
// write-behind: a failed database write is logged and never blocks or rolls
// back the engine transition it describes.
package orders

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"trailstop/internal/model"
	"trailstop/pkg/engine"
)

var _ engine.EventSink = (*Service)(nil)

// Service implements engine.EventSink on top of the orders model.
type Service struct {
	ordersModel model.OrdersModel
	timeout     time.Duration
}

// NewService builds the mirror sink; returns nil when no model is wired so
// callers can skip it in DB-less deployments.
func NewService(ordersModel model.OrdersModel) *Service {
	if ordersModel == nil {
		return nil
	}
	return &Service{ordersModel: ordersModel, timeout: 5 * time.Second}
}

// Emit implements engine.EventSink.
func (s *Service) Emit(ctx context.Context, ev engine.Event) {
	if s == nil || s.ordersModel == nil {
		return
	}
	// The engine's latch is held while sinks run; detach from the caller's
	// deadline but stay bounded.
	dbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	var err error
	switch ev.Type {
	case engine.EventOrderCreated, engine.EventOrderUpdated:
		if ev.Order == nil {
			return
		}
		err = s.ordersModel.Upsert(dbCtx, &model.OrderRecord{
			Account:               ev.Account.Hex(),
			OrderIndex:            ev.OrderIndex,
			CollateralToken:       ev.Order.CollateralToken.Hex(),
			IndexToken:            ev.Order.IndexToken.Hex(),
			CollateralDelta:       ev.Order.CollateralDelta.String(),
			SizeDelta:             ev.Order.SizeDelta.String(),
			IsLong:                ev.Order.IsLong,
			TriggerPrice:          ev.Order.TriggerPrice.String(),
			TriggerAboveThreshold: ev.Order.TriggerAboveThreshold,
			ExecutionFee:          ev.Order.ExecutionFee.String(),
			TrailingBps:           ev.Order.TrailingBPS,
			UpdatedAtMs:           ev.At.UnixMilli(),
		})
	case engine.EventOrderCancelled, engine.EventOrderExecuted:
		err = s.ordersModel.Delete(dbCtx, ev.Account.Hex(), ev.OrderIndex)
	default:
		return
	}
	if err != nil {
		logx.WithContext(ctx).Errorf("orders mirror: %s %s/%d: %v", ev.Type, ev.Account.Hex(), ev.OrderIndex, err)
	}
}
