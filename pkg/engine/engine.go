// Package engine implements the trailing-stop order lifecycle: creation,
// mutation, cancellation and execution, including execution-fee escrow and
// collateral settlement through the position ledger.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"trailstop/pkg/custody"
	"trailstop/pkg/ledger"
	"trailstop/pkg/oracle"
	"trailstop/pkg/orders"
)

// CreateOrderParams are the caller-supplied fields of a new order. The
// execution fee is not a parameter: it is the value attached to the call.
type CreateOrderParams struct {
	CollateralToken       common.Address
	IndexToken            common.Address
	CollateralDelta       *big.Int
	SizeDelta             *big.Int
	IsLong                bool
	TriggerPrice          *big.Int
	TriggerAboveThreshold bool
	TrailingBPS           uint64
}

// UpdateOrderParams cover the mutable fields. Identity fields (account,
// tokens, direction) and the escrowed fee cannot change after creation.
type UpdateOrderParams struct {
	CollateralDelta       *big.Int
	SizeDelta             *big.Int
	TriggerPrice          *big.Int
	TriggerAboveThreshold bool
	TrailingBPS           uint64
}

// Engine orchestrates the order lifecycle against the store, the oracle, the
// position ledger and the native-currency custodian. Every state-mutating
// entry point is wrapped by the process-wide reentrancy latch and either
// completes in full or leaves no trace.
type Engine struct {
	latch reentrancyLatch

	gov                       common.Address
	executor                  common.Address
	initialized               bool
	minExecutionFee           *big.Int
	minPurchaseTokenAmountUsd *big.Int

	store     *orders.Store
	oracle    oracle.PriceOracle
	ledger    ledger.PositionLedger
	custodian *custody.Custodian
	sink      EventSink

	nowFn func() time.Time
}

// New constructs an engine governed by gov. Collaborators are wired by
// Initialize before any lifecycle call is accepted.
func New(gov common.Address, store *orders.Store, sink EventSink) (*Engine, error) {
	if gov == (common.Address{}) {
		return nil, errors.New("engine: governance address is required")
	}
	if store == nil {
		return nil, errors.New("engine: order store is required")
	}
	if sink == nil {
		sink = NewLogSink()
	}
	return &Engine{
		gov:   gov,
		store: store,
		sink:  sink,
		nowFn: time.Now,
	}, nil
}

// Store exposes the underlying order table for read-only keeper scans.
func (e *Engine) Store() *orders.Store { return e.store }

// CreateOrder escrows attachedValue as the execution fee and registers a new
// order under the caller's next free index, which it returns. The attached
// value must strictly exceed the configured minimum.
func (e *Engine) CreateOrder(ctx context.Context, caller common.Address, p CreateOrderParams, attachedValue *big.Int) (uint64, error) {
	if err := e.latch.acquire(); err != nil {
		return 0, err
	}
	defer e.latch.release()

	if !e.initialized {
		return 0, ErrNotInitialized
	}
	if caller == (common.Address{}) {
		return 0, fmt.Errorf("%w: zero caller", ErrUnauthorized)
	}
	if err := validateCreateParams(p); err != nil {
		return 0, err
	}
	if attachedValue == nil || attachedValue.Cmp(e.minExecutionFee) <= 0 {
		return 0, fmt.Errorf("%w: attached %s, minimum %s", ErrInsufficientExecutionFee, bigString(attachedValue), e.minExecutionFee)
	}

	// Escrow first: the attached native value becomes wrapped balance before
	// the order exists, so a failed wrap leaves no state behind.
	if err := e.custodian.WrapIn(ctx, attachedValue); err != nil {
		return 0, err
	}

	index := e.store.NextIndex(caller)
	order := orders.TrailingStopOrder{
		Account:               caller,
		CollateralToken:       p.CollateralToken,
		IndexToken:            p.IndexToken,
		CollateralDelta:       new(big.Int).Set(p.CollateralDelta),
		SizeDelta:             new(big.Int).Set(p.SizeDelta),
		IsLong:                p.IsLong,
		TriggerPrice:          new(big.Int).Set(p.TriggerPrice),
		TriggerAboveThreshold: p.TriggerAboveThreshold,
		ExecutionFee:          new(big.Int).Set(attachedValue),
		TrailingBPS:           p.TrailingBPS,
	}
	e.store.Put(caller, index, order)

	e.emitOrder(ctx, EventOrderCreated, caller, index, &order, nil, common.Address{})
	return index, nil
}

// UpdateOrder overwrites the mutable fields of the caller's order in place.
// Lookup is scoped to the caller, so another account's orders are structurally
// out of reach.
func (e *Engine) UpdateOrder(ctx context.Context, caller common.Address, index uint64, p UpdateOrderParams) error {
	if err := e.latch.acquire(); err != nil {
		return err
	}
	defer e.latch.release()

	if !e.initialized {
		return ErrNotInitialized
	}
	if err := validateUpdateParams(p); err != nil {
		return err
	}
	order, ok := e.store.Get(caller, index)
	if !ok {
		return fmt.Errorf("%w: account %s index %d", ErrNonExistentOrder, caller.Hex(), index)
	}

	order.CollateralDelta = new(big.Int).Set(p.CollateralDelta)
	order.SizeDelta = new(big.Int).Set(p.SizeDelta)
	order.TriggerPrice = new(big.Int).Set(p.TriggerPrice)
	order.TriggerAboveThreshold = p.TriggerAboveThreshold
	order.TrailingBPS = p.TrailingBPS
	e.store.Put(caller, index, order)

	e.emitOrder(ctx, EventOrderUpdated, caller, index, &order, nil, common.Address{})
	return nil
}

// CancelOrder terminates the caller's order and refunds the escrowed
// execution fee in native currency. The slot is cleared before the refund
// leaves, so a reentrant cancel cannot observe the order mid-settlement.
func (e *Engine) CancelOrder(ctx context.Context, caller common.Address, index uint64) error {
	if err := e.latch.acquire(); err != nil {
		return err
	}
	defer e.latch.release()

	if !e.initialized {
		return ErrNotInitialized
	}
	order, ok := e.store.Get(caller, index)
	if !ok {
		return fmt.Errorf("%w: account %s index %d", ErrNonExistentOrder, caller.Hex(), index)
	}

	e.store.Delete(caller, index)
	if err := e.custodian.WrapOut(ctx, order.ExecutionFee, caller); err != nil {
		// The refund never left; restore the slot so the call is a clean
		// all-or-nothing failure.
		e.store.Put(caller, index, order)
		return fmt.Errorf("engine: refund execution fee: %w", err)
	}

	e.emitOrder(ctx, EventOrderCancelled, caller, index, &order, nil, common.Address{})
	return nil
}

// ExecuteOrder settles an order whose trigger condition holds. Restricted to
// the executor role. The order is deleted before any external value transfer;
// the released collateral goes to the order's account and the escrowed fee to
// feeRecipient.
func (e *Engine) ExecuteOrder(ctx context.Context, caller, account common.Address, index uint64, feeRecipient common.Address) error {
	if err := e.latch.acquire(); err != nil {
		return err
	}
	defer e.latch.release()

	if !e.initialized {
		return ErrNotInitialized
	}
	if caller != e.executor {
		return fmt.Errorf("%w: executor only", ErrUnauthorized)
	}
	if feeRecipient == (common.Address{}) {
		return errors.New("engine: fee recipient is required")
	}
	order, ok := e.store.Get(account, index)
	if !ok {
		return fmt.Errorf("%w: account %s index %d", ErrNonExistentOrder, account.Hex(), index)
	}

	// Closing a long reads the minimum quote, closing a short the maximum:
	// always the side least favorable to the position being closed.
	price, _, err := oracle.ValidateTrigger(ctx, e.oracle,
		order.TriggerAboveThreshold, order.TriggerPrice, order.IndexToken, !order.IsLong, true)
	if err != nil {
		return err
	}

	// Delete before pay. A callback from the ledger or a token transfer must
	// find the slot empty.
	e.store.Delete(account, index)

	released, err := e.ledger.PluginDecreasePosition(ctx, account,
		order.CollateralToken, order.IndexToken, order.CollateralDelta, order.SizeDelta, order.IsLong, e.custodian.Self())
	if err != nil {
		e.store.Put(account, index, order)
		return fmt.Errorf("engine: decrease position: %w", err)
	}

	if err := e.routeCollateral(ctx, order.CollateralToken, account, released); err != nil {
		return err
	}
	if err := e.custodian.WrapOut(ctx, order.ExecutionFee, feeRecipient); err != nil {
		return fmt.Errorf("engine: pay execution fee: %w", err)
	}

	e.emitOrder(ctx, EventOrderExecuted, account, index, &order, price, feeRecipient)
	return nil
}

// ShouldExecute reports whether the order's trigger currently holds, and at
// what price, without mutating anything. Keepers poll this before submitting
// ExecuteOrder.
func (e *Engine) ShouldExecute(ctx context.Context, account common.Address, index uint64) (*big.Int, bool, error) {
	if !e.initialized {
		return nil, false, ErrNotInitialized
	}
	order, ok := e.store.Get(account, index)
	if !ok {
		return nil, false, fmt.Errorf("%w: account %s index %d", ErrNonExistentOrder, account.Hex(), index)
	}
	return oracle.ValidateTrigger(ctx, e.oracle,
		order.TriggerAboveThreshold, order.TriggerPrice, order.IndexToken, !order.IsLong, false)
}

// routeCollateral forwards released collateral to the order's account,
// unwrapping to native currency when the collateral is the wrapped asset.
func (e *Engine) routeCollateral(ctx context.Context, token, account common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if e.custodian.IsWrappedNative(token) {
		if err := e.custodian.WrapOut(ctx, amount, account); err != nil {
			return fmt.Errorf("engine: forward native collateral: %w", err)
		}
		return nil
	}
	if err := e.custodian.SendToken(ctx, token, account, amount); err != nil {
		return fmt.Errorf("engine: forward collateral: %w", err)
	}
	return nil
}

func (e *Engine) emitOrder(ctx context.Context, typ EventType, account common.Address, index uint64, order *orders.TrailingStopOrder, price *big.Int, feeRecipient common.Address) {
	snapshot := order.Clone()
	ev := Event{
		Type:           typ,
		Account:        account,
		OrderIndex:     index,
		Order:          &snapshot,
		ExecutionPrice: price,
		FeeRecipient:   feeRecipient,
		At:             e.nowFn(),
	}
	ev.Digest = digestEvent(&ev)
	e.sink.Emit(ctx, ev)
}

func validateCreateParams(p CreateOrderParams) error {
	if p.IndexToken == (common.Address{}) || p.CollateralToken == (common.Address{}) {
		return errors.New("engine: collateral and index tokens are required")
	}
	if p.SizeDelta == nil || p.CollateralDelta == nil {
		return errors.New("engine: size and collateral deltas are required")
	}
	if p.TriggerPrice == nil || p.TriggerPrice.Sign() <= 0 {
		return errors.New("engine: trigger price must be positive")
	}
	return nil
}

func validateUpdateParams(p UpdateOrderParams) error {
	if p.SizeDelta == nil || p.CollateralDelta == nil {
		return errors.New("engine: size and collateral deltas are required")
	}
	if p.TriggerPrice == nil || p.TriggerPrice.Sign() <= 0 {
		return errors.New("engine: trigger price must be positive")
	}
	return nil
}
