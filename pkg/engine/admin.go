package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"trailstop/pkg/custody"
	"trailstop/pkg/ledger"
	"trailstop/pkg/oracle"
)

// InitParams wires the engine's collaborators and initial parameters.
type InitParams struct {
	Ledger                    ledger.PositionLedger
	Oracle                    oracle.PriceOracle
	Custodian                 *custody.Custodian
	Executor                  common.Address
	MinExecutionFee           *big.Int
	MinPurchaseTokenAmountUsd *big.Int
}

// Initialize wires collaborators exactly once. Governance only.
func (e *Engine) Initialize(ctx context.Context, caller common.Address, p InitParams) error {
	if err := e.latch.acquire(); err != nil {
		return err
	}
	defer e.latch.release()

	if err := e.requireGov(caller); err != nil {
		return err
	}
	if e.initialized {
		return ErrAlreadyInitialized
	}
	if p.Ledger == nil || p.Oracle == nil || p.Custodian == nil {
		return errors.New("engine: ledger, oracle and custodian are required")
	}
	if p.MinExecutionFee == nil || p.MinExecutionFee.Sign() <= 0 {
		return errors.New("engine: minimum execution fee must be positive")
	}
	if p.Executor == (common.Address{}) {
		return errors.New("engine: executor address is required")
	}

	e.ledger = p.Ledger
	e.oracle = p.Oracle
	e.custodian = p.Custodian
	e.executor = p.Executor
	e.minExecutionFee = new(big.Int).Set(p.MinExecutionFee)
	if p.MinPurchaseTokenAmountUsd != nil {
		e.minPurchaseTokenAmountUsd = new(big.Int).Set(p.MinPurchaseTokenAmountUsd)
	} else {
		e.minPurchaseTokenAmountUsd = new(big.Int)
	}
	e.initialized = true

	e.emitConfig(ctx, "initialize", fmt.Sprintf("executor=%s minExecutionFee=%s", e.executor.Hex(), e.minExecutionFee))
	return nil
}

// SetMinExecutionFee updates the creation-time fee floor. Existing orders are
// unaffected: the fee check happens only at creation.
func (e *Engine) SetMinExecutionFee(ctx context.Context, caller common.Address, fee *big.Int) error {
	if err := e.latch.acquire(); err != nil {
		return err
	}
	defer e.latch.release()

	if err := e.requireGov(caller); err != nil {
		return err
	}
	if fee == nil || fee.Sign() <= 0 {
		return errors.New("engine: minimum execution fee must be positive")
	}
	e.minExecutionFee = new(big.Int).Set(fee)
	e.emitConfig(ctx, "minExecutionFee", fee.String())
	return nil
}

// SetMinPurchaseTokenAmountUsd stores the reserved minimum-purchase parameter.
// No lifecycle operation reads it; external collaborators may.
func (e *Engine) SetMinPurchaseTokenAmountUsd(ctx context.Context, caller common.Address, amount *big.Int) error {
	if err := e.latch.acquire(); err != nil {
		return err
	}
	defer e.latch.release()

	if err := e.requireGov(caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return errors.New("engine: minimum purchase amount must be non-negative")
	}
	e.minPurchaseTokenAmountUsd = new(big.Int).Set(amount)
	e.emitConfig(ctx, "minPurchaseTokenAmountUsd", amount.String())
	return nil
}

// SetExecutor rotates the executor role.
func (e *Engine) SetExecutor(ctx context.Context, caller, executor common.Address) error {
	if err := e.latch.acquire(); err != nil {
		return err
	}
	defer e.latch.release()

	if err := e.requireGov(caller); err != nil {
		return err
	}
	if executor == (common.Address{}) {
		return errors.New("engine: executor address is required")
	}
	e.executor = executor
	e.emitConfig(ctx, "executor", executor.Hex())
	return nil
}

// SetGov hands governance to a new administrator.
func (e *Engine) SetGov(ctx context.Context, caller, gov common.Address) error {
	if err := e.latch.acquire(); err != nil {
		return err
	}
	defer e.latch.release()

	if err := e.requireGov(caller); err != nil {
		return err
	}
	if gov == (common.Address{}) {
		return errors.New("engine: governance address is required")
	}
	e.gov = gov
	e.emitConfig(ctx, "gov", gov.Hex())
	return nil
}

// Gov returns the current governance address.
func (e *Engine) Gov() common.Address { return e.gov }

// Executor returns the current executor address.
func (e *Engine) Executor() common.Address { return e.executor }

// MinExecutionFee returns the current creation-time fee floor.
func (e *Engine) MinExecutionFee() *big.Int {
	if e.minExecutionFee == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(e.minExecutionFee)
}

// MinPurchaseTokenAmountUsd returns the reserved minimum-purchase parameter.
func (e *Engine) MinPurchaseTokenAmountUsd() *big.Int {
	if e.minPurchaseTokenAmountUsd == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(e.minPurchaseTokenAmountUsd)
}

func (e *Engine) requireGov(caller common.Address) error {
	if caller != e.gov {
		return fmt.Errorf("%w: governance only", ErrUnauthorized)
	}
	return nil
}

func (e *Engine) emitConfig(ctx context.Context, setting, value string) {
	ev := Event{
		Type:    EventConfigChanged,
		Setting: setting,
		Value:   value,
		At:      e.nowFn(),
	}
	ev.Digest = digestEvent(&ev)
	e.sink.Emit(ctx, ev)
}
