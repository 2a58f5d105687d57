// Package sim provides an in-memory position ledger for tests and paper
// trading. Positions, margin and release accounting live behind a mutex, in
// the same spirit as the custody sim bank.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"trailstop/pkg/custody"
)

// ErrUnknownPosition is returned when a decrease targets a position the
// ledger does not hold.
var ErrUnknownPosition = errors.New("sim: unknown position")

type positionKey struct {
	Account         common.Address
	CollateralToken common.Address
	IndexToken      common.Address
	IsLong          bool
}

type positionState struct {
	Size       *big.Int // 1e30 price-scaled notional
	Collateral *big.Int // margin held, denominated in collateral token
}

// Ledger is a minimal position ledger: open positions carry a size and a
// collateral balance, and decreases release collateral through the bank.
type Ledger struct {
	mu        sync.Mutex
	bank      custody.Bank
	vault     common.Address // identity the ledger pays collateral from
	positions map[positionKey]*positionState
	plugins   map[common.Address]bool
}

// New constructs a ledger that settles collateral out of vault via bank.
func New(bank custody.Bank, vault common.Address) *Ledger {
	return &Ledger{
		bank:      bank,
		vault:     vault,
		positions: make(map[positionKey]*positionState),
		plugins:   make(map[common.Address]bool),
	}
}

// ApprovePlugin authorizes an engine identity to act on positions.
func (l *Ledger) ApprovePlugin(plugin common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.plugins[plugin] = true
}

// ForPlugin returns a handle acting as the given plugin identity. Decreases
// through an unapproved handle are rejected, mirroring the ledger-side plugin
// allowlist of the real system.
func (l *Ledger) ForPlugin(plugin common.Address) *PluginHandle {
	return &PluginHandle{ledger: l, plugin: plugin}
}

// PluginHandle is a plugin-scoped view of the ledger.
type PluginHandle struct {
	ledger *Ledger
	plugin common.Address
}

// PluginDecreasePosition implements ledger.PositionLedger for the bound plugin.
func (h *PluginHandle) PluginDecreasePosition(ctx context.Context, account, collateralToken, indexToken common.Address, collateralDelta, sizeDelta *big.Int, isLong bool, receiver common.Address) (*big.Int, error) {
	h.ledger.mu.Lock()
	approved := h.ledger.plugins[h.plugin]
	h.ledger.mu.Unlock()
	if !approved {
		return nil, fmt.Errorf("sim: plugin %s not approved", h.plugin.Hex())
	}
	return h.ledger.PluginDecreasePosition(ctx, account, collateralToken, indexToken, collateralDelta, sizeDelta, isLong, receiver)
}

// OpenPosition seeds a position. Test/paper setup only; margin must already be
// funded into the vault so later releases can be paid out.
func (l *Ledger) OpenPosition(account, collateralToken, indexToken common.Address, size, collateral *big.Int, isLong bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := positionKey{account, collateralToken, indexToken, isLong}
	l.positions[key] = &positionState{
		Size:       new(big.Int).Set(size),
		Collateral: new(big.Int).Set(collateral),
	}
}

// Position returns the current size and collateral of a position, or nil
// values when it does not exist.
func (l *Ledger) Position(account, collateralToken, indexToken common.Address, isLong bool) (size, collateral *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[positionKey{account, collateralToken, indexToken, isLong}]
	if !ok {
		return nil, nil
	}
	return new(big.Int).Set(p.Size), new(big.Int).Set(p.Collateral)
}

// PluginDecreasePosition implements ledger.PositionLedger. The released amount
// is collateralDelta plus, on a full close, whatever collateral remains.
func (l *Ledger) PluginDecreasePosition(ctx context.Context, account, collateralToken, indexToken common.Address, collateralDelta, sizeDelta *big.Int, isLong bool, receiver common.Address) (*big.Int, error) {
	l.mu.Lock()
	key := positionKey{account, collateralToken, indexToken, isLong}
	p, ok := l.positions[key]
	if !ok {
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: account %s index token %s", ErrUnknownPosition, account.Hex(), indexToken.Hex())
	}
	if sizeDelta.Cmp(p.Size) > 0 {
		l.mu.Unlock()
		return nil, fmt.Errorf("sim: size delta %s exceeds position size %s", sizeDelta, p.Size)
	}
	if collateralDelta.Cmp(p.Collateral) > 0 {
		l.mu.Unlock()
		return nil, fmt.Errorf("sim: collateral delta %s exceeds position collateral %s", collateralDelta, p.Collateral)
	}

	released := new(big.Int).Set(collateralDelta)
	p.Size.Sub(p.Size, sizeDelta)
	p.Collateral.Sub(p.Collateral, collateralDelta)
	if p.Size.Sign() == 0 {
		// Full close: the remaining margin comes back with the release.
		released.Add(released, p.Collateral)
		delete(l.positions, key)
	}
	l.mu.Unlock()

	if released.Sign() > 0 {
		if err := l.bank.Transfer(ctx, collateralToken, l.vault, receiver, released); err != nil {
			return nil, fmt.Errorf("sim: pay released collateral: %w", err)
		}
	}
	return released, nil
}
