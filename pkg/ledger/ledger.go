// Package ledger defines the position-ledger boundary. The ledger is the
// external system of record for open leveraged positions; the order engine
// delegates the actual unwind and collateral accounting to it.
package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PositionLedger unwinds positions on behalf of an authorized plugin.
type PositionLedger interface {
	// PluginDecreasePosition closes sizeDelta of the (account, collateralToken,
	// indexToken, isLong) position, withdrawing collateralDelta of margin, and
	// pays the released collateral to receiver in collateralToken. It returns
	// the released amount.
	PluginDecreasePosition(ctx context.Context, account, collateralToken, indexToken common.Address, collateralDelta, sizeDelta *big.Int, isLong bool, receiver common.Address) (*big.Int, error)
}
