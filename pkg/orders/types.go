package orders

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PriceDecimals is the fixed-point scale shared with the oracle: all trigger
// and quote prices carry 30 decimals.
const PriceDecimals = 30

// TrailingStopOrder is a conditional instruction to close part or all of a
// leveraged position once the oracle price crosses TriggerPrice.
type TrailingStopOrder struct {
	Account         common.Address
	CollateralToken common.Address
	IndexToken      common.Address

	// CollateralDelta and SizeDelta are forwarded verbatim to the position
	// ledger on execution. SizeDelta is 1e30 price-scaled notional.
	CollateralDelta *big.Int
	SizeDelta       *big.Int

	IsLong bool

	// TriggerPrice is 1e30 fixed point. TriggerAboveThreshold selects the
	// comparison direction: true arms on price > trigger, false on price < trigger.
	TriggerPrice          *big.Int
	TriggerAboveThreshold bool

	// ExecutionFee is the native-currency amount escrowed at creation and paid
	// out exactly once, on cancel (to the owner) or execute (to the fee recipient).
	ExecutionFee *big.Int

	// TrailingBPS is the informational trailing distance in basis points.
	// The engine stores and surfaces it; ratcheting is an off-process concern.
	TrailingBPS uint64
}

// Live reports whether the order occupies its slot. A zero Account is the
// sentinel for an absent or already-terminated order.
func (o *TrailingStopOrder) Live() bool {
	return o != nil && o.Account != (common.Address{})
}

// Clone returns a deep copy so stored orders never alias caller-held big.Ints.
func (o TrailingStopOrder) Clone() TrailingStopOrder {
	c := o
	c.CollateralDelta = cloneBig(o.CollateralDelta)
	c.SizeDelta = cloneBig(o.SizeDelta)
	c.TriggerPrice = cloneBig(o.TriggerPrice)
	c.ExecutionFee = cloneBig(o.ExecutionFee)
	return c
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
