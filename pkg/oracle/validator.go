package oracle

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ValidateTrigger checks whether the trigger condition currently holds.
//
// maximize selects which side of the spread to read: true reads the maximum
// quote, false the minimum. The condition is a strict inequality in both
// directions; exact equality never triggers.
//
// When raise is set and the condition does not hold, the call fails with
// ErrInvalidPriceForExecution. Otherwise the computed (price, valid) pair is
// returned for inspection.
func ValidateTrigger(ctx context.Context, po PriceOracle, triggerAboveThreshold bool, triggerPrice *big.Int, indexToken common.Address, maximize, raise bool) (*big.Int, bool, error) {
	var (
		current *big.Int
		err     error
	)
	if maximize {
		current, err = po.GetMaxPrice(ctx, indexToken)
	} else {
		current, err = po.GetMinPrice(ctx, indexToken)
	}
	if err != nil {
		return nil, false, fmt.Errorf("oracle: read price for %s: %w", indexToken.Hex(), err)
	}

	var valid bool
	if triggerAboveThreshold {
		valid = current.Cmp(triggerPrice) > 0
	} else {
		valid = current.Cmp(triggerPrice) < 0
	}
	if raise && !valid {
		return current, false, ErrInvalidPriceForExecution
	}
	return current, valid, nil
}
