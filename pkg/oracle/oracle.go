// Package oracle defines the price-oracle boundary and the trigger-condition
// validator used by the order engine.
package oracle

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidPriceForExecution is returned when a trigger condition is checked
// in raising mode and the current quote does not satisfy it.
var ErrInvalidPriceForExecution = errors.New("oracle: invalid price for execution")

// PriceOracle quotes both sides of the spread for an index token. Prices are
// 1e30 fixed point and GetMaxPrice >= GetMinPrice must hold for any single
// observation of the same token.
type PriceOracle interface {
	GetMaxPrice(ctx context.Context, indexToken common.Address) (*big.Int, error)
	GetMinPrice(ctx context.Context, indexToken common.Address) (*big.Int, error)
}
