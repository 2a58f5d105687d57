// Package sim provides an in-memory price oracle for tests and paper trading.
package sim

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Oracle keeps a settable bid/ask pair per index token.
type Oracle struct {
	mu     sync.RWMutex
	quotes map[common.Address]quote
}

type quote struct {
	min *big.Int
	max *big.Int
}

// New constructs an empty simulated oracle.
func New() *Oracle {
	return &Oracle{quotes: make(map[common.Address]quote)}
}

// SetPrice pins both sides of the spread to the same value.
func (o *Oracle) SetPrice(token common.Address, price *big.Int) error {
	return o.SetSpread(token, price, price)
}

// SetSpread sets the min/max quotes for a token. max must be >= min.
func (o *Oracle) SetSpread(token common.Address, min, max *big.Int) error {
	if min == nil || max == nil {
		return fmt.Errorf("sim: nil quote for %s", token.Hex())
	}
	if min.Sign() <= 0 || max.Cmp(min) < 0 {
		return fmt.Errorf("sim: invalid spread [%s, %s] for %s", min, max, token.Hex())
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.quotes[token] = quote{min: new(big.Int).Set(min), max: new(big.Int).Set(max)}
	return nil
}

// GetMaxPrice returns the maximum quoted price for the token.
func (o *Oracle) GetMaxPrice(ctx context.Context, token common.Address) (*big.Int, error) {
	return o.read(token, true)
}

// GetMinPrice returns the minimum quoted price for the token.
func (o *Oracle) GetMinPrice(ctx context.Context, token common.Address) (*big.Int, error) {
	return o.read(token, false)
}

func (o *Oracle) read(token common.Address, max bool) (*big.Int, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	q, ok := o.quotes[token]
	if !ok {
		return nil, fmt.Errorf("sim: no quote for %s", token.Hex())
	}
	if max {
		return new(big.Int).Set(q.max), nil
	}
	return new(big.Int).Set(q.min), nil
}
