// Package custody routes native currency and fungible tokens for the order
// engine. Every escrowed execution fee and every native payout flows through a
// Custodian so the engine only ever holds one fungible internal balance, the
// wrapped-native token, no matter how the value arrived.
package custody

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidSender is returned when native currency is pushed to the custodian
// by anyone other than the wrapped-native asset's own withdrawal callback.
var ErrInvalidSender = errors.New("custody: invalid native-currency sender")

// Bank moves fungible token and native-currency balances between accounts.
// The sim implementation backs tests and paper trading; a production binding
// would wrap the chain's token contracts.
type Bank interface {
	Transfer(ctx context.Context, token, from, to common.Address, amount *big.Int) error
	BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error)
	NativeTransfer(ctx context.Context, from, to common.Address, amount *big.Int) error
	NativeBalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
}

// WrappedNative is the wrapped form of the chain's native currency.
type WrappedNative interface {
	// TokenAddress identifies the wrapped asset as a transferable token.
	TokenAddress() common.Address
	// Deposit converts `amount` of from's native balance into wrapped balance.
	Deposit(ctx context.Context, from common.Address, amount *big.Int) error
	// Withdraw burns `amount` of from's wrapped balance and pushes native
	// currency to recipient.
	Withdraw(ctx context.Context, from common.Address, amount *big.Int, recipient common.Address) error
}

// Custodian performs scoped wrap/unwrap pairs on behalf of one settlement
// identity (the engine's own address).
type Custodian struct {
	self    common.Address
	wnative WrappedNative
	bank    Bank
}

// New constructs a custodian bound to the given settlement address.
func New(self common.Address, wnative WrappedNative, bank Bank) (*Custodian, error) {
	if self == (common.Address{}) {
		return nil, errors.New("custody: settlement address is required")
	}
	if wnative == nil || bank == nil {
		return nil, errors.New("custody: wrapped-native asset and bank are required")
	}
	return &Custodian{self: self, wnative: wnative, bank: bank}, nil
}

// Self returns the custodian's settlement address.
func (c *Custodian) Self() common.Address { return c.self }

// WrappedToken returns the wrapped-native token address.
func (c *Custodian) WrappedToken() common.Address { return c.wnative.TokenAddress() }

// IsWrappedNative reports whether token is the wrapped-native asset.
func (c *Custodian) IsWrappedNative(token common.Address) bool {
	return token == c.wnative.TokenAddress()
}

// WrapIn deposits `amount` of the custodian's native balance into the wrapped
// asset, crediting its own wrapped balance. Zero amounts are a no-op.
func (c *Custodian) WrapIn(ctx context.Context, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if err := c.wnative.Deposit(ctx, c.self, amount); err != nil {
		return fmt.Errorf("custody: wrap in %s: %w", amount, err)
	}
	return nil
}

// WrapOut withdraws `amount` from the custodian's wrapped balance back to
// native currency and pushes it to recipient.
func (c *Custodian) WrapOut(ctx context.Context, amount *big.Int, recipient common.Address) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if err := c.wnative.Withdraw(ctx, c.self, amount, recipient); err != nil {
		return fmt.Errorf("custody: wrap out %s to %s: %w", amount, recipient.Hex(), err)
	}
	return nil
}

// SendToken transfers `amount` of token from the custodian to recipient.
func (c *Custodian) SendToken(ctx context.Context, token, recipient common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if err := c.bank.Transfer(ctx, token, c.self, recipient, amount); err != nil {
		return fmt.Errorf("custody: send %s of %s to %s: %w", amount, token.Hex(), recipient.Hex(), err)
	}
	return nil
}

// ReceiveNative accepts inbound native currency. Only the wrapped asset's
// withdrawal callback may push native value here; anything else indicates a
// stray transfer that would strand funds outside the wrapped balance.
func (c *Custodian) ReceiveNative(sender common.Address, amount *big.Int) error {
	if sender != c.wnative.TokenAddress() {
		return fmt.Errorf("%w: %s", ErrInvalidSender, sender.Hex())
	}
	_ = amount
	return nil
}
