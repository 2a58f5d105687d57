// Package sim provides an in-memory bank and wrapped-native asset for tests
// and paper trading.
package sim

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Bank keeps native and per-token balances in memory. It implements both
// custody.Bank and custody.WrappedNative: wrapped balances are ordinary token
// balances under the configured wrapped-native address.
type Bank struct {
	mu      sync.Mutex
	wnative common.Address
	native  map[common.Address]*big.Int
	tokens  map[common.Address]map[common.Address]*big.Int // token -> account -> balance
}

// NewBank constructs a bank whose wrapped-native asset lives at wnative.
func NewBank(wnative common.Address) *Bank {
	return &Bank{
		wnative: wnative,
		native:  make(map[common.Address]*big.Int),
		tokens:  make(map[common.Address]map[common.Address]*big.Int),
	}
}

// TokenAddress returns the wrapped-native token address.
func (b *Bank) TokenAddress() common.Address { return b.wnative }

// MintNative credits native currency to an account. Test/paper setup only.
func (b *Bank) MintNative(account common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.creditNative(account, amount)
}

// MintToken credits token balance to an account. Test/paper setup only.
func (b *Bank) MintToken(token, account common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.creditToken(token, account, amount)
}

// NativeTransfer moves native currency between accounts.
func (b *Bank) NativeTransfer(ctx context.Context, from, to common.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.debitNative(from, amount); err != nil {
		return err
	}
	b.creditNative(to, amount)
	return nil
}

// NativeBalanceOf returns an account's native balance.
func (b *Bank) NativeBalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneOrZero(b.native[account]), nil
}

// Transfer moves token balance between accounts.
func (b *Bank) Transfer(ctx context.Context, token, from, to common.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.debitToken(token, from, amount); err != nil {
		return err
	}
	b.creditToken(token, to, amount)
	return nil
}

// BalanceOf returns an account's balance in token.
func (b *Bank) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneOrZero(b.tokens[token][account]), nil
}

// Deposit converts native balance into wrapped balance for the same account.
func (b *Bank) Deposit(ctx context.Context, from common.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.debitNative(from, amount); err != nil {
		return err
	}
	b.creditToken(b.wnative, from, amount)
	return nil
}

// Withdraw burns wrapped balance and pushes native currency to recipient.
func (b *Bank) Withdraw(ctx context.Context, from common.Address, amount *big.Int, recipient common.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.debitToken(b.wnative, from, amount); err != nil {
		return err
	}
	b.creditNative(recipient, amount)
	return nil
}

func (b *Bank) debitNative(account common.Address, amount *big.Int) error {
	bal := b.native[account]
	if bal == nil || bal.Cmp(amount) < 0 {
		return fmt.Errorf("sim: insufficient native balance for %s: have %s, need %s", account.Hex(), cloneOrZero(bal), amount)
	}
	bal.Sub(bal, amount)
	return nil
}

func (b *Bank) creditNative(account common.Address, amount *big.Int) {
	if b.native[account] == nil {
		b.native[account] = new(big.Int)
	}
	b.native[account].Add(b.native[account], amount)
}

func (b *Bank) debitToken(token, account common.Address, amount *big.Int) error {
	bal := b.tokens[token][account]
	if bal == nil || bal.Cmp(amount) < 0 {
		return fmt.Errorf("sim: insufficient %s balance for %s: have %s, need %s", token.Hex(), account.Hex(), cloneOrZero(bal), amount)
	}
	bal.Sub(bal, amount)
	return nil
}

func (b *Bank) creditToken(token, account common.Address, amount *big.Int) {
	m := b.tokens[token]
	if m == nil {
		m = make(map[common.Address]*big.Int)
		b.tokens[token] = m
	}
	if m[account] == nil {
		m[account] = new(big.Int)
	}
	m[account].Add(m[account], amount)
}

func cloneOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
