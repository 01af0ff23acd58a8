package wallet

import (
	"context"
	"strconv"
	"sync"
)

// MemoryWallet is an in-memory Wallet for development and tests.
type MemoryWallet struct {
	mu       sync.Mutex
	balances map[string]int64
	kinds    map[string]struct{}
}

// NewMemoryWallet creates an empty in-memory wallet.
func NewMemoryWallet() *MemoryWallet {
	return &MemoryWallet{
		balances: make(map[string]int64),
		kinds:    make(map[string]struct{}),
	}
}

func key(steamID uint64, kind string) string {
	return kind + ":" + strconv.FormatUint(steamID, 10)
}

// EnsureKind registers the wallet kind.
func (w *MemoryWallet) EnsureKind(ctx context.Context, kind string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.kinds[kind] = struct{}{}
	return nil
}

// GetBalance returns the player's balance.
func (w *MemoryWallet) GetBalance(ctx context.Context, steamID uint64, kind string) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[key(steamID, kind)], nil
}

// Debit atomically checks and subtracts.
func (w *MemoryWallet) Debit(ctx context.Context, steamID uint64, kind string, amount int64) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	k := key(steamID, kind)
	if w.balances[k] < amount {
		return 0, ErrInsufficientFunds
	}
	w.balances[k] -= amount
	return w.balances[k], nil
}

// Credit adds amount.
func (w *MemoryWallet) Credit(ctx context.Context, steamID uint64, kind string, amount int64) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	k := key(steamID, kind)
	w.balances[k] += amount
	return w.balances[k], nil
}

// Ensure MemoryWallet implements Wallet
var _ Wallet = (*MemoryWallet)(nil)
