package wallet

import (
	"context"
	"errors"
)

// ErrInsufficientFunds is returned by Debit when the balance cannot cover
// the amount. The balance is left untouched.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Wallet is the economy collaborator contract. Each call is atomic on the
// wallet's side; there is no transactional coupling with the ledger.
type Wallet interface {
	// EnsureKind registers a wallet kind so balances of that kind can be
	// stored. Idempotent.
	EnsureKind(ctx context.Context, kind string) error

	// GetBalance returns the player's balance, 0 for unknown players.
	GetBalance(ctx context.Context, steamID uint64, kind string) (int64, error)

	// Debit atomically checks and subtracts amount, returning the new
	// balance. Fails with ErrInsufficientFunds without side effects when
	// the balance is too low.
	Debit(ctx context.Context, steamID uint64, kind string, amount int64) (int64, error)

	// Credit adds amount and returns the new balance.
	Credit(ctx context.Context, steamID uint64, kind string, amount int64) (int64, error)
}
