package wallet

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryWalletDebitCredit(t *testing.T) {
	w := NewMemoryWallet()
	ctx := context.Background()

	if balance, err := w.GetBalance(ctx, 1, "credits"); err != nil || balance != 0 {
		t.Fatalf("fresh balance = %d, err = %v", balance, err)
	}

	if _, err := w.Credit(ctx, 1, "credits", 100); err != nil {
		t.Fatal(err)
	}
	balance, err := w.Debit(ctx, 1, "credits", 30)
	if err != nil {
		t.Fatal(err)
	}
	if balance != 70 {
		t.Fatalf("balance after debit = %d, want 70", balance)
	}
}

func TestMemoryWalletDebitInsufficient(t *testing.T) {
	w := NewMemoryWallet()
	ctx := context.Background()

	if _, err := w.Credit(ctx, 1, "credits", 50); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Debit(ctx, 1, "credits", 100); err != ErrInsufficientFunds {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if balance, _ := w.GetBalance(ctx, 1, "credits"); balance != 50 {
		t.Fatalf("failed debit changed balance to %d", balance)
	}
}

func TestMemoryWalletKindsAreIsolated(t *testing.T) {
	w := NewMemoryWallet()
	ctx := context.Background()

	if _, err := w.Credit(ctx, 1, "credits", 100); err != nil {
		t.Fatal(err)
	}
	if balance, _ := w.GetBalance(ctx, 1, "gems"); balance != 0 {
		t.Fatalf("gems balance = %d, want 0", balance)
	}
}

func TestMemoryWalletConcurrentDebits(t *testing.T) {
	w := NewMemoryWallet()
	ctx := context.Background()

	if _, err := w.Credit(ctx, 1, "credits", 100); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	succeeded := make(chan struct{}, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := w.Debit(ctx, 1, "credits", 10); err == nil {
				succeeded <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(succeeded)

	wins := 0
	for range succeeded {
		wins++
	}
	if wins != 10 {
		t.Fatalf("%d debits succeeded, want 10", wins)
	}
	if balance, _ := w.GetBalance(ctx, 1, "credits"); balance != 0 {
		t.Fatalf("final balance = %d, want 0", balance)
	}
}
