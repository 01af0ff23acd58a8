package service

import (
	"context"
	"testing"
	"time"

	"playermodels-api/internal/model"
	"playermodels-api/internal/wallet"
)

func newCreditsFixture(mutate func(*CreditsConfig)) (*CreditsService, *wallet.MemoryWallet, *memLedger) {
	w := wallet.NewMemoryWallet()
	ledger := newMemLedger()
	cfg := CreditsConfig{
		WalletKind:      "credits",
		StartingBalance: 500,
		OncePerPlayer:   true,
		IncomeAmount:    10,
		VipMultiplier:   2,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewCreditsService(w, ledger, cfg), w, ledger
}

func TestHandleJoinGrantsStartingBalanceOnce(t *testing.T) {
	s, w, _ := newCreditsFixture(nil)
	p := &model.PlayerContext{SteamID: 1, Name: "new player"}

	balance, err := s.HandleJoin(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if balance != 500 {
		t.Fatalf("first join balance = %d, want 500", balance)
	}

	// A later join must not grant again, even after the wallet is spent.
	if _, err := w.Debit(context.Background(), 1, "credits", 500); err != nil {
		t.Fatal(err)
	}
	balance, err = s.HandleJoin(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if balance != 0 {
		t.Fatalf("rejoin balance = %d, want 0 (no second grant)", balance)
	}
}

func TestHandleJoinLogsGrant(t *testing.T) {
	s, _, ledger := newCreditsFixture(nil)

	if _, err := s.HandleJoin(context.Background(), &model.PlayerContext{SteamID: 1}); err != nil {
		t.Fatal(err)
	}
	if ledger.transactionCount() != 1 {
		t.Fatalf("transaction log has %d entries, want 1", ledger.transactionCount())
	}
}

func TestHandleJoinZeroStartingBalance(t *testing.T) {
	s, _, ledger := newCreditsFixture(func(c *CreditsConfig) { c.StartingBalance = 0 })

	balance, err := s.HandleJoin(context.Background(), &model.PlayerContext{SteamID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if balance != 0 || ledger.transactionCount() != 0 {
		t.Fatalf("balance = %d, log entries = %d", balance, ledger.transactionCount())
	}
}

func TestHandleJoinWithoutWallet(t *testing.T) {
	s := NewCreditsService(nil, newMemLedger(), CreditsConfig{StartingBalance: 500})

	balance, err := s.HandleJoin(context.Background(), &model.PlayerContext{SteamID: 1})
	if err != nil {
		t.Fatalf("join without a wallet must succeed: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance = %d", balance)
	}
}

func TestTimedIncomePayout(t *testing.T) {
	s, w, _ := newCreditsFixture(func(c *CreditsConfig) {
		c.StartingBalance = 0
		c.TimedIncomeEnabled = true
		c.MinOnlineTime = 0
	})

	if _, err := s.HandleJoin(context.Background(), &model.PlayerContext{SteamID: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.HandleJoin(context.Background(), &model.PlayerContext{SteamID: 2, Vip: true}); err != nil {
		t.Fatal(err)
	}

	s.RunNow(context.Background())

	if balance, _ := w.GetBalance(context.Background(), 1, "credits"); balance != 10 {
		t.Fatalf("regular income = %d, want 10", balance)
	}
	if balance, _ := w.GetBalance(context.Background(), 2, "credits"); balance != 20 {
		t.Fatalf("vip income = %d, want 20", balance)
	}
}

func TestTimedIncomeMinOnlineTime(t *testing.T) {
	s, w, _ := newCreditsFixture(func(c *CreditsConfig) {
		c.StartingBalance = 0
		c.TimedIncomeEnabled = true
		c.MinOnlineTime = time.Hour
	})

	if _, err := s.HandleJoin(context.Background(), &model.PlayerContext{SteamID: 1}); err != nil {
		t.Fatal(err)
	}
	s.RunNow(context.Background())

	if balance, _ := w.GetBalance(context.Background(), 1, "credits"); balance != 0 {
		t.Fatalf("player paid before reaching minimum online time: %d", balance)
	}
}

func TestHandleLeaveStopsIncome(t *testing.T) {
	s, w, _ := newCreditsFixture(func(c *CreditsConfig) {
		c.StartingBalance = 0
		c.TimedIncomeEnabled = true
		c.MinOnlineTime = 0
	})

	if _, err := s.HandleJoin(context.Background(), &model.PlayerContext{SteamID: 1}); err != nil {
		t.Fatal(err)
	}
	s.HandleLeave(1)
	s.RunNow(context.Background())

	if balance, _ := w.GetBalance(context.Background(), 1, "credits"); balance != 0 {
		t.Fatalf("departed player still paid: %d", balance)
	}
	if s.Online() != 0 {
		t.Fatalf("online = %d, want 0", s.Online())
	}
}

func TestStartStopIdempotent(t *testing.T) {
	s, _, _ := newCreditsFixture(func(c *CreditsConfig) {
		c.TimedIncomeEnabled = true
		c.IncomeInterval = time.Hour
	})

	s.Start()
	s.Stop()
	s.Stop()
}
