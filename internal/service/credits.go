package service

import (
	"context"
	"log"
	"sync"
	"time"

	"playermodels-api/internal/model"
	"playermodels-api/internal/repository"
	"playermodels-api/internal/wallet"
	"playermodels-api/pkg/apierror"
	"playermodels-api/pkg/uid"
)

// CreditsConfig controls the wallet bootstrap and the periodic income
// payout.
type CreditsConfig struct {
	WalletKind      string
	StartingBalance int64
	OncePerPlayer   bool

	TimedIncomeEnabled bool
	IncomeInterval     time.Duration
	IncomeAmount       int64
	VipMultiplier      float64
	MinOnlineTime      time.Duration
}

// CreditsService grants the starting balance on first join and pays
// timed income to connected players on a fixed interval.
type CreditsService struct {
	wallet wallet.Wallet
	ledger repository.Ledger
	cfg    CreditsConfig

	mu       sync.Mutex
	presence map[uint64]presenceInfo

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type presenceInfo struct {
	joinedAt time.Time
	vip      bool
}

// NewCreditsService wires the service. wallet may be nil, in which case
// every operation is a no-op and joins succeed without a grant.
func NewCreditsService(w wallet.Wallet, ledger repository.Ledger, cfg CreditsConfig) *CreditsService {
	return &CreditsService{
		wallet:   w,
		ledger:   ledger,
		cfg:      cfg,
		presence: make(map[uint64]presenceInfo),
		stopCh:   make(chan struct{}),
	}
}

// HandleJoin registers the player for timed income and grants the
// starting balance if they have not received it before. The grant marker
// lives in the ledger so it survives wallet resets.
func (s *CreditsService) HandleJoin(ctx context.Context, player *model.PlayerContext) (int64, error) {
	s.mu.Lock()
	s.presence[player.SteamID] = presenceInfo{joinedAt: time.Now(), vip: player.Vip}
	s.mu.Unlock()

	if s.wallet == nil {
		return 0, nil
	}

	if err := s.wallet.EnsureKind(ctx, s.cfg.WalletKind); err != nil {
		return 0, apierror.EconomyUnavailable()
	}

	balance, err := s.wallet.GetBalance(ctx, player.SteamID, s.cfg.WalletKind)
	if err != nil {
		return 0, apierror.EconomyUnavailable()
	}

	if s.cfg.StartingBalance <= 0 {
		return balance, nil
	}

	if s.cfg.OncePerPlayer {
		granted, err := s.ledger.HasStartingBalanceGrant(ctx, player.SteamID)
		if err != nil {
			return balance, apierror.PersistenceFailure("starting balance check", err)
		}
		if granted {
			return balance, nil
		}
	} else if balance > 0 {
		// Without the marker the best signal is a non-empty wallet.
		return balance, nil
	}

	after, err := s.wallet.Credit(ctx, player.SteamID, s.cfg.WalletKind, s.cfg.StartingBalance)
	if err != nil {
		return balance, apierror.EconomyUnavailable()
	}

	if s.cfg.OncePerPlayer {
		if err := s.ledger.MarkStartingBalanceGrant(ctx, player.SteamID); err != nil {
			// The credit already landed; a missing marker means one
			// possible double grant later, never a lost balance.
			log.Printf("[Credits] starting balance marker for %d failed: %v", player.SteamID, err)
		}
	}

	entry := &model.TransactionLogEntry{
		ID:            uid.New(),
		SteamID:       player.SteamID,
		Action:        model.ActionGrantWallet,
		Amount:        s.cfg.StartingBalance,
		BalanceBefore: balance,
		BalanceAfter:  after,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.ledger.LogTransaction(ctx, entry); err != nil {
		log.Printf("[Credits] transaction log write failed (ignored): %v", err)
	}

	log.Printf("[Credits] granted starting balance %d to player %d", s.cfg.StartingBalance, player.SteamID)
	return after, nil
}

// HandleLeave drops the player from the income roster.
func (s *CreditsService) HandleLeave(steamID uint64) {
	s.mu.Lock()
	delete(s.presence, steamID)
	s.mu.Unlock()
}

// Balance reads the player's wallet balance.
func (s *CreditsService) Balance(ctx context.Context, steamID uint64) (int64, error) {
	if s.wallet == nil {
		return 0, apierror.EconomyUnavailable()
	}
	balance, err := s.wallet.GetBalance(ctx, steamID, s.cfg.WalletKind)
	if err != nil {
		return 0, apierror.EconomyUnavailable()
	}
	return balance, nil
}

// Online reports how many players are currently on the income roster.
func (s *CreditsService) Online() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.presence)
}

// Start launches the timed income loop. No-op when timed income is
// disabled or no wallet is connected.
func (s *CreditsService) Start() {
	if !s.cfg.TimedIncomeEnabled || s.wallet == nil || s.cfg.IncomeAmount <= 0 {
		return
	}

	interval := s.cfg.IncomeInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Printf("[Credits] timed income started (every %s, %d per payout)", interval, s.cfg.IncomeAmount)
		for {
			select {
			case <-ticker.C:
				s.payIncome(context.Background())
			case <-s.stopCh:
				log.Println("[Credits] timed income stopped")
				return
			}
		}
	}()
}

// Stop terminates the income loop and waits for the in-flight payout.
func (s *CreditsService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

// RunNow triggers an immediate payout cycle, mainly for tests and admin
// tooling.
func (s *CreditsService) RunNow(ctx context.Context) {
	s.payIncome(ctx)
}

func (s *CreditsService) payIncome(ctx context.Context) {
	now := time.Now()

	s.mu.Lock()
	eligible := make(map[uint64]bool, len(s.presence))
	for steamID, info := range s.presence {
		if now.Sub(info.joinedAt) >= s.cfg.MinOnlineTime {
			eligible[steamID] = info.vip
		}
	}
	s.mu.Unlock()

	for steamID, vip := range eligible {
		amount := s.cfg.IncomeAmount
		if vip && s.cfg.VipMultiplier > 1 {
			amount = int64(float64(amount) * s.cfg.VipMultiplier)
		}
		if _, err := s.wallet.Credit(ctx, steamID, s.cfg.WalletKind, amount); err != nil {
			log.Printf("[Credits] income payout to %d failed: %v", steamID, err)
		}
	}

	if len(eligible) > 0 {
		log.Printf("[Credits] paid timed income to %d players", len(eligible))
	}
}
