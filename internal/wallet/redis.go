package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Balances live in Redis as plain integer keys, one per (kind, player).
// The debit path is a Lua script so check-and-subtract is a single atomic
// step on the Redis side; two concurrent debits can never both pass the
// balance check.
var debitScript = redis.NewScript(`
	local balance = tonumber(redis.call("GET", KEYS[1]) or "0")
	local amount = tonumber(ARGV[1])
	if balance < amount then
		return -1
	end
	return redis.call("DECRBY", KEYS[1], amount)
`)

// RedisWallet implements Wallet on a Redis instance.
type RedisWallet struct {
	client    *redis.Client
	keyPrefix string
}

// RedisWalletConfig holds connection settings for the wallet store.
type RedisWalletConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisWallet connects to Redis and verifies the connection.
func NewRedisWallet(cfg RedisWalletConfig) (*RedisWallet, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 5,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis wallet: %w", err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "playermodels:wallet"
	}

	return &RedisWallet{client: client, keyPrefix: keyPrefix}, nil
}

func (w *RedisWallet) balanceKey(steamID uint64, kind string) string {
	return fmt.Sprintf("%s:%s:%d", w.keyPrefix, kind, steamID)
}

func (w *RedisWallet) kindsKey() string {
	return w.keyPrefix + ":kinds"
}

// EnsureKind registers the wallet kind in the kinds set.
func (w *RedisWallet) EnsureKind(ctx context.Context, kind string) error {
	if err := w.client.SAdd(ctx, w.kindsKey(), kind).Err(); err != nil {
		return fmt.Errorf("failed to ensure wallet kind %q: %w", kind, err)
	}
	return nil
}

// GetBalance returns the player's balance, 0 when no key exists.
func (w *RedisWallet) GetBalance(ctx context.Context, steamID uint64, kind string) (int64, error) {
	val, err := w.client.Get(ctx, w.balanceKey(steamID, kind)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance for %d: %w", steamID, err)
	}
	return val, nil
}

// Debit atomically checks and subtracts, returning the new balance.
func (w *RedisWallet) Debit(ctx context.Context, steamID uint64, kind string, amount int64) (int64, error) {
	result, err := debitScript.Run(ctx, w.client,
		[]string{w.balanceKey(steamID, kind)}, amount).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to debit %d from %d: %w", amount, steamID, err)
	}
	if result < 0 {
		return 0, ErrInsufficientFunds
	}
	return result, nil
}

// Credit adds amount and returns the new balance.
func (w *RedisWallet) Credit(ctx context.Context, steamID uint64, kind string, amount int64) (int64, error) {
	val, err := w.client.IncrBy(ctx, w.balanceKey(steamID, kind), amount).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to credit %d to %d: %w", amount, steamID, err)
	}
	return val, nil
}

// Close closes the Redis client.
func (w *RedisWallet) Close() error {
	return w.client.Close()
}

// Ensure RedisWallet implements Wallet
var _ Wallet = (*RedisWallet)(nil)
