package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"playermodels-api/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteLedger implements Ledger using SQLite. Default backend for
// development and single-server deployments.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger opens (or creates) the ledger database at dbPath.
func NewSQLiteLedger(dbPath string) (*SQLiteLedger, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createSQLiteTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteLedger] Initialized with database: %s", dbPath)
	return &SQLiteLedger{db: db}, nil
}

func createSQLiteTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS player_owned_models (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		steam_id INTEGER NOT NULL,
		model_id TEXT NOT NULL,
		price_paid INTEGER NOT NULL DEFAULT 0,
		source TEXT NOT NULL DEFAULT 'purchased',
		gifted_by INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		purchased_at DATETIME NOT NULL,
		UNIQUE(steam_id, model_id)
	);
	CREATE INDEX IF NOT EXISTS idx_owned_steam ON player_owned_models(steam_id);

	CREATE TABLE IF NOT EXISTS player_current_models (
		steam_id INTEGER NOT NULL,
		team_slot TEXT NOT NULL,
		model_id TEXT NOT NULL,
		model_path TEXT NOT NULL,
		arms_path TEXT NOT NULL DEFAULT '',
		variants TEXT NOT NULL DEFAULT '',
		player_name TEXT NOT NULL DEFAULT '',
		usage_count INTEGER NOT NULL DEFAULT 0,
		equipped_at DATETIME NOT NULL,
		PRIMARY KEY (steam_id, team_slot)
	);

	CREATE TABLE IF NOT EXISTS model_transactions (
		id TEXT PRIMARY KEY,
		steam_id INTEGER NOT NULL,
		model_id TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		amount INTEGER NOT NULL,
		balance_before INTEGER NOT NULL,
		balance_after INTEGER NOT NULL,
		operator_id INTEGER NOT NULL DEFAULT 0,
		reason TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tx_steam ON model_transactions(steam_id);

	CREATE TABLE IF NOT EXISTS model_usage_stats (
		steam_id INTEGER NOT NULL,
		model_id TEXT NOT NULL,
		use_count INTEGER NOT NULL DEFAULT 0,
		last_used_at DATETIME NOT NULL,
		PRIMARY KEY (steam_id, model_id)
	);

	CREATE TABLE IF NOT EXISTS starting_balance_grants (
		steam_id INTEGER PRIMARY KEY,
		granted_at DATETIME NOT NULL
	);
	`

	_, err := db.Exec(query)
	return err
}

// Owns reports whether the player owns the model.
func (r *SQLiteLedger) Owns(ctx context.Context, steamID uint64, modelID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM player_owned_models WHERE steam_id = ? AND model_id = ?`,
		int64(steamID), modelID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check ownership: %w", err)
	}
	return count > 0, nil
}

// GrantOwnership inserts an ownership row; duplicates are ignored.
func (r *SQLiteLedger) GrantOwnership(ctx context.Context, rec *model.OwnershipRecord) error {
	purchasedAt := rec.PurchasedAt
	if purchasedAt.IsZero() {
		purchasedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO player_owned_models
			(steam_id, model_id, price_paid, source, gifted_by, notes, purchased_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		int64(rec.SteamID), rec.ModelID, rec.PricePaid, string(rec.Source),
		int64(rec.GiftedBy), rec.Notes, purchasedAt)
	if err != nil {
		return fmt.Errorf("failed to grant ownership: %w", err)
	}
	return nil
}

// OwnedModelIDs returns every model id the player owns.
func (r *SQLiteLedger) OwnedModelIDs(ctx context.Context, steamID uint64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT model_id FROM player_owned_models WHERE steam_id = ?`, int64(steamID))
	if err != nil {
		return nil, fmt.Errorf("failed to query owned models: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan owned model: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// OwnedModelIDsBatch resolves ownership for many players in one query.
func (r *SQLiteLedger) OwnedModelIDsBatch(ctx context.Context, steamIDs []uint64) (map[uint64][]string, error) {
	result := make(map[uint64][]string, len(steamIDs))
	if len(steamIDs) == 0 {
		return result, nil
	}

	query := fmt.Sprintf(
		`SELECT steam_id, model_id FROM player_owned_models WHERE steam_id IN (%s)`,
		placeholders(len(steamIDs)))

	rows, err := r.db.QueryContext(ctx, query, steamIDArgs(steamIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to batch query owned models: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var steamID int64
		var modelID string
		if err := rows.Scan(&steamID, &modelID); err != nil {
			return nil, fmt.Errorf("failed to scan owned model: %w", err)
		}
		result[uint64(steamID)] = append(result[uint64(steamID)], modelID)
	}
	return result, rows.Err()
}

// Equipped returns the slot row, or nil when absent.
func (r *SQLiteLedger) Equipped(ctx context.Context, steamID uint64, slot model.TeamSlot) (*model.EquippedSlot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT steam_id, team_slot, model_id, model_path, arms_path, variants,
		       player_name, usage_count, equipped_at
		FROM player_current_models WHERE steam_id = ? AND team_slot = ?`,
		int64(steamID), string(slot))

	eq, err := scanEquipped(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query equipped slot: %w", err)
	}
	return eq, nil
}

// EquippedBatch fetches all slot rows for many players in a single query.
func (r *SQLiteLedger) EquippedBatch(ctx context.Context, steamIDs []uint64) (map[uint64][]model.EquippedSlot, error) {
	result := make(map[uint64][]model.EquippedSlot, len(steamIDs))
	if len(steamIDs) == 0 {
		return result, nil
	}

	query := fmt.Sprintf(`
		SELECT steam_id, team_slot, model_id, model_path, arms_path, variants,
		       player_name, usage_count, equipped_at
		FROM player_current_models WHERE steam_id IN (%s)`,
		placeholders(len(steamIDs)))

	rows, err := r.db.QueryContext(ctx, query, steamIDArgs(steamIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to batch query equipped slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		eq, err := scanEquipped(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan equipped slot: %w", err)
		}
		result[eq.SteamID] = append(result[eq.SteamID], *eq)
	}
	return result, rows.Err()
}

// SetEquipped upserts the slot row and bumps the usage counters. Variant
// selections survive only when the same model is re-equipped.
func (r *SQLiteLedger) SetEquipped(ctx context.Context, slot *model.EquippedSlot) error {
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO player_current_models
			(steam_id, team_slot, model_id, model_path, arms_path, variants,
			 player_name, usage_count, equipped_at)
		VALUES (?, ?, ?, ?, ?, '', ?, 1, ?)
		ON CONFLICT(steam_id, team_slot) DO UPDATE SET
			variants = CASE WHEN player_current_models.model_id = excluded.model_id
				THEN player_current_models.variants ELSE '' END,
			model_id = excluded.model_id,
			model_path = excluded.model_path,
			arms_path = excluded.arms_path,
			player_name = excluded.player_name,
			usage_count = player_current_models.usage_count + 1,
			equipped_at = excluded.equipped_at`,
		int64(slot.SteamID), string(slot.TeamSlot), slot.ModelID, slot.ModelPath,
		slot.ArmsPath, slot.PlayerName, now)
	if err != nil {
		return fmt.Errorf("failed to upsert equipped slot: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO model_usage_stats (steam_id, model_id, use_count, last_used_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(steam_id, model_id) DO UPDATE SET
			use_count = model_usage_stats.use_count + 1,
			last_used_at = excluded.last_used_at`,
		int64(slot.SteamID), slot.ModelID, now)
	if err != nil {
		return fmt.Errorf("failed to upsert usage stat: %w", err)
	}
	return nil
}

// DeleteEquipped removes the slot row.
func (r *SQLiteLedger) DeleteEquipped(ctx context.Context, steamID uint64, slot model.TeamSlot) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM player_current_models WHERE steam_id = ? AND team_slot = ?`,
		int64(steamID), string(slot))
	if err != nil {
		return fmt.Errorf("failed to delete equipped slot: %w", err)
	}
	return nil
}

// VariantSelections returns the stored variant blob, empty when none.
func (r *SQLiteLedger) VariantSelections(ctx context.Context, steamID uint64, slot model.TeamSlot) (string, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT variants FROM player_current_models WHERE steam_id = ? AND team_slot = ?`,
		int64(steamID), string(slot)).Scan(&data)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query variant selections: %w", err)
	}
	return data, nil
}

// SetVariantSelections stores the variant blob on the slot row.
func (r *SQLiteLedger) SetVariantSelections(ctx context.Context, steamID uint64, slot model.TeamSlot, data string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE player_current_models SET variants = ? WHERE steam_id = ? AND team_slot = ?`,
		data, int64(steamID), string(slot))
	if err != nil {
		return fmt.Errorf("failed to update variant selections: %w", err)
	}
	return nil
}

// LogTransaction appends an audit record.
func (r *SQLiteLedger) LogTransaction(ctx context.Context, entry *model.TransactionLogEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO model_transactions
			(id, steam_id, model_id, action, amount, balance_before, balance_after,
			 operator_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, int64(entry.SteamID), entry.ModelID, string(entry.Action),
		entry.Amount, entry.BalanceBefore, entry.BalanceAfter,
		int64(entry.OperatorID), entry.Reason, createdAt)
	if err != nil {
		return fmt.Errorf("failed to log transaction: %w", err)
	}
	return nil
}

// HasStartingBalanceGrant reports whether the one-time grant was recorded.
func (r *SQLiteLedger) HasStartingBalanceGrant(ctx context.Context, steamID uint64) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM starting_balance_grants WHERE steam_id = ?`,
		int64(steamID)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check starting balance grant: %w", err)
	}
	return count > 0, nil
}

// MarkStartingBalanceGrant records the one-time grant.
func (r *SQLiteLedger) MarkStartingBalanceGrant(ctx context.Context, steamID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO starting_balance_grants (steam_id, granted_at) VALUES (?, ?)`,
		int64(steamID), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark starting balance grant: %w", err)
	}
	return nil
}

// DeletePlayerData wipes every row belonging to the player.
func (r *SQLiteLedger) DeletePlayerData(ctx context.Context, steamID uint64) error {
	for _, table := range []string{
		"player_owned_models", "player_current_models",
		"model_usage_stats", "starting_balance_grants",
	} {
		query := fmt.Sprintf("DELETE FROM %s WHERE steam_id = ?", table)
		if _, err := r.db.ExecContext(ctx, query, int64(steamID)); err != nil {
			return fmt.Errorf("failed to wipe %s: %w", table, err)
		}
	}
	return nil
}

// Stats returns row counts for the admin endpoint.
func (r *SQLiteLedger) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{"backend": "sqlite"}

	counts := map[string]string{
		"owned_models": "player_owned_models",
		"equipped":     "player_current_models",
		"transactions": "model_transactions",
	}
	for key, table := range counts {
		var count int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
		if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[key] = count
	}
	return stats, nil
}

// Close closes the database.
func (r *SQLiteLedger) Close() error {
	return r.db.Close()
}

// scanner abstracts *sql.Row and *sql.Rows for scanEquipped.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEquipped(s scanner) (*model.EquippedSlot, error) {
	var eq model.EquippedSlot
	var steamID int64
	var teamSlot string
	if err := s.Scan(&steamID, &teamSlot, &eq.ModelID, &eq.ModelPath, &eq.ArmsPath,
		&eq.Variants, &eq.PlayerName, &eq.UsageCount, &eq.EquippedAt); err != nil {
		return nil, err
	}
	eq.SteamID = uint64(steamID)
	eq.TeamSlot = model.TeamSlot(teamSlot)
	return &eq, nil
}

// placeholders returns "?, ?, ..." for n bind parameters.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func steamIDArgs(steamIDs []uint64) []interface{} {
	args := make([]interface{}, len(steamIDs))
	for i, id := range steamIDs {
		args[i] = int64(id)
	}
	return args
}

// Ensure SQLiteLedger implements Ledger
var _ Ledger = (*SQLiteLedger)(nil)
