package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"playermodels-api/internal/model"
)

// MySQLLedger implements Ledger using MySQL. This is the production
// backend: game-server economy plugins conventionally share one MySQL
// instance, and the schema mirrors what those plugins expect.
type MySQLLedger struct {
	db *sql.DB
}

// NewMySQLLedger wraps an open MySQL connection. When autoCreate is set the
// schema is created on first run.
func NewMySQLLedger(db *sql.DB, autoCreate bool) (*MySQLLedger, error) {
	if autoCreate {
		if err := createMySQLTables(db); err != nil {
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}
	log.Printf("[MySQLLedger] Initialized (auto_create=%v)", autoCreate)
	return &MySQLLedger{db: db}, nil
}

func createMySQLTables(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS player_owned_models (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			steam_id BIGINT NOT NULL,
			model_id VARCHAR(128) NOT NULL,
			price_paid BIGINT NOT NULL DEFAULT 0,
			source VARCHAR(16) NOT NULL DEFAULT 'purchased',
			gifted_by BIGINT NOT NULL DEFAULT 0,
			notes VARCHAR(255) NOT NULL DEFAULT '',
			purchased_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY unique_player_model (steam_id, model_id),
			INDEX idx_steam_id (steam_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS player_current_models (
			steam_id BIGINT NOT NULL,
			team_slot VARCHAR(8) NOT NULL,
			model_id VARCHAR(128) NOT NULL,
			model_path VARCHAR(255) NOT NULL,
			arms_path VARCHAR(255) NOT NULL DEFAULT '',
			variants TEXT,
			player_name VARCHAR(64) NOT NULL DEFAULT '',
			usage_count BIGINT NOT NULL DEFAULT 0,
			equipped_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (steam_id, team_slot)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS model_transactions (
			id VARCHAR(36) PRIMARY KEY,
			steam_id BIGINT NOT NULL,
			model_id VARCHAR(128) NOT NULL DEFAULT '',
			action VARCHAR(32) NOT NULL,
			amount BIGINT NOT NULL,
			balance_before BIGINT NOT NULL,
			balance_after BIGINT NOT NULL,
			operator_id BIGINT NOT NULL DEFAULT 0,
			reason VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_tx_steam (steam_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS model_usage_stats (
			steam_id BIGINT NOT NULL,
			model_id VARCHAR(128) NOT NULL,
			use_count BIGINT NOT NULL DEFAULT 0,
			last_used_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (steam_id, model_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS starting_balance_grants (
			steam_id BIGINT PRIMARY KEY,
			granted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Owns reports whether the player owns the model.
func (r *MySQLLedger) Owns(ctx context.Context, steamID uint64, modelID string) (bool, error) {
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
func (r *MySQLLedger) GrantOwnership(ctx context.Context, rec *model.OwnershipRecord) error {
	purchasedAt := rec.PurchasedAt
	if purchasedAt.IsZero() {
		purchasedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT IGNORE INTO player_owned_models
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
func (r *MySQLLedger) OwnedModelIDs(ctx context.Context, steamID uint64) ([]string, error) {
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
func (r *MySQLLedger) OwnedModelIDsBatch(ctx context.Context, steamIDs []uint64) (map[uint64][]string, error) {
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
func (r *MySQLLedger) Equipped(ctx context.Context, steamID uint64, slot model.TeamSlot) (*model.EquippedSlot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT steam_id, team_slot, model_id, model_path, arms_path, COALESCE(variants, ''),
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
func (r *MySQLLedger) EquippedBatch(ctx context.Context, steamIDs []uint64) (map[uint64][]model.EquippedSlot, error) {
	result := make(map[uint64][]model.EquippedSlot, len(steamIDs))
	if len(steamIDs) == 0 {
		return result, nil
	}

	query := fmt.Sprintf(`
		SELECT steam_id, team_slot, model_id, model_path, arms_path, COALESCE(variants, ''),
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

// SetEquipped upserts the slot row and bumps the usage counters. The
// variants assignment must run before model_id is reassigned: MySQL
// evaluates ON DUPLICATE KEY assignments left to right.
func (r *MySQLLedger) SetEquipped(ctx context.Context, slot *model.EquippedSlot) error {
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO player_current_models
			(steam_id, team_slot, model_id, model_path, arms_path, variants,
			 player_name, usage_count, equipped_at)
		VALUES (?, ?, ?, ?, ?, '', ?, 1, ?)
		ON DUPLICATE KEY UPDATE
			variants = IF(model_id = VALUES(model_id), variants, ''),
			model_id = VALUES(model_id),
			model_path = VALUES(model_path),
			arms_path = VALUES(arms_path),
			player_name = VALUES(player_name),
			usage_count = usage_count + 1,
			equipped_at = VALUES(equipped_at)`,
		int64(slot.SteamID), string(slot.TeamSlot), slot.ModelID, slot.ModelPath,
		slot.ArmsPath, slot.PlayerName, now)
	if err != nil {
		return fmt.Errorf("failed to upsert equipped slot: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO model_usage_stats (steam_id, model_id, use_count, last_used_at)
		VALUES (?, ?, 1, ?)
		ON DUPLICATE KEY UPDATE
			use_count = use_count + 1,
			last_used_at = VALUES(last_used_at)`,
		int64(slot.SteamID), slot.ModelID, now)
	if err != nil {
		return fmt.Errorf("failed to upsert usage stat: %w", err)
	}
	return nil
}

// DeleteEquipped removes the slot row.
func (r *MySQLLedger) DeleteEquipped(ctx context.Context, steamID uint64, slot model.TeamSlot) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM player_current_models WHERE steam_id = ? AND team_slot = ?`,
		int64(steamID), string(slot))
	if err != nil {
		return fmt.Errorf("failed to delete equipped slot: %w", err)
	}
	return nil
}

// VariantSelections returns the stored variant blob, empty when none.
func (r *MySQLLedger) VariantSelections(ctx context.Context, steamID uint64, slot model.TeamSlot) (string, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(variants, '') FROM player_current_models WHERE steam_id = ? AND team_slot = ?`,
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
func (r *MySQLLedger) SetVariantSelections(ctx context.Context, steamID uint64, slot model.TeamSlot, data string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE player_current_models SET variants = ? WHERE steam_id = ? AND team_slot = ?`,
		data, int64(steamID), string(slot))
	if err != nil {
		return fmt.Errorf("failed to update variant selections: %w", err)
	}
	return nil
}

// LogTransaction appends an audit record.
func (r *MySQLLedger) LogTransaction(ctx context.Context, entry *model.TransactionLogEntry) error {
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
func (r *MySQLLedger) HasStartingBalanceGrant(ctx context.Context, steamID uint64) (bool, error) {
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
func (r *MySQLLedger) MarkStartingBalanceGrant(ctx context.Context, steamID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO starting_balance_grants (steam_id, granted_at) VALUES (?, ?)`,
		int64(steamID), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark starting balance grant: %w", err)
	}
	return nil
}

// DeletePlayerData wipes every row belonging to the player.
func (r *MySQLLedger) DeletePlayerData(ctx context.Context, steamID uint64) error {
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
func (r *MySQLLedger) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{"backend": "mysql"}

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
func (r *MySQLLedger) Close() error {
	return r.db.Close()
}

// Ensure MySQLLedger implements Ledger
var _ Ledger = (*MySQLLedger)(nil)
