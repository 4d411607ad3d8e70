package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"ivcrush-trader/internal/models"
)

// timeLayout is the stable text encoding for persisted timestamps.
const timeLayout = time.RFC3339Nano

// SQLiteStore implements StateStore using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite-based state store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db, path: dbPath}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Single-row account table
	CREATE TABLE IF NOT EXISTS account (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		balance REAL NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Positions table; id order is insertion order
	CREATE TABLE IF NOT EXISTS positions (
		id INTEGER PRIMARY KEY,
		symbol TEXT NOT NULL,
		entry_time TEXT NOT NULL,
		entry_spot REAL NOT NULL,
		sell_strike REAL NOT NULL,
		buy_strike REAL NOT NULL,
		sell_premium REAL NOT NULL,
		buy_premium REAL NOT NULL,
		net_credit REAL NOT NULL,
		max_loss REAL NOT NULL,
		contracts INTEGER NOT NULL,
		status TEXT NOT NULL,
		exit_time TEXT,
		exit_spot REAL NOT NULL DEFAULT 0,
		exit_reason TEXT NOT NULL DEFAULT '',
		pnl REAL NOT NULL DEFAULT 0,
		time_in_trade REAL NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load retrieves the persisted account state.
func (s *SQLiteStore) Load(ctx context.Context) (*models.AccountState, error) {
	state := &models.AccountState{}

	err := s.db.QueryRowContext(ctx, `SELECT balance FROM account WHERE id = 1`).Scan(&state.Balance)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, entry_time, entry_spot, sell_strike, buy_strike,
		       sell_premium, buy_premium, net_credit, max_loss, contracts,
		       status, exit_time, exit_spot, exit_reason, pnl, time_in_trade
		FROM positions
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Position
		var entryTime string
		var exitTime sql.NullString
		var exitReason string

		if err := rows.Scan(&p.ID, &p.Symbol, &entryTime, &p.EntrySpot, &p.SellStrike, &p.BuyStrike,
			&p.SellPremium, &p.BuyPremium, &p.NetCredit, &p.MaxLoss, &p.Contracts,
			&p.Status, &exitTime, &p.ExitSpot, &exitReason, &p.PnL, &p.TimeInTrade); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}

		p.EntryTime, err = time.Parse(timeLayout, entryTime)
		if err != nil {
			return nil, fmt.Errorf("failed to parse entry time: %w", err)
		}
		if exitTime.Valid && exitTime.String != "" {
			t, err := time.Parse(timeLayout, exitTime.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse exit time: %w", err)
			}
			p.ExitTime = &t
		}
		p.ExitReason = models.ExitReason(exitReason)

		state.Positions = append(state.Positions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return state, nil
}

// Save persists a full snapshot of the account state in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, state *models.AccountState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO account (id, balance, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET balance = excluded.balance, updated_at = CURRENT_TIMESTAMP
	`, state.Balance)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM positions`); err != nil {
		return fmt.Errorf("failed to clear positions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO positions (id, symbol, entry_time, entry_spot, sell_strike, buy_strike,
			sell_premium, buy_premium, net_credit, max_loss, contracts,
			status, exit_time, exit_spot, exit_reason, pnl, time_in_trade)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range state.Positions {
		var exitTime interface{}
		if p.ExitTime != nil {
			exitTime = p.ExitTime.Format(timeLayout)
		}

		_, err := stmt.ExecContext(ctx, p.ID, p.Symbol, p.EntryTime.Format(timeLayout), p.EntrySpot,
			p.SellStrike, p.BuyStrike, p.SellPremium, p.BuyPremium, p.NetCredit, p.MaxLoss,
			p.Contracts, string(p.Status), exitTime, p.ExitSpot, string(p.ExitReason), p.PnL, p.TimeInTrade)
		if err != nil {
			return fmt.Errorf("failed to insert position %d: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Ensure SQLiteStore implements StateStore
var _ StateStore = (*SQLiteStore)(nil)
