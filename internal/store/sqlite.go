package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "tradegate/internal/errors"
	"tradegate/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Per-account, per-venue trading permissions
	CREATE TABLE IF NOT EXISTS constraint_profiles (
		account_id TEXT NOT NULL,
		venue TEXT NOT NULL,
		allowed_types TEXT NOT NULL,
		max_leverage REAL NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (account_id, venue)
	);

	-- Generated trading signals
	CREATE TABLE IF NOT EXISTS signals (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		venue TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		trading_type TEXT NOT NULL,
		leverage REAL NOT NULL,
		price_target REAL,
		stop_loss REAL,
		take_profit REAL,
		confidence REAL,
		rationale TEXT,
		source_context TEXT,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);

	-- Validation verdicts, one per signal
	CREATE TABLE IF NOT EXISTS verdicts (
		signal_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		risk_flags TEXT,
		reasoning TEXT,
		validator_identity TEXT,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (signal_id) REFERENCES signals(id)
	);

	-- Enforcement decisions, one per signal
	CREATE TABLE IF NOT EXISTS decisions (
		signal_id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		corrected_trading_type TEXT,
		corrected_leverage REAL,
		violated_invariant TEXT,
		decided_at DATETIME NOT NULL,
		FOREIGN KEY (signal_id) REFERENCES signals(id)
	);

	-- Orders submitted to venues
	CREATE TABLE IF NOT EXISTS orders (
		client_order_id TEXT PRIMARY KEY,
		signal_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		venue TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		trading_type TEXT NOT NULL,
		leverage REAL NOT NULL,
		quantity REAL NOT NULL,
		price REAL,
		stop_loss REAL,
		take_profit REAL,
		status TEXT NOT NULL,
		broker_order_id TEXT,
		filled_qty REAL,
		placed_at DATETIME,
		FOREIGN KEY (signal_id) REFERENCES signals(id)
	);

	CREATE INDEX IF NOT EXISTS idx_signals_account ON signals(account_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_orders_signal ON orders(signal_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// GetProfile retrieves the constraint profile for an account on a venue.
func (s *SQLiteStore) GetProfile(ctx context.Context, accountID, venue string) (*models.ConstraintProfile, error) {
	var typesJSON string
	var maxLeverage float64

	err := s.db.QueryRowContext(ctx,
		`SELECT allowed_types, max_leverage FROM constraint_profiles WHERE account_id = ? AND venue = ?`,
		accountID, models.NormalizeVenue(venue),
	).Scan(&typesJSON, &maxLeverage)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrProfileNotFound
	}
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrDatabaseError, "querying profile: %v", err)
	}

	var raw []string
	if err := json.Unmarshal([]byte(typesJSON), &raw); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrDatabaseError, "decoding allowed types: %v", err)
	}
	types := make([]models.TradingType, 0, len(raw))
	for _, t := range raw {
		parsed, err := models.ParseTradingType(t)
		if err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrDatabaseError, "stored profile corrupt: %v", err)
		}
		types = append(types, parsed)
	}

	return models.NewConstraintProfile(accountID, venue, types, maxLeverage)
}

// PutProfile inserts or replaces a constraint profile.
func (s *SQLiteStore) PutProfile(ctx context.Context, profile *models.ConstraintProfile) error {
	raw := make([]string, 0, len(profile.AllowedTypes))
	for _, t := range profile.AllowedTypes {
		raw = append(raw, string(t))
	}
	typesJSON, err := json.Marshal(raw)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrDatabaseError, "encoding allowed types: %v", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO constraint_profiles (account_id, venue, allowed_types, max_leverage, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(account_id, venue) DO UPDATE SET
			allowed_types = excluded.allowed_types,
			max_leverage = excluded.max_leverage,
			updated_at = CURRENT_TIMESTAMP`,
		profile.AccountID, profile.Venue, string(typesJSON), profile.MaxLeverage)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrDatabaseError, "saving profile: %v", err)
	}
	return nil
}

// DeleteProfile removes a stored profile.
func (s *SQLiteStore) DeleteProfile(ctx context.Context, accountID, venue string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM constraint_profiles WHERE account_id = ? AND venue = ?`,
		accountID, models.NormalizeVenue(venue))
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrDatabaseError, "deleting profile: %v", err)
	}
	return nil
}

// ListProfiles returns all profiles stored for an account.
func (s *SQLiteStore) ListProfiles(ctx context.Context, accountID string) ([]*models.ConstraintProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT venue FROM constraint_profiles WHERE account_id = ? ORDER BY venue`, accountID)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrDatabaseError, "listing profiles: %v", err)
	}
	defer rows.Close()

	var venues []string
	for rows.Next() {
		var venue string
		if err := rows.Scan(&venue); err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrDatabaseError, "scanning profile row: %v", err)
		}
		venues = append(venues, venue)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrDatabaseError, "iterating profiles: %v", err)
	}

	profiles := make([]*models.ConstraintProfile, 0, len(venues))
	for _, venue := range venues {
		p, err := s.GetProfile(ctx, accountID, venue)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// SaveSignal persists a generated signal.
func (s *SQLiteStore) SaveSignal(ctx context.Context, signal *models.TradingSignal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO signals (
			id, account_id, venue, symbol, side, trading_type, leverage,
			price_target, stop_loss, take_profit, confidence, rationale,
			source_context, created_at, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		signal.ID, signal.AccountID, signal.Venue, signal.Symbol,
		string(signal.Side), string(signal.TradingType), signal.Leverage,
		signal.PriceTarget, signal.StopLoss, signal.TakeProfit,
		signal.Confidence, signal.Rationale, signal.SourceContext,
		signal.CreatedAt, signal.ExpiresAt)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrDatabaseError, "saving signal: %v", err)
	}
	return nil
}

// GetSignal retrieves a signal by ID.
func (s *SQLiteStore) GetSignal(ctx context.Context, signalID string) (*models.TradingSignal, error) {
	var sig models.TradingSignal
	var side, tradingType string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, venue, symbol, side, trading_type, leverage,
			price_target, stop_loss, take_profit, confidence, rationale,
			source_context, created_at, expires_at
		FROM signals WHERE id = ?`, signalID,
	).Scan(&sig.ID, &sig.AccountID, &sig.Venue, &sig.Symbol, &side, &tradingType,
		&sig.Leverage, &sig.PriceTarget, &sig.StopLoss, &sig.TakeProfit,
		&sig.Confidence, &sig.Rationale, &sig.SourceContext, &sig.CreatedAt, &sig.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("signal not found: %s", signalID)
	}
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrDatabaseError, "querying signal: %v", err)
	}

	sig.Side = models.Side(side)
	sig.TradingType = models.TradingType(tradingType)
	return &sig, nil
}

// SaveVerdict persists a validation verdict.
func (s *SQLiteStore) SaveVerdict(ctx context.Context, verdict *models.ValidationVerdict) error {
	flags := make([]string, 0, len(verdict.RiskFlags))
	for _, f := range verdict.RiskFlags {
		flags = append(flags, string(f))
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO verdicts (
			signal_id, status, risk_flags, reasoning, validator_identity, created_at
		) VALUES (?, ?, ?, ?, ?, ?)`,
		verdict.SignalID, string(verdict.Status), strings.Join(flags, ","),
		verdict.Reasoning, verdict.ValidatorIdentity, verdict.CreatedAt)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrDatabaseError, "saving verdict: %v", err)
	}
	return nil
}

// SaveDecision persists an enforcement decision.
func (s *SQLiteStore) SaveDecision(ctx context.Context, decision *models.EnforcementDecision) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO decisions (
			signal_id, action, corrected_trading_type, corrected_leverage,
			violated_invariant, decided_at
		) VALUES (?, ?, ?, ?, ?, ?)`,
		decision.SignalID, string(decision.Action),
		string(decision.CorrectedTradingType), decision.CorrectedLeverage,
		string(decision.ViolatedInvariant), decision.DecidedAt)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrDatabaseError, "saving decision: %v", err)
	}
	return nil
}

// SaveOrder persists an order record.
func (s *SQLiteStore) SaveOrder(ctx context.Context, order *models.Order) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO orders (
			client_order_id, signal_id, account_id, venue, symbol, side,
			trading_type, leverage, quantity, price, stop_loss, take_profit,
			status, broker_order_id, filled_qty, placed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ClientOrderID, order.SignalID, order.AccountID, order.Venue,
		order.Symbol, string(order.Side), string(order.TradingType),
		order.Leverage, order.Quantity, order.Price, order.StopLoss,
		order.TakeProfit, string(order.Status), order.BrokerOrderID,
		order.FilledQty, order.PlacedAt)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrDatabaseError, "saving order: %v", err)
	}
	return nil
}

// RecentSignals returns the newest signals first, capped at limit.
func (s *SQLiteStore) RecentSignals(ctx context.Context, limit int) ([]*models.TradingSignal, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM signals ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrDatabaseError, "listing signals: %v", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrDatabaseError, "scanning signal row: %v", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrDatabaseError, "iterating signals: %v", err)
	}

	signals := make([]*models.TradingSignal, 0, len(ids))
	for _, id := range ids {
		sig, err := s.GetSignal(ctx, id)
		if err != nil {
			return nil, err
		}
		signals = append(signals, sig)
	}
	return signals, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ DataStore = (*SQLiteStore)(nil)
