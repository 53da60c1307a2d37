package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"costwatch-hq/saturn/pkg/costdata"
)

// SQLiteBackend implements Backend using SQLite for persistence across
// restarts. Suitable for the single-instance deployments this pipeline
// targets.
//
// The database is opened in WAL mode with a busy timeout; the connection
// pool is capped at one connection because SQLite supports only a single
// writer.
type SQLiteBackend struct {
	db *sql.DB
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds.
	BusyTimeout time.Duration
}

// NewSQLiteBackend opens (or creates) the database at path with default
// settings.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	return NewSQLiteBackendWithConfig(SQLiteConfig{Path: path})
}

// NewSQLiteBackendWithConfig opens the database with custom settings.
func NewSQLiteBackendWithConfig(cfg SQLiteConfig) (*SQLiteBackend, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	backend := &SQLiteBackend{db: db}
	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return backend, nil
}

// initSchema creates the tables if they do not exist.
func (s *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS budgets (
		profile TEXT PRIMARY KEY,
		monthly_budget REAL NOT NULL,
		alert_threshold REAL NOT NULL,
		api_budget REAL NOT NULL,
		refresh_interval_minutes INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS month_totals (
		profile TEXT NOT NULL,
		month INTEGER NOT NULL,
		amount REAL NOT NULL,
		currency TEXT NOT NULL,
		complete INTEGER NOT NULL,
		service_totals TEXT,
		PRIMARY KEY (profile, month)
	);

	CREATE TABLE IF NOT EXISTS sent_alerts (
		id TEXT PRIMARY KEY,
		profile TEXT NOT NULL,
		alert_type TEXT NOT NULL,
		sent_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sent_alerts_lookup
		ON sent_alerts(profile, alert_type, sent_at);

	CREATE TABLE IF NOT EXISTS cache_entries (
		profile TEXT PRIMARY KEY,
		fetched_at INTEGER NOT NULL,
		payload TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// GetBudget returns the budget for a profile, or ErrNotFound.
func (s *SQLiteBackend) GetBudget(ctx context.Context, profile costdata.Profile) (*costdata.ProfileBudget, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT monthly_budget, alert_threshold, api_budget, refresh_interval_minutes
		FROM budgets WHERE profile = ?`, string(profile))

	budget := &costdata.ProfileBudget{Profile: profile}
	err := row.Scan(&budget.MonthlyBudget, &budget.AlertThreshold, &budget.APIBudget, &budget.RefreshIntervalMinutes)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load budget: %w", err)
	}
	return budget, nil
}

// SaveBudget inserts or replaces a budget record.
func (s *SQLiteBackend) SaveBudget(ctx context.Context, budget *costdata.ProfileBudget) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (profile, monthly_budget, alert_threshold, api_budget, refresh_interval_minutes)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (profile) DO UPDATE SET
			monthly_budget = excluded.monthly_budget,
			alert_threshold = excluded.alert_threshold,
			api_budget = excluded.api_budget,
			refresh_interval_minutes = excluded.refresh_interval_minutes`,
		string(budget.Profile), budget.MonthlyBudget, budget.AlertThreshold,
		budget.APIBudget, budget.RefreshIntervalMinutes)
	if err != nil {
		return fmt.Errorf("failed to save budget: %w", err)
	}
	return nil
}

// UpsertMonth inserts or replaces the (profile, month) record.
func (s *SQLiteBackend) UpsertMonth(ctx context.Context, month *costdata.MonthTotal) error {
	serviceTotals, err := json.Marshal(month.ServiceTotals)
	if err != nil {
		return fmt.Errorf("failed to encode service totals: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO month_totals (profile, month, amount, currency, complete, service_totals)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (profile, month) DO UPDATE SET
			amount = excluded.amount,
			currency = excluded.currency,
			complete = excluded.complete,
			service_totals = excluded.service_totals`,
		string(month.Profile), costdata.MonthStart(month.Month).Unix(), month.Amount,
		month.Currency, boolToInt(month.Complete), string(serviceTotals))
	if err != nil {
		return fmt.Errorf("failed to upsert month: %w", err)
	}
	return nil
}

// GetMonth returns the (profile, month) record, or ErrNotFound.
func (s *SQLiteBackend) GetMonth(ctx context.Context, profile costdata.Profile, month time.Time) (*costdata.MonthTotal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT month, amount, currency, complete, service_totals
		FROM month_totals WHERE profile = ? AND month = ?`,
		string(profile), costdata.MonthStart(month).Unix())
	return scanMonth(row, profile)
}

// ListMonths returns all history for a profile, ascending by month.
func (s *SQLiteBackend) ListMonths(ctx context.Context, profile costdata.Profile) ([]*costdata.MonthTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT month, amount, currency, complete, service_totals
		FROM month_totals WHERE profile = ? ORDER BY month ASC`, string(profile))
	if err != nil {
		return nil, fmt.Errorf("failed to list months: %w", err)
	}
	defer rows.Close()

	var out []*costdata.MonthTotal
	for rows.Next() {
		rec, err := scanMonth(rows, profile)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SweepComplete marks months strictly before the cutoff as complete.
func (s *SQLiteBackend) SweepComplete(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE month_totals SET complete = 1
		WHERE complete = 0 AND month < ?`, costdata.MonthStart(before).Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep months: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// AppendAlert records a delivered notification.
func (s *SQLiteBackend) AppendAlert(ctx context.Context, alert *costdata.SentAlert) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sent_alerts (id, profile, alert_type, sent_at)
		VALUES (?, ?, ?, ?)`,
		alert.ID, string(alert.Profile), string(alert.Type), alert.SentAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to append alert: %w", err)
	}
	return nil
}

// LastAlert returns the most recent delivery time for (profile, type).
func (s *SQLiteBackend) LastAlert(ctx context.Context, profile costdata.Profile, typ costdata.AlertType) (time.Time, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT MAX(sent_at) FROM sent_alerts
		WHERE profile = ? AND alert_type = ?`, string(profile), string(typ))

	var ts sql.NullInt64
	if err := row.Scan(&ts); err != nil {
		return time.Time{}, fmt.Errorf("failed to query last alert: %w", err)
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	return time.Unix(ts.Int64, 0).UTC(), nil
}

// PruneAlerts deletes audit records older than the cutoff.
func (s *SQLiteBackend) PruneAlerts(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sent_alerts WHERE sent_at < ?`, olderThan.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune alerts: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// SaveEntry persists a cache snapshot as JSON.
func (s *SQLiteBackend) SaveEntry(ctx context.Context, entry *costdata.CacheEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (profile, fetched_at, payload)
		VALUES (?, ?, ?)
		ON CONFLICT (profile) DO UPDATE SET
			fetched_at = excluded.fetched_at,
			payload = excluded.payload`,
		string(entry.Profile), entry.FetchedAt.Unix(), string(payload))
	if err != nil {
		return fmt.Errorf("failed to save cache entry: %w", err)
	}
	return nil
}

// LoadEntries returns all persisted cache snapshots.
func (s *SQLiteBackend) LoadEntries(ctx context.Context) ([]*costdata.CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM cache_entries`)
	if err != nil {
		return nil, fmt.Errorf("failed to load cache entries: %w", err)
	}
	defer rows.Close()

	var out []*costdata.CacheEntry
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var entry costdata.CacheEntry
		if err := json.Unmarshal([]byte(payload), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode cache entry: %w", err)
		}
		out = append(out, &entry)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

// scanner abstracts sql.Row and sql.Rows for scanMonth.
type scanner interface {
	Scan(dest ...any) error
}

func scanMonth(row scanner, profile costdata.Profile) (*costdata.MonthTotal, error) {
	var (
		monthUnix     int64
		complete      int
		serviceTotals sql.NullString
	)
	rec := &costdata.MonthTotal{Profile: profile}
	err := row.Scan(&monthUnix, &rec.Amount, &rec.Currency, &complete, &serviceTotals)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan month: %w", err)
	}
	rec.Month = time.Unix(monthUnix, 0).UTC()
	rec.Complete = complete != 0
	if serviceTotals.Valid && serviceTotals.String != "" && serviceTotals.String != "null" {
		if err := json.Unmarshal([]byte(serviceTotals.String), &rec.ServiceTotals); err != nil {
			return nil, fmt.Errorf("failed to decode service totals: %w", err)
		}
	}
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
