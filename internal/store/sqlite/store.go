// Package sqlite persists daily price bars and user preferences in a
// single SQLite database, mirroring the dashboard server's schema.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"td-dashboard/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps a SQLite database holding the prices and preferences
// tables. Writes are serialized through a single connection.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path with WAL mode
// and initializes the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", path)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS prices (
			symbol         TEXT    NOT NULL,
			published_date TEXT    NOT NULL,
			timestamp      INTEGER NOT NULL,
			open           REAL    NOT NULL,
			high           REAL    NOT NULL,
			low            REAL    NOT NULL,
			close          REAL    NOT NULL,
			PRIMARY KEY (symbol, published_date)
		);

		CREATE TABLE IF NOT EXISTS user_preferences (
			user_id    TEXT PRIMARY KEY,
			payload    TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`)
	return err
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// ReplacePrices swaps the entire prices table for rows in a single
// transaction. The CSV file is the source of truth, so a reload always
// starts from a clean table.
func (s *Store) ReplacePrices(rows []model.PriceRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM prices`); err != nil {
		tx.Rollback()
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO prices (symbol, published_date, timestamp, open, high, low, close)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.Exec(r.Symbol, r.Day, r.Bar.TS, r.Bar.Open, r.Bar.High, r.Bar.Low, r.Bar.Close)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// Symbols returns every distinct symbol in the prices table, ordered.
func (s *Store) Symbols() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT symbol FROM prices ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("sqlite scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// Bars returns the bar series for one symbol ordered by timestamp.
func (s *Store) Bars(symbol string) ([]model.Bar, error) {
	rows, err := s.db.Query(`
		SELECT timestamp, open, high, low, close
		FROM prices
		WHERE symbol = ?
		ORDER BY timestamp ASC
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var b model.Bar
		if err := rows.Scan(&b.TS, &b.Open, &b.High, &b.Low, &b.Close); err != nil {
			return nil, fmt.Errorf("sqlite scan bar: %w", err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// AllSeries returns every stored series keyed by symbol. When symbol is
// non-empty only that series is returned (still keyed).
func (s *Store) AllSeries(symbol string) (map[string][]model.Bar, error) {
	query := `SELECT symbol, timestamp, open, high, low, close FROM prices`
	args := []any{}
	if symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY symbol, timestamp`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query series: %w", err)
	}
	defer rows.Close()

	series := make(map[string][]model.Bar)
	for rows.Next() {
		var sym string
		var b model.Bar
		if err := rows.Scan(&sym, &b.TS, &b.Open, &b.High, &b.Low, &b.Close); err != nil {
			return nil, fmt.Errorf("sqlite scan series: %w", err)
		}
		series[sym] = append(series[sym], b)
	}
	return series, rows.Err()
}

// SortedSymbols returns the keys of a series map in order, for
// deterministic payloads.
func SortedSymbols(series map[string][]model.Bar) []string {
	symbols := make([]string, 0, len(series))
	for sym := range series {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

// GetPreferences returns the stored preferences payload for userID, or
// nil when none exist.
func (s *Store) GetPreferences(userID string) (json.RawMessage, error) {
	var payload string
	err := s.db.QueryRow(
		`SELECT payload FROM user_preferences WHERE user_id = ?`, userID,
	).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite read preferences: %w", err)
	}
	return json.RawMessage(payload), nil
}

// PutPreferences upserts the preferences payload for userID.
func (s *Store) PutPreferences(userID string, payload []byte, updatedAt string) error {
	_, err := s.db.Exec(`
		INSERT INTO user_preferences (user_id, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, userID, string(payload), updatedAt)
	if err != nil {
		return fmt.Errorf("sqlite upsert preferences: %w", err)
	}
	return nil
}

// DeletePreferences removes the preferences row for userID. Deleting a
// missing row is not an error.
func (s *Store) DeletePreferences(userID string) error {
	_, err := s.db.Exec(`DELETE FROM user_preferences WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("sqlite delete preferences: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
