package payments

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is a durable Store for deployments that must survive process
// restarts. The completion-hook latch is persisted alongside the record so a
// restart cannot re-fire downstream completion handling.
type SQLiteStore struct {
	db   *sql.DB
	hook CompletionHook
	now  func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and runs
// migrations. hook may be nil.
func NewSQLiteStore(dbPath string, hook CompletionHook) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db, hook: hook, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS payments (
			charge_id TEXT PRIMARY KEY,
			code TEXT NOT NULL,
			status TEXT NOT NULL,
			amount TEXT NOT NULL,
			currency TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			metadata TEXT,
			completion_fired INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Create inserts a new record with status created.
func (s *SQLiteStore) Create(chargeID, code, amount, currency, customerID string, metadata map[string]any) (*Payment, error) {
	now := s.now()
	metaJSON, _ := json.Marshal(metadata)

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO payments (charge_id, code, status, amount, currency, customer_id, metadata, completion_fired, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`, chargeID, code, string(StatusCreated), amount, currency, customerID, string(metaJSON), now, now)
	if err != nil {
		return nil, err
	}

	slog.Info("payment created", "chargeId", chargeID)
	return &Payment{
		ChargeID:   chargeID,
		Code:       code,
		Status:     StatusCreated,
		Amount:     amount,
		Currency:   currency,
		CustomerID: customerID,
		CreatedAt:  now,
		UpdatedAt:  now,
		Metadata:   metadata,
	}, nil
}

// UpdateStatus transitions an existing record; unknown charges return
// (nil, nil) without creating one.
func (s *SQLiteStore) UpdateStatus(chargeID string, status Status) (*Payment, error) {
	now := s.now()

	res, err := s.db.Exec(`UPDATE payments SET status = ?, updated_at = ? WHERE charge_id = ?`,
		string(status), now, chargeID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		slog.Warn("payment not found", "chargeId", chargeID)
		return nil, nil
	}

	fireHook := false
	if status.Paid() {
		res, err := s.db.Exec(`UPDATE payments SET completion_fired = 1 WHERE charge_id = ? AND completion_fired = 0`, chargeID)
		if err != nil {
			return nil, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			fireHook = true
		}
	}

	p, err := s.Get(chargeID)
	if err != nil {
		return nil, err
	}

	slog.Info("payment status updated", "chargeId", chargeID, "status", status)

	if fireHook && s.hook != nil {
		s.hook(p)
	}

	return p, nil
}

// Get returns a record, or (nil, nil) when absent.
func (s *SQLiteStore) Get(chargeID string) (*Payment, error) {
	row := s.db.QueryRow(`
		SELECT charge_id, code, status, amount, currency, customer_id, metadata, created_at, updated_at
		FROM payments WHERE charge_id = ?
	`, chargeID)

	p, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// List returns all records.
func (s *SQLiteStore) List() ([]*Payment, error) {
	rows, err := s.db.Query(`
		SELECT charge_id, code, status, amount, currency, customer_id, metadata, created_at, updated_at
		FROM payments ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*Payment, error) {
	var p Payment
	var status, metaJSON string

	err := row.Scan(&p.ChargeID, &p.Code, &status, &p.Amount, &p.Currency, &p.CustomerID, &metaJSON, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.Status = Status(status)
	if metaJSON != "" && metaJSON != "null" {
		json.Unmarshal([]byte(metaJSON), &p.Metadata)
	}

	return &p, nil
}
