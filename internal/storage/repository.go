package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"monthlynet/internal/core"

	_ "modernc.org/sqlite"
)

const stateLastBillReset = "last_bill_reset"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Append implements store.HistoryStore
func (r *SQLiteRepository) Append(ctx context.Context, e core.HistoryEntry) error {
	b := e.Balances
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO history_entries (
			id, recorded_at, timestamp_ms,
			cash, savings, investments, real_estate, credit_cards, loans, mortgage,
			net_worth, total_assets, total_liabilities
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Date, e.Timestamp,
		b.Cash, b.Savings, b.Investments, b.RealEstate, b.CreditCards, b.Loans, b.Mortgage,
		e.NetWorth, e.TotalAssets, e.TotalLiabilities,
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}

	slog.InfoContext(ctx, "History entry saved to SQLite",
		"id", e.ID,
		"net_worth", e.NetWorth,
		"timestamp", e.Timestamp)

	return nil
}

// List implements store.HistoryStore
func (r *SQLiteRepository) List(ctx context.Context) ([]core.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, recorded_at, timestamp_ms,
			cash, savings, investments, real_estate, credit_cards, loans, mortgage,
			net_worth, total_assets, total_liabilities
		FROM history_entries
		ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []core.HistoryEntry
	for rows.Next() {
		var e core.HistoryEntry
		b := &e.Balances
		if err := rows.Scan(&e.ID, &e.Date, &e.Timestamp,
			&b.Cash, &b.Savings, &b.Investments, &b.RealEstate, &b.CreditCards, &b.Loans, &b.Mortgage,
			&e.NetWorth, &e.TotalAssets, &e.TotalLiabilities); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

// ListBills implements store.BillStore
func (r *SQLiteRepository) ListBills(ctx context.Context) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, amount, due_day, is_paid FROM bills ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}
	defer rows.Close()

	var out []core.Bill
	for rows.Next() {
		var b core.Bill
		if err := rows.Scan(&b.ID, &b.Name, &b.Amount, &b.DueDay, &b.IsPaid); err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bills: %w", err)
	}
	return out, nil
}

// AddBill implements store.BillStore
func (r *SQLiteRepository) AddBill(ctx context.Context, b core.Bill) error {
	if err := b.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bills (id, name, amount, due_day, is_paid) VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.Amount, b.DueDay, b.IsPaid)
	if err != nil {
		return fmt.Errorf("insert bill: %w", err)
	}
	slog.InfoContext(ctx, "Bill saved to SQLite", "id", b.ID, "name", b.Name, "due_day", b.DueDay)
	return nil
}

// ToggleBillPaid implements store.BillStore
func (r *SQLiteRepository) ToggleBillPaid(ctx context.Context, id string) (core.Bill, error) {
	var b core.Bill
	err := r.db.QueryRowContext(ctx, `
		UPDATE bills SET is_paid = 1 - is_paid WHERE id = ?
		RETURNING id, name, amount, due_day, is_paid`, id).
		Scan(&b.ID, &b.Name, &b.Amount, &b.DueDay, &b.IsPaid)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Bill{}, core.ErrBillNotFound
	}
	if err != nil {
		return core.Bill{}, fmt.Errorf("toggle bill %s: %w", id, err)
	}
	return b, nil
}

// DeleteBill implements store.BillStore
func (r *SQLiteRepository) DeleteBill(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bills WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bill %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrBillNotFound
	}
	return nil
}

// ResetBills implements store.BillStore
func (r *SQLiteRepository) ResetBills(ctx context.Context) error {
	res, err := r.db.ExecContext(ctx, `UPDATE bills SET is_paid = 0 WHERE is_paid <> 0`)
	if err != nil {
		return fmt.Errorf("reset bills: %w", err)
	}
	n, _ := res.RowsAffected()
	slog.InfoContext(ctx, "Bills reset to unpaid", "updated", n)
	return nil
}

// LastBillReset implements store.StateStore
func (r *SQLiteRepository) LastBillReset(ctx context.Context) (time.Time, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM app_state WHERE key = ?`, stateLastBillReset).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read last bill reset: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last bill reset %q: %w", value, err)
	}
	return t, nil
}

// SetLastBillReset implements store.StateStore
func (r *SQLiteRepository) SetLastBillReset(ctx context.Context, t time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO app_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		stateLastBillReset, t.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("write last bill reset: %w", err)
	}
	return nil
}
