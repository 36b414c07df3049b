// Package store declares the persistence ports for history and bills.
package store

import (
	"context"
	"time"

	"monthlynet/internal/core"
)

// Ports for outbound adapters.
type (
	// HistoryStore is an append-only collection of history entries.
	HistoryStore interface {
		Append(ctx context.Context, e core.HistoryEntry) error
		// List returns entries in insertion order.
		List(ctx context.Context) ([]core.HistoryEntry, error)
	}

	// BillStore is the mutable collection of recurring bills.
	BillStore interface {
		ListBills(ctx context.Context) ([]core.Bill, error)
		AddBill(ctx context.Context, b core.Bill) error
		// ToggleBillPaid flips the paid flag and returns the updated bill.
		ToggleBillPaid(ctx context.Context, id string) (core.Bill, error)
		DeleteBill(ctx context.Context, id string) error
		// ResetBills marks every bill unpaid.
		ResetBills(ctx context.Context) error
	}

	// StateStore keeps bookkeeping values for the bill worker.
	StateStore interface {
		// LastBillReset returns the zero time if bills were never reset.
		LastBillReset(ctx context.Context) (time.Time, error)
		SetLastBillReset(ctx context.Context, t time.Time) error
	}

	// Store is the union implemented by every backend.
	Store interface {
		HistoryStore
		BillStore
		StateStore
	}
)
