package file

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"monthlynet/internal/core"
)

func TestStoreRoundTripAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	e1 := core.HistoryEntry{ID: "h1", Timestamp: 1, NetWorth: 10}
	e2 := core.HistoryEntry{ID: "h2", Timestamp: 2, NetWorth: 20}
	for _, e := range []core.HistoryEntry{e1, e2} {
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := s.AddBill(ctx, core.Bill{ID: "b1", Name: "Rent", Amount: 1200, DueDay: 1}); err != nil {
		t.Fatalf("add bill: %v", err)
	}
	if _, err := s.ToggleBillPaid(ctx, "b1"); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	history, _ := reopened.List(ctx)
	if len(history) != 2 || history[0].ID != "h1" || history[1].ID != "h2" {
		t.Fatalf("history not restored in insertion order: %+v", history)
	}
	bills, _ := reopened.ListBills(ctx)
	if len(bills) != 1 || !bills[0].IsPaid || bills[0].Name != "Rent" {
		t.Fatalf("bills not restored: %+v", bills)
	}
}

func TestStoreWritesOriginalWireShape(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.AddBill(context.Background(), core.Bill{ID: "b1", Name: "Phone", Amount: 45.5, DueDay: 12}); err != nil {
		t.Fatalf("add bill: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, BillsFile))
	if err != nil {
		t.Fatalf("read bills file: %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"id", "name", "amount", "dueDay", "isPaid"} {
		if _, ok := decoded[0][key]; !ok {
			t.Fatalf("missing key %q in %s", key, raw)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, HistoryFile)); !os.IsNotExist(err) {
		t.Fatalf("history file should not exist before the first append, err=%v", err)
	}
}

func TestStoreBillOperations(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	if err := s.AddBill(ctx, core.Bill{ID: "x", Name: "", Amount: 1, DueDay: 1}); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	for _, b := range []core.Bill{
		{ID: "a", Name: "Rent", Amount: 1000, DueDay: 1},
		{ID: "b", Name: "Gym", Amount: 30, DueDay: 15},
	} {
		if err := s.AddBill(ctx, b); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	got, err := s.ToggleBillPaid(ctx, "b")
	if err != nil || !got.IsPaid {
		t.Fatalf("toggle on: %+v %v", got, err)
	}
	got, _ = s.ToggleBillPaid(ctx, "b")
	if got.IsPaid {
		t.Fatalf("toggle should flip back to unpaid")
	}
	if _, err := s.ToggleBillPaid(ctx, "missing"); !errors.Is(err, core.ErrBillNotFound) {
		t.Fatalf("expected ErrBillNotFound, got %v", err)
	}

	_, _ = s.ToggleBillPaid(ctx, "a")
	_, _ = s.ToggleBillPaid(ctx, "b")
	if err := s.ResetBills(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	bills, _ := s.ListBills(ctx)
	for _, b := range bills {
		if b.IsPaid {
			t.Fatalf("bill %s still paid after reset", b.ID)
		}
	}

	if err := s.DeleteBill(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteBill(ctx, "a"); !errors.Is(err, core.ErrBillNotFound) {
		t.Fatalf("second delete should report not found, got %v", err)
	}
	bills, _ = s.ListBills(ctx)
	if len(bills) != 1 || bills[0].ID != "b" {
		t.Fatalf("unexpected bills after delete: %+v", bills)
	}
}

func TestOpenMovesCorruptFileAside(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	corrupt := []byte(`[{"id":"a","date":"2025-01-01T00:00:00.000Z","timestamp":1735689600000,"netWorth":10},{"id":"b"`)
	if err := os.WriteFile(filepath.Join(dir, HistoryFile), corrupt, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if history, _ := s.List(ctx); len(history) != 0 {
		t.Fatalf("expected empty history, got %+v", history)
	}
	if err := s.Append(ctx, core.HistoryEntry{ID: "c", Timestamp: 2}); err != nil {
		t.Fatalf("append: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, HistoryFile+".corrupt-*"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one quarantined file, got %v (%v)", matches, err)
	}
	kept, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read quarantined file: %v", err)
	}
	if string(kept) != string(corrupt) {
		t.Fatalf("quarantined bytes changed: %s", kept)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	history, _ := reopened.List(ctx)
	if len(history) != 1 || history[0].ID != "c" {
		t.Fatalf("unexpected history after reopen: %+v", history)
	}
}

func TestListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	_ = s.Append(ctx, core.HistoryEntry{ID: "h1"})
	list, _ := s.List(ctx)
	list[0].ID = "mutated"
	again, _ := s.List(ctx)
	if again[0].ID != "h1" {
		t.Fatalf("List exposed internal state")
	}
}

func TestStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if last, _ := s.LastBillReset(ctx); !last.IsZero() {
		t.Fatalf("expected zero time, got %v", last)
	}
	when := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	if err := s.SetLastBillReset(ctx, when); err != nil {
		t.Fatalf("set: %v", err)
	}
	reopened, _ := Open(dir)
	if last, _ := reopened.LastBillReset(ctx); !last.Equal(when) {
		t.Fatalf("expected %v, got %v", when, last)
	}
}
