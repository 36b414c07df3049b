package core

import (
	"testing"
	"time"
)

func entryAt(id string, ts int64, net float64) HistoryEntry {
	return HistoryEntry{ID: id, Timestamp: ts, NetWorth: net}
}

func TestTotals(t *testing.T) {
	s := BalanceSnapshot{
		Cash: 1000, Savings: 5000, Investments: 12000, RealEstate: 250000,
		CreditCards: 1500, Loans: 8000, Mortgage: 180000,
	}
	got := s.Totals()
	if got.Assets != 268000 || got.Liabilities != 189500 || got.NetWorth != 78500 {
		t.Fatalf("unexpected totals %+v", got)
	}

	// Decimal summation avoids binary float drift.
	if got := (BalanceSnapshot{Cash: 0.1, Savings: 0.2}).Totals().Assets; got != 0.3 {
		t.Fatalf("expected 0.3, got %v", got)
	}
}

func TestTotalsNetWorthIdentity(t *testing.T) {
	snapshots := []BalanceSnapshot{
		{},
		{Cash: 12.34, Savings: 0.01, Loans: 99.99},
		{Investments: 1e9, Mortgage: 2.5e9},
		{Cash: -50, CreditCards: -10},
		{Cash: 0.1, Savings: 0.2, Loans: 0.1},
		{Cash: 0.7, Investments: 0.1, CreditCards: 0.3, Mortgage: 0.2},
	}
	for i, s := range snapshots {
		tot := s.Totals()
		if tot.Assets-tot.Liabilities != tot.NetWorth {
			t.Fatalf("case %d: assets-liabilities=%v netWorth=%v", i, tot.Assets-tot.Liabilities, tot.NetWorth)
		}
		e := NewHistoryEntry("e", s, time.Unix(0, 0))
		if e.TotalAssets-e.TotalLiabilities != e.NetWorth {
			t.Fatalf("case %d: stored entry %+v breaks the identity", i, e)
		}
	}
}

func TestNewHistoryEntry(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	e := NewHistoryEntry("id-1", BalanceSnapshot{Cash: 100, Loans: 40}, now)
	if e.ID != "id-1" || e.Timestamp != now.UnixMilli() {
		t.Fatalf("unexpected identity %+v", e)
	}
	if e.Date != "2025-03-14T09:30:00.000Z" {
		t.Fatalf("unexpected date %q", e.Date)
	}
	if e.TotalAssets != 100 || e.TotalLiabilities != 40 || e.NetWorth != 60 {
		t.Fatalf("unexpected totals %+v", e)
	}
	if !e.RecordedAt().Equal(now) {
		t.Fatalf("RecordedAt=%v", e.RecordedAt())
	}

	local := time.Date(2026, 10, 19, 10, 37, 54, 863640665, time.FixedZone("CEST", 2*60*60))
	if got := NewHistoryEntry("id-2", BalanceSnapshot{}, local).Date; got != "2026-10-19T08:37:54.863Z" {
		t.Fatalf("date %q, want millisecond UTC form", got)
	}
}

func TestSortChronological(t *testing.T) {
	in := []HistoryEntry{entryAt("c", 300, 0), entryAt("a", 100, 0), entryAt("b1", 200, 0), entryAt("b2", 200, 0)}
	got := SortChronological(in)
	want := []string{"a", "b1", "b2", "c"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: got %s want %s", i, got[i].ID, id)
		}
	}
	if in[0].ID != "c" {
		t.Fatalf("input slice was reordered")
	}
}

func TestMonthOverMonth(t *testing.T) {
	cases := []struct {
		name        string
		history     []HistoryEntry
		amount      float64
		hasPrevious bool
	}{
		{"empty", nil, 0, false},
		{"single entry uses zero baseline", []HistoryEntry{entryAt("a", 1, 5000)}, 5000, false},
		{"gain", []HistoryEntry{entryAt("a", 1, 5000), entryAt("b", 2, 6500)}, 1500, true},
		{"loss", []HistoryEntry{entryAt("a", 1, 5000), entryAt("b", 2, 4200.5)}, -799.5, true},
		{"latest by timestamp not insertion", []HistoryEntry{entryAt("b", 20, 900), entryAt("a", 10, 1000)}, -100, true},
		{"only two newest count", []HistoryEntry{entryAt("a", 1, 1), entryAt("b", 2, 100), entryAt("c", 3, 130)}, 30, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := MonthOverMonth(tc.history)
			if d.Amount != tc.amount || d.HasPrevious != tc.hasPrevious {
				t.Fatalf("got %+v, want amount=%v hasPrevious=%v", d, tc.amount, tc.hasPrevious)
			}
			if d.Positive() != (tc.amount >= 0) {
				t.Fatalf("Positive()=%v for %v", d.Positive(), tc.amount)
			}
		})
	}
}

func TestLatestBalances(t *testing.T) {
	if got := LatestBalances(nil); got != (BalanceSnapshot{}) {
		t.Fatalf("expected zero snapshot, got %+v", got)
	}
	history := []HistoryEntry{
		{ID: "new", Timestamp: 2, Balances: BalanceSnapshot{Cash: 2}},
		{ID: "old", Timestamp: 1, Balances: BalanceSnapshot{Cash: 1}},
	}
	if got := LatestBalances(history); got.Cash != 2 {
		t.Fatalf("expected newest balances, got %+v", got)
	}
}

func TestRecent(t *testing.T) {
	var history []HistoryEntry
	for i := 8; i >= 1; i-- {
		history = append(history, entryAt(string(rune('a'+i)), int64(i), float64(i)))
	}
	got := Recent(history, 6)
	if len(got) != 6 {
		t.Fatalf("expected 6 entries, got %d", len(got))
	}
	if got[0].Timestamp != 3 || got[5].Timestamp != 8 {
		t.Fatalf("expected timestamps 3..8, got %d..%d", got[0].Timestamp, got[5].Timestamp)
	}
	if n := len(Recent(history[:2], 6)); n != 2 {
		t.Fatalf("short history should be returned whole, got %d", n)
	}
}
