package core

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Totals is the derived view of a snapshot.
type Totals struct {
	Assets      float64
	Liabilities float64
	NetWorth    float64
}

// Totals sums the asset and liability categories in decimal arithmetic and
// converts back to float64 once, so 0.1+0.2 yields 0.3. NetWorth is the float
// difference of the two stored totals so the persisted triple always satisfies
// netWorth == totalAssets - totalLiabilities.
func (s BalanceSnapshot) Totals() Totals {
	assets := dec(s.Cash).Add(dec(s.Savings)).Add(dec(s.Investments)).Add(dec(s.RealEstate)).InexactFloat64()
	liabilities := dec(s.CreditCards).Add(dec(s.Loans)).Add(dec(s.Mortgage)).InexactFloat64()
	return Totals{
		Assets:      assets,
		Liabilities: liabilities,
		NetWorth:    assets - liabilities,
	}
}

// dec converts v, mapping non-finite values to zero. Callers validate first.
func dec(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// DateLayout matches JavaScript's Date.toISOString: UTC with milliseconds.
const DateLayout = "2006-01-02T15:04:05.000Z"

// NewHistoryEntry builds an entry for s recorded at now.
func NewHistoryEntry(id string, s BalanceSnapshot, now time.Time) HistoryEntry {
	t := s.Totals()
	return HistoryEntry{
		ID:               id,
		Date:             now.UTC().Format(DateLayout),
		Timestamp:        now.UnixMilli(),
		Balances:         s,
		NetWorth:         t.NetWorth,
		TotalAssets:      t.Assets,
		TotalLiabilities: t.Liabilities,
	}
}

// RecordedAt returns the entry timestamp as a time.Time.
func (e HistoryEntry) RecordedAt() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// SortChronological returns a copy of history in ascending timestamp order.
// Entries sharing a timestamp keep their insertion order.
func SortChronological(history []HistoryEntry) []HistoryEntry {
	out := make([]HistoryEntry, len(history))
	copy(out, history)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

// Latest returns the newest entry by timestamp.
func Latest(history []HistoryEntry) (HistoryEntry, bool) {
	if len(history) == 0 {
		return HistoryEntry{}, false
	}
	sorted := SortChronological(history)
	return sorted[len(sorted)-1], true
}

// Previous returns the second newest entry by timestamp.
func Previous(history []HistoryEntry) (HistoryEntry, bool) {
	if len(history) < 2 {
		return HistoryEntry{}, false
	}
	sorted := SortChronological(history)
	return sorted[len(sorted)-2], true
}

// LatestBalances returns the newest snapshot, or the zero snapshot when
// nothing has been recorded yet.
func LatestBalances(history []HistoryEntry) BalanceSnapshot {
	if e, ok := Latest(history); ok {
		return e.Balances
	}
	return BalanceSnapshot{}
}

// Delta is the month-over-month change in net worth.
type Delta struct {
	Amount      float64
	HasPrevious bool
}

// Positive reports whether the change is zero or an increase.
func (d Delta) Positive() bool {
	return d.Amount >= 0
}

// MonthOverMonth returns latest.NetWorth minus the previous entry's net worth.
// With a single entry the previous value counts as zero.
func MonthOverMonth(history []HistoryEntry) Delta {
	cur, ok := Latest(history)
	if !ok {
		return Delta{}
	}
	prev, hasPrev := Previous(history)
	var prevNet decimal.Decimal
	if hasPrev {
		prevNet = dec(prev.NetWorth)
	}
	return Delta{
		Amount:      dec(cur.NetWorth).Sub(prevNet).InexactFloat64(),
		HasPrevious: hasPrev,
	}
}

// Recent returns the last n entries in ascending timestamp order.
func Recent(history []HistoryEntry, n int) []HistoryEntry {
	sorted := SortChronological(history)
	if n >= 0 && len(sorted) > n {
		sorted = sorted[len(sorted)-n:]
	}
	return sorted
}
