package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// SortBillsByDueDay returns a copy ordered by due day.
func SortBillsByDueDay(bills []Bill) []Bill {
	out := make([]Bill, len(bills))
	copy(out, bills)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDay < out[j].DueDay
	})
	return out
}

// ResetBills returns a copy with every bill marked unpaid.
func ResetBills(bills []Bill) []Bill {
	out := make([]Bill, len(bills))
	for i, b := range bills {
		b.IsPaid = false
		out[i] = b
	}
	return out
}

// BillSummary aggregates the bill list for display.
type BillSummary struct {
	Count       int
	Paid        int
	Total       float64
	UnpaidTotal float64
}

func SummarizeBills(bills []Bill) BillSummary {
	var total, unpaid decimal.Decimal
	s := BillSummary{Count: len(bills)}
	for _, b := range bills {
		total = total.Add(dec(b.Amount))
		if b.IsPaid {
			s.Paid++
		} else {
			unpaid = unpaid.Add(dec(b.Amount))
		}
	}
	s.Total = total.InexactFloat64()
	s.UnpaidTotal = unpaid.InexactFloat64()
	return s
}

// DueDate returns the date the bill falls due in the month of now. Due days
// past the end of the month clamp to its last day.
func (b Bill) DueDate(now time.Time) time.Time {
	lastDay := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day()
	day := b.DueDay
	if day > lastDay {
		day = lastDay
	}
	return time.Date(now.Year(), now.Month(), day, 0, 0, 0, 0, now.Location())
}

// DueWithin returns the unpaid bills whose due date in the current month
// lies between today and today+days inclusive, ordered by due day.
func DueWithin(bills []Bill, now time.Time, days int) []Bill {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	horizon := today.AddDate(0, 0, days)
	var out []Bill
	for _, b := range SortBillsByDueDay(bills) {
		if b.IsPaid {
			continue
		}
		due := b.DueDate(now)
		if !due.Before(today) && !due.After(horizon) {
			out = append(out, b)
		}
	}
	return out
}
