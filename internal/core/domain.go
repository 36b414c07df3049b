package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

type (
	// BalanceSnapshot holds one month's balances. The first four fields are
	// assets, the last three liabilities.
	BalanceSnapshot struct {
		Cash        float64 `json:"cash"`
		Savings     float64 `json:"savings"`
		Investments float64 `json:"investments"`
		RealEstate  float64 `json:"realEstate"`
		CreditCards float64 `json:"creditCards"`
		Loans       float64 `json:"loans"`
		Mortgage    float64 `json:"mortgage"`
	}

	// HistoryEntry is an immutable record of a snapshot with its derived totals.
	// Totals are computed once at creation and never recomputed.
	HistoryEntry struct {
		ID               string          `json:"id"`
		Date             string          `json:"date"`      // RFC 3339
		Timestamp        int64           `json:"timestamp"` // Unix milliseconds
		Balances         BalanceSnapshot `json:"balances"`
		NetWorth         float64         `json:"netWorth"`
		TotalAssets      float64         `json:"totalAssets"`
		TotalLiabilities float64         `json:"totalLiabilities"`
	}

	Bill struct {
		ID     string  `json:"id"`
		Name   string  `json:"name"`
		Amount float64 `json:"amount"`
		DueDay int     `json:"dueDay"` // 1-31, not checked against the calendar
		IsPaid bool    `json:"isPaid"`
	}

	InsightResponse struct {
		Summary       string `json:"summary"`
		Projection    string `json:"projection"`
		ActionableTip string `json:"actionableTip"`
	}

	// ParsedBalances is a partial snapshot extracted from free text.
	// A nil field means the text did not mention that category.
	ParsedBalances struct {
		Cash        *float64 `json:"cash,omitempty"`
		Savings     *float64 `json:"savings,omitempty"`
		Investments *float64 `json:"investments,omitempty"`
		RealEstate  *float64 `json:"realEstate,omitempty"`
		CreditCards *float64 `json:"creditCards,omitempty"`
		Loans       *float64 `json:"loans,omitempty"`
		Mortgage    *float64 `json:"mortgage,omitempty"`
	}
)

var (
	ErrNonFiniteBalance = errors.New("balance must be a finite number")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDueDay    = errors.New("due day must be between 1 and 31")
	ErrEmptyName        = errors.New("empty bill name")
	ErrNameTooLong      = errors.New("bill name too long (max 200 characters)")
	ErrBillNotFound     = errors.New("bill not found")
)

// BalanceField names a single snapshot category.
type BalanceField struct {
	Key       string // wire name
	Label     string
	Liability bool
}

// BalanceFields lists the seven categories in display order.
var BalanceFields = []BalanceField{
	{Key: "cash", Label: "Cash"},
	{Key: "savings", Label: "Savings"},
	{Key: "investments", Label: "Investments"},
	{Key: "realEstate", Label: "Real Estate"},
	{Key: "creditCards", Label: "Credit Cards", Liability: true},
	{Key: "loans", Label: "Loans", Liability: true},
	{Key: "mortgage", Label: "Mortgage", Liability: true},
}

// Get returns the value of the field with the given wire name.
func (s BalanceSnapshot) Get(key string) float64 {
	if p := s.field(key); p != nil {
		return *p
	}
	return 0
}

// Set assigns the field with the given wire name. Unknown keys are ignored.
func (s *BalanceSnapshot) Set(key string, v float64) {
	if p := s.field(key); p != nil {
		*p = v
	}
}

func (s *BalanceSnapshot) field(key string) *float64 {
	switch key {
	case "cash":
		return &s.Cash
	case "savings":
		return &s.Savings
	case "investments":
		return &s.Investments
	case "realEstate":
		return &s.RealEstate
	case "creditCards":
		return &s.CreditCards
	case "loans":
		return &s.Loans
	case "mortgage":
		return &s.Mortgage
	}
	return nil
}

func (s BalanceSnapshot) Validate() error {
	for _, f := range BalanceFields {
		v := s.Get(f.Key)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s: %w", f.Key, ErrNonFiniteBalance)
		}
	}
	return nil
}

func (b Bill) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if len(b.Name) > 200 {
		return ErrNameTooLong
	}
	if math.IsNaN(b.Amount) || math.IsInf(b.Amount, 0) || b.Amount < 0 {
		return ErrInvalidAmount
	}
	if b.DueDay < 1 || b.DueDay > 31 {
		return ErrInvalidDueDay
	}
	return nil
}

// Empty reports whether no category was extracted.
func (p ParsedBalances) Empty() bool {
	return p.Cash == nil && p.Savings == nil && p.Investments == nil && p.RealEstate == nil &&
		p.CreditCards == nil && p.Loans == nil && p.Mortgage == nil
}

// Apply overlays the extracted fields onto current and returns the result.
// Fields absent from p keep their current value.
func (p ParsedBalances) Apply(current BalanceSnapshot) BalanceSnapshot {
	out := current
	overlay := func(dst *float64, src *float64) {
		if src != nil && !math.IsNaN(*src) && !math.IsInf(*src, 0) {
			*dst = *src
		}
	}
	overlay(&out.Cash, p.Cash)
	overlay(&out.Savings, p.Savings)
	overlay(&out.Investments, p.Investments)
	overlay(&out.RealEstate, p.RealEstate)
	overlay(&out.CreditCards, p.CreditCards)
	overlay(&out.Loans, p.Loans)
	overlay(&out.Mortgage, p.Mortgage)
	return out
}

// Float returns a pointer to v, for building ParsedBalances literals.
func Float(v float64) *float64 {
	return &v
}
