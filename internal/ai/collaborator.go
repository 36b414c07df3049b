// Package ai turns free text into balance updates and history into short
// written insights. Every call degrades to a fixed fallback instead of failing.
package ai

import (
	"context"

	"monthlynet/internal/core"
)

// Collaborator is the language-model dependency of the app.
type Collaborator interface {
	// ParseBalances extracts mentioned categories from text. Unknown or
	// failed extractions yield an empty result.
	ParseBalances(ctx context.Context, text string) core.ParsedBalances
	// GenerateInsights summarises the trend of history.
	GenerateInsights(ctx context.Context, history []core.HistoryEntry) core.InsightResponse
	// Enabled reports whether calls can reach a model.
	Enabled() bool
}

// MinInsightEntries is the history length below which no model call is made.
const MinInsightEntries = 2

// InsightWindow is how many of the newest entries are sent for analysis.
const InsightWindow = 6

var (
	NotEnoughDataInsight = core.InsightResponse{
		Summary:       "Not enough data for insights yet.",
		Projection:    "Keep tracking to see projections.",
		ActionableTip: "Update your balances monthly for best results.",
	}
	UnavailableInsight = core.InsightResponse{
		Summary:       "Could not generate insights at this time.",
		Projection:    "",
		ActionableTip: "Check your internet connection or API key.",
	}
)

// Disabled is used when no API key is configured.
type Disabled struct{}

var _ Collaborator = Disabled{}

func (Disabled) ParseBalances(context.Context, string) core.ParsedBalances {
	return core.ParsedBalances{}
}

func (Disabled) GenerateInsights(context.Context, []core.HistoryEntry) core.InsightResponse {
	return NotEnoughDataInsight
}

func (Disabled) Enabled() bool { return false }
