package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"monthlynet/internal/ai"
	"monthlynet/internal/amqp"
	"monthlynet/internal/cache"
	"monthlynet/internal/core"
	"monthlynet/internal/log"
	"monthlynet/internal/store"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Dashboard is everything the main page renders.
type Dashboard struct {
	Current     core.HistoryEntry
	HasData     bool
	Delta       core.Delta
	History     []core.HistoryEntry // ascending by timestamp
	Bills       []core.Bill         // ordered by due day
	BillSummary core.BillSummary
	AIEnabled   bool
}

// NetWorthService records snapshots and derives the dashboard.
type NetWorthService struct {
	history  store.HistoryStore
	bills    store.BillStore
	ai       ai.Collaborator
	insights cache.Cache[core.InsightResponse]
	flight   singleflight.Group
	events   EventPublisher
	logger   *log.Logger

	now   func() time.Time
	newID func() string
}

// NewNetWorthService wires the service. insights and events may be nil.
func NewNetWorthService(history store.HistoryStore, bills store.BillStore, collab ai.Collaborator,
	insights cache.Cache[core.InsightResponse], events EventPublisher, logger *log.Logger) *NetWorthService {
	if collab == nil {
		collab = ai.Disabled{}
	}
	return &NetWorthService{
		history:  history,
		bills:    bills,
		ai:       collab,
		insights: insights,
		events:   events,
		logger:   componentLogger(logger, log.ComponentHistory),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// RecordSnapshot derives totals for s and appends it to the history.
func (s *NetWorthService) RecordSnapshot(ctx context.Context, snap core.BalanceSnapshot) (core.HistoryEntry, error) {
	if err := snap.Validate(); err != nil {
		return core.HistoryEntry{}, err
	}

	entry := core.NewHistoryEntry(s.newID(), snap, s.now())
	if err := s.history.Append(ctx, entry); err != nil {
		return core.HistoryEntry{}, fmt.Errorf("append history entry: %w", err)
	}
	if s.insights != nil {
		s.insights.Clear()
	}

	log.NewStructuredLogger(s.logger).
		LogSnapshotRecorded(ctx, entry.ID, entry.NetWorth, entry.TotalAssets, entry.TotalLiabilities)

	publish(ctx, s.events, s.logger, amqp.EventSnapshotRecorded, amqp.SnapshotRecorded{
		EntryID:          entry.ID,
		Date:             entry.Date,
		NetWorth:         entry.NetWorth,
		TotalAssets:      entry.TotalAssets,
		TotalLiabilities: entry.TotalLiabilities,
	})
	return entry, nil
}

// History returns every entry in ascending timestamp order.
func (s *NetWorthService) History(ctx context.Context) ([]core.HistoryEntry, error) {
	history, err := s.history.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return core.SortChronological(history), nil
}

// CurrentBalances returns the newest snapshot, or zeros when empty.
func (s *NetWorthService) CurrentBalances(ctx context.Context) (core.BalanceSnapshot, error) {
	history, err := s.history.List(ctx)
	if err != nil {
		return core.BalanceSnapshot{}, fmt.Errorf("list history: %w", err)
	}
	return core.LatestBalances(history), nil
}

// Dashboard loads history and bills concurrently and derives the summary.
func (s *NetWorthService) Dashboard(ctx context.Context) (Dashboard, error) {
	var (
		history []core.HistoryEntry
		bills   []core.Bill
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		history, err = s.history.List(gctx)
		if err != nil {
			return fmt.Errorf("list history: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		bills, err = s.bills.ListBills(gctx)
		if err != nil {
			return fmt.Errorf("list bills: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		History:     core.SortChronological(history),
		Bills:       core.SortBillsByDueDay(bills),
		BillSummary: core.SummarizeBills(bills),
		Delta:       core.MonthOverMonth(history),
		AIEnabled:   s.ai.Enabled(),
	}
	d.Current, d.HasData = core.Latest(history)
	return d, nil
}

// Insights returns a cached or freshly generated insight for the current
// history. Concurrent requests for the same history share one model call.
func (s *NetWorthService) Insights(ctx context.Context) (core.InsightResponse, error) {
	history, err := s.history.List(ctx)
	if err != nil {
		return core.InsightResponse{}, fmt.Errorf("list history: %w", err)
	}
	if len(history) < ai.MinInsightEntries || !s.ai.Enabled() {
		return ai.NotEnoughDataInsight, nil
	}

	latest, _ := core.Latest(history)
	key := latest.ID + ":" + strconv.Itoa(len(history))
	if s.insights != nil {
		if cached, ok := s.insights.Get(key); ok {
			s.logger.DebugContext(ctx, "Insight cache hit", log.FieldOperation, log.OpInsights, "key", key)
			return cached, nil
		}
	}

	v, _, _ := s.flight.Do(key, func() (any, error) {
		// The caller's context may be cancelled while others wait on this call.
		callCtx := context.WithoutCancel(ctx)
		resp := s.ai.GenerateInsights(callCtx, history)
		if s.insights != nil && resp != ai.UnavailableInsight {
			s.insights.Set(key, resp)
		}
		return resp, nil
	})
	return v.(core.InsightResponse), nil
}

// ParseText asks the collaborator to extract balances from free text.
func (s *NetWorthService) ParseText(ctx context.Context, text string) core.ParsedBalances {
	parsed := s.ai.ParseBalances(ctx, text)
	s.logger.InfoContext(ctx, "Parsed balance text",
		log.FieldOperation, log.OpParse, "extracted", !parsed.Empty())
	return parsed
}

// AIEnabled reports whether a model is configured.
func (s *NetWorthService) AIEnabled() bool {
	return s.ai.Enabled()
}

// MergeParsed overlays the parsed fields onto current.
func MergeParsed(current core.BalanceSnapshot, parsed core.ParsedBalances) core.BalanceSnapshot {
	return parsed.Apply(current)
}
