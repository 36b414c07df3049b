package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"monthlynet/internal/ai"
	"monthlynet/internal/amqp"
	"monthlynet/internal/core"
	"monthlynet/internal/log"
	"monthlynet/internal/notify"
	"monthlynet/internal/store/file"
)

func quietLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

type fakeCollaborator struct {
	enabled  bool
	insight  core.InsightResponse
	parsed   core.ParsedBalances
	calls    atomic.Int32
	release  chan struct{} // when set, GenerateInsights blocks until closed
	lastSeen []core.HistoryEntry
	mu       sync.Mutex
}

func (f *fakeCollaborator) ParseBalances(context.Context, string) core.ParsedBalances {
	return f.parsed
}

func (f *fakeCollaborator) GenerateInsights(_ context.Context, h []core.HistoryEntry) core.InsightResponse {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastSeen = h
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
	return f.insight
}

func (f *fakeCollaborator) Enabled() bool { return f.enabled }

var _ ai.Collaborator = (*fakeCollaborator)(nil)

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.Event
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, ev *amqp.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) types() []amqp.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []amqp.EventType
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeSender struct {
	batches [][]notify.Reminder
	err     error
}

func (f *fakeSender) SendReminders(_ context.Context, r []notify.Reminder) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, r)
	return nil
}

// failingStore wraps a memory store and fails the selected operations.
type failingStore struct {
	*file.Store
	failList      bool
	failListBills bool
	failReset     bool
}

var errStore = errors.New("store unavailable")

func (f *failingStore) List(ctx context.Context) ([]core.HistoryEntry, error) {
	if f.failList {
		return nil, errStore
	}
	return f.Store.List(ctx)
}

func (f *failingStore) ListBills(ctx context.Context) ([]core.Bill, error) {
	if f.failListBills {
		return nil, errStore
	}
	return f.Store.ListBills(ctx)
}

func (f *failingStore) ResetBills(ctx context.Context) error {
	if f.failReset {
		return errStore
	}
	return f.Store.ResetBills(ctx)
}

func sequentialIDs(prefix string) func() string {
	var n atomic.Int32
	return func() string {
		return prefix + string(rune('a'+n.Add(1)-1))
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
