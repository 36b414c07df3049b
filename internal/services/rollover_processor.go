package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"monthlynet/internal/amqp"
	"monthlynet/internal/core"
	"monthlynet/internal/log"
	"monthlynet/internal/notify"
	"monthlynet/internal/store"
)

// ReminderSender delivers a batch of reminders. *notify.Sender implements it.
type ReminderSender interface {
	SendReminders(ctx context.Context, reminders []notify.Reminder) error
}

// RolloverOptions configures the bill worker's periodic run.
type RolloverOptions struct {
	// AutoReset marks every bill unpaid once per calendar month.
	AutoReset bool
	// ReminderDays is the look-ahead for unpaid bills. Zero disables reminders.
	ReminderDays int
}

// RolloverResult reports what a single run did.
type RolloverResult struct {
	Reset     bool
	Reminders int
}

// RolloverProcessor resets bills at the start of each month and reminds the
// user about unpaid bills that fall due soon.
type RolloverProcessor struct {
	bills  store.BillStore
	state  store.StateStore
	sender ReminderSender
	events EventPublisher
	opts   RolloverOptions
	logger *log.Logger

	resetChecker  DuenessChecker
	remindChecker DuenessChecker

	mu           sync.Mutex
	lastReminder time.Time
}

// NewRolloverProcessor wires the processor. sender and events may be nil.
func NewRolloverProcessor(bills store.BillStore, state store.StateStore, sender ReminderSender,
	events EventPublisher, opts RolloverOptions, logger *log.Logger) *RolloverProcessor {
	return &RolloverProcessor{
		bills:         bills,
		state:         state,
		sender:        sender,
		events:        events,
		opts:          opts,
		logger:        componentLogger(logger, log.ComponentWorker),
		resetChecker:  MonthlyChecker{},
		remindChecker: DailyChecker{},
	}
}

// Process runs one pass. Overlapping calls are serialised.
func (p *RolloverProcessor) Process(ctx context.Context, now time.Time) (RolloverResult, error) {
	if p.bills == nil || p.state == nil {
		return RolloverResult{}, fmt.Errorf("processor not properly initialized")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	var res RolloverResult
	if p.opts.AutoReset {
		reset, err := p.rollover(ctx, now)
		if err != nil {
			return res, err
		}
		res.Reset = reset
	}

	n, err := p.remind(ctx, now)
	res.Reminders = n
	if err != nil {
		return res, err
	}

	p.logger.InfoContext(ctx, "Bill worker run complete",
		"reset", res.Reset,
		"reminders", res.Reminders,
		"run_date", now.Format("2006-01-02"))
	return res, nil
}

// rollover resets bills when the month changed since the last reset. The
// very first run only records a baseline so paid flags set before the
// worker existed survive.
func (p *RolloverProcessor) rollover(ctx context.Context, now time.Time) (bool, error) {
	last, err := p.state.LastBillReset(ctx)
	if err != nil {
		return false, fmt.Errorf("read last reset: %w", err)
	}
	if !p.resetChecker.IsDue(last, now, 1) {
		return false, nil
	}

	if last.IsZero() {
		if err := p.state.SetLastBillReset(ctx, now); err != nil {
			return false, fmt.Errorf("record baseline reset: %w", err)
		}
		p.logger.InfoContext(ctx, "Recorded initial bill reset baseline", "month", now.Format("2006-01"))
		return false, nil
	}

	if err := p.bills.ResetBills(ctx); err != nil {
		return false, fmt.Errorf("reset bills: %w", err)
	}
	if err := p.state.SetLastBillReset(ctx, now); err != nil {
		// Bills are reset; a retry would only reset them again.
		p.logger.ErrorContext(ctx, "Failed to record bill reset", log.FieldError, err)
	}

	count := 0
	if bills, err := p.bills.ListBills(ctx); err == nil {
		count = len(bills)
	}
	p.logger.InfoContext(ctx, "Bills reset for new month",
		log.FieldOperation, log.OpReset, "month", now.Format("2006-01"), "count", count)
	publish(ctx, p.events, p.logger, amqp.EventBillsReset, amqp.BillsReset{
		Month:  now.Format("2006-01"),
		Reason: amqp.ResetReasonRollover,
		Count:  count,
	})
	return true, nil
}

// remind emits at most one batch of reminders per day.
func (p *RolloverProcessor) remind(ctx context.Context, now time.Time) (int, error) {
	if p.opts.ReminderDays <= 0 || (p.sender == nil && p.events == nil) {
		return 0, nil
	}
	if !p.remindChecker.IsDue(p.lastReminder, now, 0) {
		return 0, nil
	}

	bills, err := p.bills.ListBills(ctx)
	if err != nil {
		return 0, fmt.Errorf("list bills: %w", err)
	}
	reminders := BuildReminders(bills, now, p.opts.ReminderDays)
	if len(reminders) == 0 {
		p.lastReminder = now
		return 0, nil
	}

	for _, r := range reminders {
		publish(ctx, p.events, p.logger, amqp.EventBillReminder, ReminderEvent(r))
	}
	if p.sender != nil {
		if err := p.sender.SendReminders(ctx, reminders); err != nil {
			return 0, fmt.Errorf("send reminders: %w", err)
		}
	}

	p.lastReminder = now
	p.logger.InfoContext(ctx, "Bill reminders emitted",
		log.FieldOperation, log.OpRemind, "count", len(reminders))
	return len(reminders), nil
}

// BuildReminders lists unpaid bills due within days of now.
func BuildReminders(bills []core.Bill, now time.Time, days int) []notify.Reminder {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var out []notify.Reminder
	for _, b := range core.DueWithin(bills, now, days) {
		due := b.DueDate(now)
		out = append(out, notify.Reminder{
			Bill:     b,
			DueDate:  due.Format("2006-01-02"),
			DaysLeft: int(math.Round(due.Sub(today).Hours() / 24)),
		})
	}
	return out
}

// ReminderEvent converts a reminder into its event payload.
func ReminderEvent(r notify.Reminder) amqp.BillReminder {
	return amqp.BillReminder{
		BillID:   r.Bill.ID,
		Name:     r.Bill.Name,
		Amount:   r.Bill.Amount,
		DueDay:   r.Bill.DueDay,
		DueDate:  r.DueDate,
		DaysLeft: r.DaysLeft,
	}
}

// ReminderHandler returns an AMQP handler that emails each bill.reminder
// event it receives and ignores other event types.
func ReminderHandler(sender ReminderSender, logger *log.Logger) amqp.Handler {
	logger = componentLogger(logger, log.ComponentNotify)
	return func(ctx context.Context, ev *amqp.Event) error {
		if ev.Type != amqp.EventBillReminder {
			logger.DebugContext(ctx, "Ignoring event", "type", ev.Type, "event_id", ev.ID)
			return nil
		}
		var payload amqp.BillReminder
		if err := ev.Decode(&payload); err != nil {
			// Requeueing a malformed payload would loop forever.
			logger.ErrorContext(ctx, "Dropping malformed reminder", "event_id", ev.ID, log.FieldError, err)
			return nil
		}
		return sender.SendReminders(ctx, []notify.Reminder{{
			Bill: core.Bill{
				ID:     payload.BillID,
				Name:   payload.Name,
				Amount: payload.Amount,
				DueDay: payload.DueDay,
			},
			DueDate:  payload.DueDate,
			DaysLeft: payload.DaysLeft,
		}})
	}
}
