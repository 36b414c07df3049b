package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"monthlynet/internal/amqp"
	"monthlynet/internal/core"
	"monthlynet/internal/log"
	"monthlynet/internal/store"

	"github.com/google/uuid"
)

// BillInput is a bill as submitted by the form, before parsing.
type BillInput struct {
	Name   string
	Amount string
	DueDay string
}

// BillService manages the recurring bill checklist.
type BillService struct {
	bills  store.BillStore
	events EventPublisher
	logger *log.Logger

	now   func() time.Time
	newID func() string
}

func NewBillService(bills store.BillStore, events EventPublisher, logger *log.Logger) *BillService {
	return &BillService{
		bills:  bills,
		events: events,
		logger: componentLogger(logger, log.ComponentBills),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// List returns bills ordered by due day.
func (s *BillService) List(ctx context.Context) ([]core.Bill, error) {
	bills, err := s.bills.ListBills(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return core.SortBillsByDueDay(bills), nil
}

// Add parses and validates in, then stores a new unpaid bill.
func (s *BillService) Add(ctx context.Context, in BillInput) (core.Bill, error) {
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Bill{}, err
	}
	day, err := strconv.Atoi(strings.TrimSpace(in.DueDay))
	if err != nil {
		return core.Bill{}, core.ErrInvalidDueDay
	}

	b := core.Bill{
		ID:     s.newID(),
		Name:   strings.TrimSpace(in.Name),
		Amount: amount,
		DueDay: day,
	}
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	if err := s.bills.AddBill(ctx, b); err != nil {
		return core.Bill{}, fmt.Errorf("add bill: %w", err)
	}
	s.logChange(ctx, log.OpCreate, b)
	return b, nil
}

// Toggle flips the paid flag of the bill with id.
func (s *BillService) Toggle(ctx context.Context, id string) (core.Bill, error) {
	b, err := s.bills.ToggleBillPaid(ctx, id)
	if err != nil {
		return core.Bill{}, err
	}
	s.logChange(ctx, log.OpToggle, b)
	return b, nil
}

// Delete removes the bill with id.
func (s *BillService) Delete(ctx context.Context, id string) error {
	if err := s.bills.DeleteBill(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Bill deleted", log.FieldOperation, log.OpDelete, log.FieldBillID, id)
	return nil
}

// ResetMonth marks every bill unpaid.
func (s *BillService) ResetMonth(ctx context.Context) error {
	if err := s.bills.ResetBills(ctx); err != nil {
		return fmt.Errorf("reset bills: %w", err)
	}
	count := 0
	if bills, err := s.bills.ListBills(ctx); err == nil {
		count = len(bills)
	}
	s.logger.InfoContext(ctx, "Bills reset", log.FieldOperation, log.OpReset, "count", count)
	publish(ctx, s.events, s.logger, amqp.EventBillsReset, amqp.BillsReset{
		Month:  s.now().Format("2006-01"),
		Reason: amqp.ResetReasonManual,
		Count:  count,
	})
	return nil
}

// Summary aggregates paid and unpaid totals.
func (s *BillService) Summary(ctx context.Context) (core.BillSummary, error) {
	bills, err := s.bills.ListBills(ctx)
	if err != nil {
		return core.BillSummary{}, fmt.Errorf("list bills: %w", err)
	}
	return core.SummarizeBills(bills), nil
}

func (s *BillService) logChange(ctx context.Context, op string, b core.Bill) {
	log.NewStructuredLogger(s.logger).LogBillChanged(ctx, op, b.ID, b.Name, b.Amount, b.DueDay)
}
