package notify

import (
	"context"
	"errors"
	"io"
	"net/smtp"
	"strings"
	"testing"

	"monthlynet/internal/core"
	"monthlynet/internal/log"

	"github.com/jordan-wright/email"
)

func testSender(send sendFunc) *Sender {
	s := NewSender(SMTPConfig{
		Host: "smtp.example.com",
		Port: "587",
		From: "monthlynet@example.com",
		To:   []string{"me@example.com"},
	}, log.New(log.Config{Output: io.Discard}))
	s.send = send
	return s
}

func reminders() []Reminder {
	return []Reminder{
		{Bill: core.Bill{ID: "1", Name: "Rent", Amount: 1200, DueDay: 1}, DueDate: "2025-05-01", DaysLeft: 0},
		{Bill: core.Bill{ID: "2", Name: "Phone", Amount: 45.5, DueDay: 2}, DueDate: "2025-05-02", DaysLeft: 1},
		{Bill: core.Bill{ID: "3", Name: "Gym", Amount: 30, DueDay: 4}, DueDate: "2025-05-04", DaysLeft: 3},
	}
}

func TestReminderBody(t *testing.T) {
	body := ReminderBody(reminders())
	for _, want := range []string{
		"Rent: $1,200 due 2025-05-01 (today)",
		"Phone: $45.50 due 2025-05-02 (tomorrow)",
		"Gym: $30 due 2025-05-04 (in 3 days)",
		"Total due: $1,275.50",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestReminderSubject(t *testing.T) {
	if got := ReminderSubject(reminders()[:1]); got != "Upcoming bill: Rent" {
		t.Errorf("single subject = %q", got)
	}
	if got := ReminderSubject(reminders()); got != "3 upcoming bills" {
		t.Errorf("digest subject = %q", got)
	}
}

func TestSendReminders(t *testing.T) {
	var sent *email.Email
	var gotAddr string
	s := testSender(func(e *email.Email, addr string, auth smtp.Auth) error {
		sent, gotAddr = e, addr
		if auth != nil {
			t.Errorf("auth should be nil without a username")
		}
		return nil
	})

	if err := s.SendReminders(context.Background(), nil); err != nil || sent != nil {
		t.Fatalf("empty list should send nothing, err=%v", err)
	}
	if err := s.SendReminders(context.Background(), reminders()); err != nil {
		t.Fatalf("SendReminders() error = %v", err)
	}
	if gotAddr != "smtp.example.com:587" {
		t.Errorf("addr = %q", gotAddr)
	}
	if sent.From != "monthlynet@example.com" || len(sent.To) != 1 || sent.Subject != "3 upcoming bills" {
		t.Errorf("unexpected message %+v", sent)
	}
}

func TestSendRemindersError(t *testing.T) {
	s := testSender(func(*email.Email, string, smtp.Auth) error {
		return errors.New("relay refused")
	})
	err := s.SendReminders(context.Background(), reminders())
	if err == nil || !strings.Contains(err.Error(), "relay refused") {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
}
