// Package notify delivers bill reminders by email.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"monthlynet/internal/core"
	"monthlynet/internal/log"

	"github.com/jordan-wright/email"
)

// Reminder is one unpaid bill coming due.
type Reminder struct {
	Bill     core.Bill
	DueDate  string // YYYY-MM-DD
	DaysLeft int
}

// SMTPConfig holds the mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	To       []string
}

// sendFunc matches (*email.Email).Send so tests can capture messages.
type sendFunc func(e *email.Email, addr string, auth smtp.Auth) error

// Sender emails reminder digests over SMTP.
type Sender struct {
	cfg    SMTPConfig
	logger *log.Logger
	send   sendFunc
}

// NewSender creates a new email sender
func NewSender(cfg SMTPConfig, logger *log.Logger) *Sender {
	if logger == nil {
		logger = log.New(log.Config{Component: log.ComponentNotify})
	}
	return &Sender{
		cfg:    cfg,
		logger: logger.WithComponent(log.ComponentNotify),
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// SendReminders mails one digest listing every reminder. An empty list sends nothing.
func (s *Sender) SendReminders(ctx context.Context, reminders []Reminder) error {
	if len(reminders) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = s.cfg.To
	e.Subject = ReminderSubject(reminders)
	e.Text = []byte(ReminderBody(reminders))

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.ErrorContext(ctx, "Failed to send reminder email",
			log.FieldOperation, log.OpRemind, log.FieldError, err, "to", strings.Join(s.cfg.To, ","))
		return fmt.Errorf("failed to send reminder email: %w", err)
	}

	s.logger.InfoContext(ctx, "Reminder email sent",
		log.FieldOperation, log.OpRemind, "bills", len(reminders), "subject", e.Subject)
	return nil
}

// ReminderSubject names the single bill or counts several.
func ReminderSubject(reminders []Reminder) string {
	if len(reminders) == 1 {
		return fmt.Sprintf("Upcoming bill: %s", reminders[0].Bill.Name)
	}
	return fmt.Sprintf("%d upcoming bills", len(reminders))
}

// ReminderBody renders the plain-text digest.
func ReminderBody(reminders []Reminder) string {
	var b strings.Builder
	b.WriteString("Hello,\n\nThe following bills are still unpaid:\n\n")
	var total float64
	for _, r := range reminders {
		fmt.Fprintf(&b, "  - %s: %s due %s (%s)\n",
			r.Bill.Name, core.FormatMoney(r.Bill.Amount), r.DueDate, daysLeft(r.DaysLeft))
		total += r.Bill.Amount
	}
	fmt.Fprintf(&b, "\nTotal due: %s\n", core.FormatMoney(total))
	b.WriteString("\nMark them as paid in MonthlyNet once settled.\n")
	return b.String()
}

func daysLeft(n int) string {
	switch n {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", n)
	}
}
