// Package mail delivers bill emails to split participants.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/shopspring/decimal"
)

// Bill is the content of one bill email.
type Bill struct {
	To              string
	ParticipantName string
	StoreName       string
	Amount          decimal.Decimal
	Items           []string
}

// Mailer sends bill emails.
type Mailer interface {
	SendBill(ctx context.Context, bill Bill) error
}

// SMTPConfig holds the SMTP connection settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends bills through a plain SMTP relay.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer creates a mailer for the given relay.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// SendBill formats and delivers a bill.
func (m *SMTPMailer) SendBill(ctx context.Context, bill Bill) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if bill.To == "" {
		return fmt.Errorf("bill has no recipient")
	}

	msg := buildMessage(m.cfg.From, bill)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{bill.To}, msg); err != nil {
		return fmt.Errorf("failed to send bill to %s: %w", bill.To, err)
	}

	return nil
}

func buildMessage(from string, bill Bill) []byte {
	subject := "Your share of the bill"
	if bill.StoreName != "" {
		subject = fmt.Sprintf("Your share of the bill from %s", bill.StoreName)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", bill.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")

	fmt.Fprintf(&b, "Hi %s,\r\n\r\n", bill.ParticipantName)
	fmt.Fprintf(&b, "You owe %s for:\r\n", bill.Amount.StringFixed(2))
	for _, item := range bill.Items {
		fmt.Fprintf(&b, "  - %s\r\n", item)
	}
	b.WriteString("\r\nSent by SmartBill.\r\n")

	return []byte(b.String())
}

// LogMailer writes bills to the log instead of sending them. Used in
// development and tests when no SMTP relay is configured.
type LogMailer struct{}

// SendBill logs the bill.
func (LogMailer) SendBill(ctx context.Context, bill Bill) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	slog.Info("Bill email (dry run)",
		"to", bill.To,
		"participant", bill.ParticipantName,
		"amount", bill.Amount.StringFixed(2),
		"items", len(bill.Items),
	)
	return nil
}
