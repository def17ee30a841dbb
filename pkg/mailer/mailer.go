// Package mailer sends best-effort transactional email over SMTP. Delivery
// failures are logged and never propagated; mail must not affect the flows
// that trigger it.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Config holds SMTP connection settings. An empty Host disables sending.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Mailer delivers plain-text mail via smtp.SendMail.
type Mailer struct {
	cfg Config
}

// New creates a Mailer. When cfg.Host is empty every send is a logged no-op.
func New(cfg Config) *Mailer {
	return &Mailer{cfg: cfg}
}

// Send delivers one message. Errors are logged, not returned.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) {
	lg := zctx.From(ctx)
	if m.cfg.Host == "" {
		lg.Debug("mailer disabled, dropping message", zap.String("to", to))
		return
	}

	message := []byte("To: " + to + "\r\n" +
		"From: " + m.cfg.From + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := smtp.SendMail(m.cfg.Host+":"+m.cfg.Port, auth, m.cfg.From, []string{to}, message); err != nil {
		lg.Warn("sending mail failed", zap.String("to", to), zap.Error(err))
		return
	}
	lg.Debug("mail sent", zap.String("to", to))
}

// OrderMailer formats order notifications on top of a Mailer.
type OrderMailer struct {
	mailer *Mailer
}

// NewOrderMailer creates an OrderMailer.
func NewOrderMailer(m *Mailer) *OrderMailer {
	return &OrderMailer{mailer: m}
}

// OrderPlaced sends the order confirmation.
func (m *OrderMailer) OrderPlaced(ctx context.Context, email, orderID string) {
	body := fmt.Sprintf("Thank you for your order! Your order ID is %s. We are processing it now.", orderID)
	m.mailer.Send(ctx, email, "Order Confirmation", body)
}
