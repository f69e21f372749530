// Package mailer renders and delivers transactional email.
package mailer

import (
	"context" // Cancellation before dialing
	"fmt"     // Error wrapping

	"github.com/sirupsen/logrus" // Structured logging
	mail "gopkg.in/mail.v2"      // SMTP client
)

// Message is one outgoing email
type Message struct {
	To      string
	Subject string
	Text    string // Plaintext body
	HTML    string // Optional HTML alternative
}

// Sender delivers a message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds the relay settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers mail through an SMTP relay
type SMTPSender struct {
	dialer *mail.Dialer
	from   string
}

// NewSMTPSender returns a sender for the given relay
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password) // STARTTLS is used when offered
	return &SMTPSender{dialer: d, from: cfg.From}
}

// Send dials the relay and delivers msg
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err // Request already gone
	}
	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}
	if err := s.dialer.DialAndSend(m); err != nil {
		logrus.WithFields(logrus.Fields{
			"to":    msg.To,
			"error": err.Error(),
		}).Error("Email sending failed")
		return fmt.Errorf("send email: %w", err)
	}
	logrus.WithField("to", msg.To).Info("Email sent")
	return nil
}

// LogSender writes messages to the log instead of sending them, for local development
type LogSender struct{}

// Send logs the message
func (LogSender) Send(_ context.Context, msg Message) error {
	logrus.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info(msg.Text)
	return nil
}
