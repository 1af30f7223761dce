package email

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

const eventOrderCreated = "order_created"

type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type Sender struct {
	dialer Dialer
	from   string
	logger *zap.Logger
}

type Option func(*Sender)

func WithDialer(d Dialer) Option {
	return func(s *Sender) { s.dialer = d }
}

// NewSender returns a sender backed by SMTP. Without a host it only logs.
func NewSender(cfg config.SMTPConfig, logger *zap.Logger, opts ...Option) *Sender {
	s := &Sender{from: cfg.From, logger: logger}
	if cfg.Host != "" {
		s.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send mails the contact a confirmation for created orders. Other event
// types are ignored.
func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	if event.Type != eventOrderCreated {
		return nil
	}
	if event.Email == "" {
		s.logger.Warn("order event without contact email", zap.String("session_id", event.SessionID))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := s.compose(event)
	if s.dialer == nil {
		s.logger.Info("smtp disabled, skipping confirmation email",
			zap.String("to", event.Email),
			zap.String("reference", event.Reference),
		)
		return nil
	}
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send confirmation to %s: %w", event.Email, err)
	}
	s.logger.Info("confirmation email sent", zap.String("reference", event.Reference))
	return nil
}

func (s *Sender) compose(event kafka.BookingEvent) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", event.Email)
	m.SetHeader("Subject", fmt.Sprintf("Booking confirmed: %s", event.Reference))
	m.SetBody("text/plain", fmt.Sprintf(
		"Your booking is confirmed.\n\nReference: %s\nOrder: %s\nTotal: %.2f %s\n",
		event.Reference, event.OrderID, event.Total, event.Currency,
	))
	return m
}
