package email

import (
	"context"
	"errors"
	"testing"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func orderCreated() kafka.BookingEvent {
	return kafka.BookingEvent{
		Type:      "order_created",
		SessionID: "s-1",
		OrderID:   "ord-1",
		Reference: "ABC123",
		Email:     "jane@example.com",
		Total:     2600,
		Currency:  "USD",
	}
}

func TestSender_SendOrderCreated(t *testing.T) {
	d := &fakeDialer{}
	s := NewSender(config.SMTPConfig{From: "bookings@example.com"}, zap.NewNop(), WithDialer(d))

	require.NoError(t, s.Send(context.Background(), orderCreated()))
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"jane@example.com"}, d.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"bookings@example.com"}, d.sent[0].GetHeader("From"))
	assert.Equal(t, []string{"Booking confirmed: ABC123"}, d.sent[0].GetHeader("Subject"))
}

func TestSender_IgnoresOtherEvents(t *testing.T) {
	d := &fakeDialer{}
	s := NewSender(config.SMTPConfig{}, zap.NewNop(), WithDialer(d))

	event := orderCreated()
	event.Type = "price_confirmed"
	require.NoError(t, s.Send(context.Background(), event))

	event = orderCreated()
	event.Email = ""
	require.NoError(t, s.Send(context.Background(), event))
	assert.Empty(t, d.sent)
}

func TestSender_DialFailure(t *testing.T) {
	d := &fakeDialer{err: errors.New("connection refused")}
	s := NewSender(config.SMTPConfig{}, zap.NewNop(), WithDialer(d))

	err := s.Send(context.Background(), orderCreated())
	assert.ErrorContains(t, err, "jane@example.com")
}

func TestSender_NoSMTPHost(t *testing.T) {
	s := NewSender(config.SMTPConfig{}, zap.NewNop())
	assert.Nil(t, s.dialer)
	assert.NoError(t, s.Send(context.Background(), orderCreated()))
}
