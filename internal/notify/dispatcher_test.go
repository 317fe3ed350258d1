package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/printflow/internal/common"
	"github.com/ternarybob/printflow/internal/models"
)

type fakeMailer struct {
	sent    []string
	subject string
	body    string
	sendErr error
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, to)
	m.subject = subject
	m.body = htmlBody
	return nil
}

func (m *fakeMailer) IsConfigured() bool { return true }

type fakePublisher struct {
	rooms      []string
	events     []string
	publishErr error
}

func (p *fakePublisher) Publish(room, event string, payload any) error {
	if p.publishErr != nil {
		return p.publishErr
	}
	p.rooms = append(p.rooms, room)
	p.events = append(p.events, event)
	return nil
}

func testConfig() common.NotificationConfig {
	return common.NotificationConfig{
		SMTPHost:            "mail.example.com",
		SMTPFrom:            "noreply@example.com",
		ProductionTeamEmail: "production@example.com",
	}
}

func TestSendEmail(t *testing.T) {
	mailer := &fakeMailer{}
	d := NewDispatcher(mailer, nil, testConfig(), common.GetLogger())

	ok := d.SendEmail(context.Background(), "customer@example.com", "Hello", "<p>Hi</p>")
	assert.True(t, ok)
	assert.Equal(t, []string{"customer@example.com"}, mailer.sent)
}

func TestSendEmail_TransportFailureReturnsFalse(t *testing.T) {
	mailer := &fakeMailer{sendErr: errors.New("connection refused")}
	d := NewDispatcher(mailer, nil, testConfig(), common.GetLogger())

	ok := d.SendEmail(context.Background(), "customer@example.com", "Hello", "<p>Hi</p>")
	assert.False(t, ok)
}

func TestSendEmail_NoRecipient(t *testing.T) {
	mailer := &fakeMailer{}
	d := NewDispatcher(mailer, nil, testConfig(), common.GetLogger())

	assert.False(t, d.SendEmail(context.Background(), "", "Hello", "<p>Hi</p>"))
	assert.Empty(t, mailer.sent)
}

func TestSendRoomEvent_NoTransportAttached(t *testing.T) {
	d := NewDispatcher(&fakeMailer{}, nil, testConfig(), common.GetLogger())

	// Degraded state, not an error
	assert.False(t, d.SendRoomEvent("production-team", "job_created", nil))
}

func TestSendRoomEvent_AttachRealtime(t *testing.T) {
	d := NewDispatcher(&fakeMailer{}, nil, testConfig(), common.GetLogger())
	publisher := &fakePublisher{}
	d.AttachRealtime(publisher)

	assert.True(t, d.SendRoomEvent("production-team", "job_created", map[string]any{"jobNumber": "JOB-2603-0001"}))
	assert.Equal(t, []string{"production-team"}, publisher.rooms)
	assert.Equal(t, []string{"job_created"}, publisher.events)
}

func TestNotifyProductionTeam_AttemptsBothChannels(t *testing.T) {
	mailer := &fakeMailer{}
	publisher := &fakePublisher{publishErr: errors.New("no subscribers")}
	d := NewDispatcher(mailer, publisher, testConfig(), common.GetLogger())

	// Room broadcast fails but the email lands: overall success
	ok := d.NotifyProductionTeam(context.Background(), "JOB-2603-0001", map[string]any{"title": "Production run"})
	assert.True(t, ok)
	assert.Equal(t, []string{"production@example.com"}, mailer.sent)
}

func TestNotifyProductionTeam_BothChannelsFail(t *testing.T) {
	mailer := &fakeMailer{sendErr: errors.New("smtp down")}
	publisher := &fakePublisher{publishErr: errors.New("hub closed")}
	d := NewDispatcher(mailer, publisher, testConfig(), common.GetLogger())

	assert.False(t, d.NotifyProductionTeam(context.Background(), "JOB-2603-0001", nil))
}

func TestSendOrderConfirmationEmail_EscapesUserText(t *testing.T) {
	mailer := &fakeMailer{}
	d := NewDispatcher(mailer, nil, testConfig(), common.GetLogger())

	customer := &models.Customer{Name: `<script>alert("x")</script>`, Email: "customer@example.com"}
	order := &models.Order{
		OrderNumber: "ORD-2603-0001",
		Items: []models.LineItem{
			{Description: "Flyers <b>bold</b>", Quantity: 100, UnitPrice: 0.5, Total: 50},
		},
		TotalAmount: 50,
	}

	assert.True(t, d.SendOrderConfirmationEmail(context.Background(), customer, order))
	assert.NotContains(t, mailer.body, "<script>")
	assert.Contains(t, mailer.body, "&lt;script&gt;")
	assert.NotContains(t, mailer.body, "<b>bold</b>")
	assert.Contains(t, mailer.body, "ORD-2603-0001")
}

func TestSendProductionNotificationEmail(t *testing.T) {
	mailer := &fakeMailer{}
	d := NewDispatcher(mailer, nil, testConfig(), common.GetLogger())

	job := &models.Job{
		JobNumber:       "JOB-2603-0001",
		Title:           "Production for order ORD-2603-0001",
		DueDate:         time.Now().Add(7 * 24 * time.Hour),
		TotalAmount:     160,
		ProductionNotes: "Matte finish",
	}

	assert.True(t, d.SendProductionNotificationEmail(context.Background(), job))
	assert.Equal(t, []string{"production@example.com"}, mailer.sent)
	assert.Contains(t, mailer.subject, "JOB-2603-0001")
	assert.Contains(t, mailer.body, "Matte finish")
}

func TestQuoteApprovedTicketEmail(t *testing.T) {
	mailer := &fakeMailer{}
	d := NewDispatcher(mailer, nil, testConfig(), common.GetLogger())

	quote := &models.Quote{QuoteNumber: "QTE-2603-0042", TotalAmount: 160}
	order := &models.Order{OrderNumber: "ORD-2603-0001"}

	require.True(t, d.SendQuoteApprovedTicketEmail(context.Background(), quote, order, time.Now()))
	assert.Contains(t, mailer.body, "QTE-2603-0042")
	assert.Contains(t, mailer.body, "ORD-2603-0001")
}
