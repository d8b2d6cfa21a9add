package email

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"sync"
	"time"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
	gomail "gopkg.in/mail.v2"
)

// SMTPTransport sends through an SMTP relay with mandatory STARTTLS.
type SMTPTransport struct {
	dialer *gomail.Dialer
}

func NewSMTPTransport(host string, port int, user, password string) *SMTPTransport {
	d := gomail.NewDialer(host, port, user, password)
	d.StartTLSPolicy = gomail.MandatoryStartTLS
	d.Timeout = 15 * time.Second
	return &SMTPTransport{dialer: d}
}

func (t *SMTPTransport) Name() string { return "smtp" }

func (t *SMTPTransport) Deliver(ctx context.Context, from mail.Address, msg Message) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", from.Address, from.Name)
	to := make([]string, 0, len(msg.To))
	for _, a := range msg.To {
		to = append(to, m.FormatAddress(a.Address, a.Name))
	}
	m.SetHeader("To", to...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	done := make(chan error, 1)
	go func() { done <- t.dialer.DialAndSend(m) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendGridTransport posts to the SendGrid v3 API.
type SendGridTransport struct {
	key string
}

func NewSendGridTransport(key string) *SendGridTransport {
	return &SendGridTransport{key: key}
}

func (t *SendGridTransport) Name() string { return "sendgrid" }

func (t *SendGridTransport) prepare(from mail.Address, msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail(to.Name, to.Address))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail(from.Name, from.Address))
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}
	return m
}

func (t *SendGridTransport) Deliver(ctx context.Context, from mail.Address, msg Message) error {
	req := sendgrid.GetRequest(t.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(t.prepare(from, msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// LogTransport writes messages to the log instead of sending them.
// Delivered messages are kept for inspection.
type LogTransport struct {
	mu   sync.Mutex
	Sent []Message
}

func NewLogTransport() *LogTransport { return &LogTransport{} }

func (t *LogTransport) Name() string { return "log" }

func (t *LogTransport) Deliver(_ context.Context, from mail.Address, msg Message) error {
	t.mu.Lock()
	t.Sent = append(t.Sent, msg)
	t.mu.Unlock()
	logrus.WithFields(logrus.Fields{
		"from":    from.String(),
		"to":      joinAddresses(msg.To),
		"subject": msg.Subject,
	}).Info("email (log transport)\n" + msg.Text)
	return nil
}

// Messages returns a copy of what was delivered.
func (t *LogTransport) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Message, len(t.Sent))
	copy(out, t.Sent)
	return out
}
