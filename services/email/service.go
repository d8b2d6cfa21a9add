package email

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"tutorlink_go/config"
	"tutorlink_go/metrics"

	"github.com/sirupsen/logrus"
)

const appName = "TutorLink"

// Message is an outgoing email. Either Template or Text must be set.
type Message struct {
	To       []mail.Address
	Subject  string
	Template string
	Data     interface{}

	Text string
	HTML string
}

// Transport delivers a rendered message.
type Transport interface {
	Deliver(ctx context.Context, from mail.Address, msg Message) error
	Name() string
}

// Service renders templates and hands messages to a transport.
type Service struct {
	transport   Transport
	from        mail.Address
	subjPrefix  string
	frontendURL string
}

var ErrNoRecipients = errors.New("email: no recipients")

func NewService(t Transport, from mail.Address, frontendURL string) *Service {
	return &Service{
		transport:   t,
		from:        from,
		subjPrefix:  "[" + appName + "] ",
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// NewFromConfig picks the transport from EMAIL_PROVIDER.
func NewFromConfig(cfg *config.Config) *Service {
	from := mail.Address{Name: cfg.MailFromName, Address: cfg.MailFrom}
	var t Transport
	switch strings.ToLower(cfg.EmailProvider) {
	case "smtp":
		t = NewSMTPTransport(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	case "sendgrid":
		t = NewSendGridTransport(cfg.SendGridAPIKey)
	default:
		t = NewLogTransport()
	}
	return NewService(t, from, cfg.FrontendURL)
}

var (
	defaultSvc  *Service
	defaultOnce sync.Once
)

// Default returns the process-wide service built from config.AppConfig.
func Default() *Service {
	defaultOnce.Do(func() {
		if defaultSvc != nil {
			return
		}
		if config.AppConfig == nil {
			defaultSvc = NewService(NewLogTransport(), mail.Address{Address: "no-reply@localhost"}, "")
			return
		}
		defaultSvc = NewFromConfig(config.AppConfig)
	})
	return defaultSvc
}

// SetDefault replaces the process-wide service.
func SetDefault(s *Service) {
	defaultOnce.Do(func() {})
	defaultSvc = s
}

// TransportName is "smtp", "sendgrid" or "log".
func (s *Service) TransportName() string { return s.transport.Name() }

// Send renders and delivers msg.
func (s *Service) Send(ctx context.Context, msg Message) error {
	label := msg.Template
	if label == "" {
		label = "plain"
	}
	err := s.send(ctx, msg)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.EmailsSent.WithLabelValues(label, result).Inc()
	return err
}

func (s *Service) send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	if msg.Template != "" {
		text, html, err := Render(msg.Template, contextData{AppName: appName, FrontendURL: s.frontendURL, Data: msg.Data})
		if err != nil {
			return fmt.Errorf("rendering email: %w", err)
		}
		msg.Text, msg.HTML = text, html
	}
	if msg.Text == "" && msg.HTML == "" {
		return errors.New("email: empty message")
	}
	msg.Subject = s.subjPrefix + msg.Subject
	return s.transport.Deliver(ctx, s.from, msg)
}

// SendAsync delivers in the background; failures are logged only.
func (s *Service) SendAsync(msg Message) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Send(ctx, msg); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"template":  msg.Template,
				"transport": s.transport.Name(),
			}).Error("sending email failed")
		}
	}()
}

// To builds a single recipient list.
func To(name, address string) []mail.Address {
	return []mail.Address{{Name: name, Address: address}}
}

func joinAddresses(addrs []mail.Address) string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	return strings.Join(out, ", ")
}
