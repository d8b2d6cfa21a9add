package email

import (
	"context"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() (*Service, *LogTransport) {
	lt := NewLogTransport()
	return NewService(lt, mail.Address{Name: "TutorLink", Address: "no-reply@tutorlink.test"}, "https://app.tutorlink.test/"), lt
}

func TestSendTemporaryPassword(t *testing.T) {
	svc, lt := newTestService()
	err := svc.Send(context.Background(), Message{
		To:       To("Ana Cruz", "ana@example.com"),
		Subject:  "Your temporary password",
		Template: TemplateTemporaryPassword,
		Data:     TemporaryPasswordData{Name: "Ana", Email: "ana@example.com", Password: "Xy7#kPq2mN4!"},
	})
	require.NoError(t, err)

	sent := lt.Messages()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, "[TutorLink] Your temporary password", msg.Subject)
	assert.Contains(t, msg.Text, "Hello Ana,")
	assert.Contains(t, msg.Text, "Xy7#kPq2mN4!")
	assert.Contains(t, msg.Text, "https://app.tutorlink.test/login")
	assert.Contains(t, msg.HTML, "<code>Xy7#kPq2mN4!</code>")
}

func TestHTMLIsEscaped(t *testing.T) {
	svc, lt := newTestService()
	require.NoError(t, svc.Send(context.Background(), Message{
		To:       To("", "x@example.com"),
		Subject:  "Decision",
		Template: TemplateApplicationDecision,
		Data:     ApplicationDecisionData{Name: "<b>Bo</b>", Subject: "Math", Reason: "score too low"},
	}))
	msg := lt.Messages()[0]
	assert.Contains(t, msg.HTML, "&lt;b&gt;Bo&lt;/b&gt;")
	assert.Contains(t, msg.Text, "was not approved")
	assert.Contains(t, msg.Text, "Reason: score too low")
}

func TestAllTemplatesRender(t *testing.T) {
	cases := map[string]interface{}{
		TemplateTemporaryPassword:   TemporaryPasswordData{Name: "A", Email: "a@b.c", Password: "p"},
		TemplateApplicationDecision: ApplicationDecisionData{Name: "A", Subject: "Physics", Approved: true},
		TemplateBookingStatus: BookingStatusData{Name: "A", Counterpart: "B", Subject: "Math", Status: "accepted",
			StartDate: "2026-01-05", EndDate: "2026-01-09", PreferredTime: "09:00-10:00"},
		TemplatePostTestAssigned: PostTestAssignedData{Name: "A", Title: "Quiz 1", TutorName: "B", DueDate: "2026-01-10"},
	}
	for name, data := range cases {
		text, html, err := Render(name, contextData{AppName: appName, FrontendURL: "http://x", Data: data})
		require.NoError(t, err, name)
		assert.True(t, strings.HasPrefix(text, "Hello A,"), name)
		assert.NotEmpty(t, html, name)
	}
}

func TestSendRejectsBadMessages(t *testing.T) {
	svc, lt := newTestService()
	assert.ErrorIs(t, svc.Send(context.Background(), Message{Subject: "x", Text: "y"}), ErrNoRecipients)
	assert.Error(t, svc.Send(context.Background(), Message{To: To("", "a@b.c"), Template: "nope"}))
	assert.Error(t, svc.Send(context.Background(), Message{To: To("", "a@b.c")}))
	assert.Empty(t, lt.Messages())
}

func TestSendGridPayload(t *testing.T) {
	tr := NewSendGridTransport("key")
	m := tr.prepare(mail.Address{Name: "TutorLink", Address: "no-reply@t.test"}, Message{
		To: To("Ana", "ana@example.com"), Subject: "Hi", Text: "plain", HTML: "<p>html</p>",
	})
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "Hi", m.Personalizations[0].Subject)
	assert.Equal(t, "ana@example.com", m.Personalizations[0].To[0].Address)
	require.Len(t, m.Content, 2)
	assert.Equal(t, "text/plain", m.Content[0].Type)
}
