package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"tutorlink_go/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLinker struct {
	codes map[string]bool
	got   []string
}

func (f *fakeLinker) LinkLineAccount(_ context.Context, code, lineUserID string) error {
	f.got = append(f.got, code+":"+lineUserID)
	if !f.codes[code] {
		return services.ErrNotFound
	}
	return nil
}

type fakeReplier struct {
	enabled bool
	replies []string
}

func (f *fakeReplier) Enabled() bool { return f.enabled }
func (f *fakeReplier) ReplyText(_, text string) error {
	f.replies = append(f.replies, text)
	return nil
}

func TestSignature(t *testing.T) {
	body := []byte(`{"events":[]}`)
	sig := computeSignature("secret", body)
	assert.True(t, validateSignature("secret", body, sig))
	assert.False(t, validateSignature("other", body, sig))
	assert.False(t, validateSignature("secret", []byte(`{}`), sig))
}

func TestHandleText(t *testing.T) {
	linker := &fakeLinker{codes: map[string]bool{"123456": true}}
	h := &LineWebhookHandler{linker: linker, line: &fakeReplier{enabled: true}}

	assert.Equal(t, replyLinked, h.handleText("U1", " 123456 "))
	assert.Equal(t, replyCodeInvalid, h.handleText("U1", "654321"))
	assert.Equal(t, replyHelp, h.handleText("U1", "hello"))
	assert.Equal(t, replyHelp, h.handleText("", "123456"))
	assert.Equal(t, []string{"123456:U1", "654321:U1"}, linker.got)
}

func TestHandleRequest(t *testing.T) {
	replier := &fakeReplier{enabled: true}
	h := &LineWebhookHandler{secret: "s3cret", line: replier, linker: &fakeLinker{}}
	app := fiber.New()
	app.Post("/line/webhook", h.Handle)

	body := `{"destination":"x","events":[]}`
	cases := []struct {
		name   string
		sig    string
		status int
	}{
		{"missing signature", "", fiber.StatusBadRequest},
		{"bad signature", "nope", fiber.StatusUnauthorized},
		{"valid", computeSignature("s3cret", []byte(body)), fiber.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/line/webhook", strings.NewReader(body))
			if tc.sig != "" {
				req.Header.Set("X-Line-Signature", tc.sig)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestHandleDisabled(t *testing.T) {
	h := &LineWebhookHandler{line: &fakeReplier{enabled: false}}
	app := fiber.New()
	app.Post("/line/webhook", h.Handle)
	resp, err := app.Test(httptest.NewRequest("POST", "/line/webhook", strings.NewReader(`{}`)))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
