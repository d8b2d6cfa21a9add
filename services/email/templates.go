package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltmpl "html/template"
	"io/fs"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"
)

// Template names
const (
	TemplateTemporaryPassword   = "temporary_password"
	TemplateApplicationDecision = "application_decision"
	TemplateBookingStatus       = "booking_status"
	TemplatePostTestAssigned    = "post_test_assigned"
)

//go:embed templates/*
var templateFS embed.FS

type templatePair struct {
	text *texttmpl.Template
	html *htmltmpl.Template
}

var (
	templates    map[string]templatePair
	templatesErr error
	tmplInit     sync.Once
)

// contextData is what every template receives.
type contextData struct {
	AppName     string
	FrontendURL string
	Data        interface{}
}

func parseTemplates() {
	templates = make(map[string]templatePair)
	files, err := fs.Glob(templateFS, "templates/*")
	if err != nil {
		templatesErr = err
		return
	}
	for _, fp := range files {
		name := path.Base(fp)
		ext := path.Ext(name)
		if strings.HasPrefix(name, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		key := strings.TrimSuffix(name, ext)
		pair := templates[key]
		if ext == ".txt" {
			t, err := texttmpl.New(name).Option("missingkey=error").ParseFS(templateFS, "templates/_base.txt", fp)
			if err != nil {
				templatesErr = fmt.Errorf("email: parse %s: %w", name, err)
				return
			}
			pair.text = t
		} else {
			t, err := htmltmpl.New(name).Option("missingkey=error").ParseFS(templateFS, "templates/_base.gohtml", fp)
			if err != nil {
				templatesErr = fmt.Errorf("email: parse %s: %w", name, err)
				return
			}
			pair.html = t
		}
		templates[key] = pair
	}
}

// Render fills the text and HTML bodies of a templated message.
func Render(name string, ctx contextData) (text, html string, err error) {
	tmplInit.Do(parseTemplates)
	if templatesErr != nil {
		return "", "", templatesErr
	}
	pair, ok := templates[name]
	if !ok || pair.text == nil {
		return "", "", fmt.Errorf("email: unknown template %q", name)
	}

	var buf bytes.Buffer
	if err := pair.text.ExecuteTemplate(&buf, "base", ctx); err != nil {
		return "", "", err
	}
	text = strings.TrimSpace(buf.String())

	if pair.html != nil {
		buf.Reset()
		if err := pair.html.ExecuteTemplate(&buf, "base", ctx); err != nil {
			return "", "", err
		}
		html = buf.String()
	}
	return text, html, nil
}

// Template data

type TemporaryPasswordData struct {
	Name     string
	Email    string
	Password string
}

type ApplicationDecisionData struct {
	Name     string
	Subject  string
	Approved bool
	Reason   string
}

type BookingStatusData struct {
	Name          string
	Counterpart   string
	Subject       string
	Status        string
	StartDate     string
	EndDate       string
	PreferredTime string
	Reason        string
}

type PostTestAssignedData struct {
	Name      string
	Title     string
	TutorName string
	DueDate   string
}
