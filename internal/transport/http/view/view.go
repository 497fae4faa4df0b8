// Package view renders the HTML screens. It is the only place that knows
// about markup; handlers hand it plain page structs.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/otp-gateway/internal/domain"
)

//go:embed templates/*.html
var files embed.FS

// SlotCount is the number of code slots an OTP form shows.
const SlotCount = 6

// Layout selects how the OTP form is drawn. Both layouts post the same fields.
type Layout string

const (
	LayoutCard    Layout = "card"    // six large slots, centered
	LayoutCompact Layout = "compact" // one inline input
)

type OTPPage struct {
	Action        string
	Email         string
	Code          string
	FieldError    string
	Notifications []domain.Notification
}

type LoginPage struct {
	Email         string
	FieldError    string
	Notifications []domain.Notification
}

type DashboardPage struct {
	Email         string
	Notifications []domain.Notification
}

// Renderer holds the parsed page templates.
type Renderer struct {
	otp       *template.Template
	login     *template.Template
	dashboard *template.Template
}

func New(layout string) (*Renderer, error) {
	var otpFile string
	switch Layout(layout) {
	case LayoutCard, "":
		otpFile = "templates/otp_card.html"
	case LayoutCompact:
		otpFile = "templates/otp_compact.html"
	default:
		return nil, fmt.Errorf("unknown OTP form layout %q", layout)
	}

	r := &Renderer{}
	var err error
	if r.otp, err = parse(otpFile); err != nil {
		return nil, err
	}
	if r.login, err = parse("templates/login.html"); err != nil {
		return nil, err
	}
	if r.dashboard, err = parse("templates/dashboard.html"); err != nil {
		return nil, err
	}
	return r, nil
}

func parse(page string) (*template.Template, error) {
	t, err := template.New("base").Funcs(template.FuncMap{"slots": slots}).ParseFS(files, "templates/base.html", page)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", page, err)
	}
	return t, nil
}

// slots spreads code over SlotCount inputs, one rune each.
func slots(code string) []string {
	out := make([]string, SlotCount)
	i := 0
	for _, r := range code {
		if i == SlotCount {
			break
		}
		out[i] = string(r)
		i++
	}
	return out
}

func (r *Renderer) OTP(w http.ResponseWriter, status int, p OTPPage) error {
	return render(w, status, r.otp, p)
}

func (r *Renderer) Login(w http.ResponseWriter, status int, p LoginPage) error {
	return render(w, status, r.login, p)
}

func (r *Renderer) Dashboard(w http.ResponseWriter, status int, p DashboardPage) error {
	return render(w, status, r.dashboard, p)
}

// render executes into a buffer first so a template error never leaves a half-written page.
func render(w http.ResponseWriter, status int, t *template.Template, data interface{}) error {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := io.Copy(w, &buf)
	return err
}
