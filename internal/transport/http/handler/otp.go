package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/otp-gateway/internal/application/otp"
	"github.com/otp-gateway/internal/application/session"
	"github.com/otp-gateway/internal/domain"
	"github.com/otp-gateway/internal/transport/http/view"
)

const msgSessionFailed = "Could not start your session. Please try again."

// OTPWorkflow runs one OTP submission.
type OTPWorkflow interface {
	Submit(ctx context.Context, f *otp.Form, subject *string, nav otp.Navigator, notify otp.Notifier) (*domain.Session, error)
}

// capture records what a submission asked the user interface to do, so the
// handler can turn it into a response once the workflow returns.
type capture struct {
	notes    []domain.Notification
	redirect string
}

func (c *capture) Notify(kind domain.NotificationKind, message string) {
	c.notes = append(c.notes, domain.Notification{Kind: kind, Message: message})
}

func (c *capture) NavigateTo(path string) { c.redirect = path }

// OTPHandler serves the OTP form and its submissions, both as HTML and JSON.
type OTPHandler struct {
	workflow OTPWorkflow
	sessions session.Service
	view     *view.Renderer
	cookies  Cookies
}

func NewOTPHandler(workflow OTPWorkflow, sessions session.Service, v *view.Renderer, cookies Cookies) *OTPHandler {
	return &OTPHandler{workflow: workflow, sessions: sessions, view: v, cookies: cookies}
}

// Form renders an empty OTP form for the email in the query string.
func (h *OTPHandler) Form(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, view.OTPPage{
		Email:         r.URL.Query().Get("email"),
		Notifications: h.cookies.takeFlash(w, r),
	})
}

// Submit handles a browser form post.
func (h *OTPHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	// Slot layouts post one "code" value per slot.
	f := otp.NewForm(strings.Join(r.PostForm["code"], ""))
	var subject *string
	if v, ok := r.PostForm["email"]; ok && len(v) > 0 {
		subject = &v[0]
	}
	email := ""
	if subject != nil {
		email = *subject
	}

	ui := &capture{}
	sess, err := h.workflow.Submit(r.Context(), f, subject, ui, ui)
	switch {
	case errors.Is(err, domain.ErrValidation):
		h.renderForm(w, r, statusFor(err), view.OTPPage{Email: email, Code: f.Code, FieldError: f.FieldError})
	case err != nil && ui.redirect != "":
		h.cookies.writeFlash(w, ui.notes)
		http.Redirect(w, r, ui.redirect, http.StatusSeeOther)
	case err != nil:
		h.renderForm(w, r, statusFor(err), view.OTPPage{Email: email, Code: f.Code, Notifications: ui.notes})
	default:
		stored, err := h.establish(r.Context(), sess)
		if err != nil {
			// The workflow already reported success and navigation; both are
			// replaced by the error since no session exists to land on.
			slog.WarnContext(r.Context(), "discarding workflow outcome", "notifications", ui.notes, "redirect", ui.redirect)
			h.renderForm(w, r, http.StatusInternalServerError, view.OTPPage{
				Email:         email,
				Notifications: []domain.Notification{{Kind: domain.NotifyError, Message: msgSessionFailed}},
			})
			return
		}
		h.cookies.setSession(w, stored)
		h.cookies.writeFlash(w, ui.notes)
		http.Redirect(w, r, ui.redirect, http.StatusSeeOther)
	}
}

// Verify is the JSON rendition of Submit.
func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f := otp.NewForm(req.Code)
	ui := &capture{}
	sess, err := h.workflow.Submit(r.Context(), f, req.Email, ui, ui)
	if err != nil {
		writeJSON(w, statusFor(err), OTPEnvelope{
			Notifications: ui.notes,
			Redirect:      ui.redirect,
			FieldError:    f.FieldError,
			Error:         err.Error(),
		})
		return
	}

	stored, err := h.establish(r.Context(), sess)
	if err != nil {
		slog.WarnContext(r.Context(), "discarding workflow outcome", "notifications", ui.notes, "redirect", ui.redirect)
		writeError(w, http.StatusInternalServerError, msgSessionFailed)
		return
	}
	h.cookies.setSession(w, stored)
	writeJSON(w, http.StatusOK, OTPEnvelope{Notifications: ui.notes, Redirect: ui.redirect, Session: stored})
}

func (h *OTPHandler) establish(ctx context.Context, sess *domain.Session) (*domain.Session, error) {
	stored, err := h.sessions.Establish(ctx, sess)
	if err != nil {
		slog.ErrorContext(ctx, "failed to establish session", "err", err)
		return nil, err
	}
	return stored, nil
}

func (h *OTPHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, p view.OTPPage) {
	p.Action = "/verify"
	if err := h.view.OTP(w, status, p); err != nil {
		slog.ErrorContext(r.Context(), "render otp form", "err", err)
	}
}
