package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/otp-gateway/internal/domain"
	"github.com/otp-gateway/internal/pkg/validate"
	"github.com/otp-gateway/internal/transport/http/view"
)

const (
	msgInvalidEmail = "Please enter a valid email address."
	msgSendFailed   = "Could not send the code. Please try again."
	msgCodeSent     = "Check your email for the one-time password."
	msgSignedOut    = "Signed out."
)

// CodeSender asks the auth provider to email a one-time code.
type CodeSender interface {
	SendOTP(ctx context.Context, email string) error
}

// LoginHandler serves the email entry screen the OTP form sends users back to.
type LoginHandler struct {
	sender  CodeSender
	view    *view.Renderer
	cookies Cookies
	verify  string
}

func NewLoginHandler(sender CodeSender, v *view.Renderer, cookies Cookies) *LoginHandler {
	return &LoginHandler{sender: sender, view: v, cookies: cookies, verify: "/verify"}
}

func (h *LoginHandler) Form(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.LoginPage{
		Email:         r.URL.Query().Get("email"),
		Notifications: h.cookies.takeFlash(w, r),
	})
}

func (h *LoginHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	req := domain.SendOTPRequest{Email: strings.TrimSpace(r.PostForm.Get("email"))}
	if err := validate.Struct(&req); err != nil {
		h.render(w, r, http.StatusUnprocessableEntity, view.LoginPage{Email: req.Email, FieldError: msgInvalidEmail})
		return
	}

	if err := h.sender.SendOTP(r.Context(), req.Email); err != nil {
		slog.WarnContext(r.Context(), "failed to send otp", "err", err)
		msg := msgSendFailed
		var pe *domain.ProviderError
		if errors.As(err, &pe) && pe.Message != "" {
			msg = pe.Message
		}
		h.render(w, r, http.StatusBadGateway, view.LoginPage{
			Email:         req.Email,
			Notifications: []domain.Notification{{Kind: domain.NotifyError, Message: msg}},
		})
		return
	}

	h.cookies.writeFlash(w, []domain.Notification{{Kind: domain.NotifySuccess, Message: msgCodeSent}})
	http.Redirect(w, r, h.verify+"?email="+url.QueryEscape(req.Email), http.StatusSeeOther)
}

func (h *LoginHandler) render(w http.ResponseWriter, r *http.Request, status int, p view.LoginPage) {
	if err := h.view.Login(w, status, p); err != nil {
		slog.ErrorContext(r.Context(), "render login form", "err", err)
	}
}
