package handler

import (
	"log/slog"
	"net/http"

	"github.com/otp-gateway/internal/application/session"
	"github.com/otp-gateway/internal/domain"
	"github.com/otp-gateway/internal/transport/http/middleware"
	"github.com/otp-gateway/internal/transport/http/view"
)

// SessionHandler serves the post-auth screens.
type SessionHandler struct {
	svc       session.Service
	view      *view.Renderer
	cookies   Cookies
	loginPath string
}

func NewSessionHandler(svc session.Service, v *view.Renderer, cookies Cookies, loginPath string) *SessionHandler {
	return &SessionHandler{svc: svc, view: v, cookies: cookies, loginPath: loginPath}
}

// Dashboard expects middleware.RequireSession in front of it.
func (h *SessionHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, h.loginPath, http.StatusSeeOther)
		return
	}
	err := h.view.Dashboard(w, http.StatusOK, view.DashboardPage{
		Email:         sess.Email,
		Notifications: h.cookies.takeFlash(w, r),
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "render dashboard", "err", err)
	}
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), h.cookies.sessionID(r)); err != nil {
		slog.WarnContext(r.Context(), "failed to delete session", "err", err)
	}
	h.cookies.clearSession(w)
	h.cookies.writeFlash(w, []domain.Notification{{Kind: domain.NotifySuccess, Message: msgSignedOut}})
	http.Redirect(w, r, h.loginPath, http.StatusSeeOther)
}
