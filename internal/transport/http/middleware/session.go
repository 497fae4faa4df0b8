package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/otp-gateway/internal/domain"
)

type contextKey string

const SessionKey contextKey = "session"

// SessionGetter looks up a stored session by id.
type SessionGetter interface {
	GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error)
}

// SessionCookie names the session cookie and the attributes it was set with.
type SessionCookie struct {
	Name   string
	Secure bool
}

// clear expires the cookie with the same attributes it was issued with.
func (c SessionCookie) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// RequireSession loads the session named by the cookie and injects it into
// the request context. Requests without a live session are sent to loginPath.
func RequireSession(sessions SessionGetter, cookie SessionCookie, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ck, err := r.Cookie(cookie.Name)
			if err != nil || ck.Value == "" {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			sess, err := sessions.GetCurrent(r.Context(), ck.Value)
			if err != nil {
				if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrUnauthorized) {
					slog.ErrorContext(r.Context(), "session lookup failed", "err", err)
				}
				cookie.clear(w)
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			ctx := context.WithValue(r.Context(), SessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext extracts the session injected by RequireSession.
func SessionFromContext(ctx context.Context) (*domain.Session, bool) {
	s, ok := ctx.Value(SessionKey).(*domain.Session)
	return s, ok
}
