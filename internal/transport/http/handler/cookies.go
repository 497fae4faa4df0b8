package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/otp-gateway/internal/domain"
)

const flashCookieName = "otp_flash"

// Cookies configures the cookies handlers set.
type Cookies struct {
	SessionName string
	Secure      bool
}

func (c Cookies) setSession(w http.ResponseWriter, s *domain.Session) {
	ck := &http.Cookie{
		Name:     c.SessionName,
		Value:    s.SessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if s.ExpiresAt > 0 {
		ck.Expires = time.Unix(s.ExpiresAt, 0)
	}
	http.SetCookie(w, ck)
}

func (c Cookies) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.SessionName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionID returns the session cookie value, or "".
func (c Cookies) sessionID(r *http.Request) string {
	ck, err := r.Cookie(c.SessionName)
	if err != nil {
		return ""
	}
	return ck.Value
}

// writeFlash stores notifications for the next page the browser loads.
func (c Cookies) writeFlash(w http.ResponseWriter, notes []domain.Notification) {
	if len(notes) == 0 {
		return
	}
	b, err := json.Marshal(notes)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(b),
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash reads and clears pending notifications. A malformed cookie is dropped.
func (c Cookies) takeFlash(w http.ResponseWriter, r *http.Request) []domain.Notification {
	ck, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	b, err := base64.RawURLEncoding.DecodeString(ck.Value)
	if err != nil {
		return nil
	}
	var notes []domain.Notification
	if err := json.Unmarshal(b, &notes); err != nil {
		return nil
	}
	return notes
}
