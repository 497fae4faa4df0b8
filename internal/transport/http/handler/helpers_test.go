package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/otp-gateway/internal/application/otp"
	"github.com/otp-gateway/internal/domain"
	"github.com/otp-gateway/internal/transport/http/view"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testCookies = Cookies{SessionName: "otp_session", Secure: false}

type mockVerifier struct{ mock.Mock }

func (m *mockVerifier) VerifyOTP(ctx context.Context, subject, code string, kind domain.VerificationKind) (*domain.Session, error) {
	args := m.Called(ctx, subject, code, kind)
	s, _ := args.Get(0).(*domain.Session)
	return s, args.Error(1)
}

type mockSessions struct{ mock.Mock }

func (m *mockSessions) Establish(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	args := m.Called(ctx, s)
	out, _ := args.Get(0).(*domain.Session)
	return out, args.Error(1)
}

func (m *mockSessions) GetCurrent(ctx context.Context, id string) (*domain.Session, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(*domain.Session)
	return out, args.Error(1)
}

func (m *mockSessions) Logout(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockSender struct{ mock.Mock }

func (m *mockSender) SendOTP(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func newRenderer(t *testing.T) *view.Renderer {
	t.Helper()
	v, err := view.New("card")
	require.NoError(t, err)
	return v
}

func newOTPHandler(t *testing.T, opts otp.Options) (*OTPHandler, *mockVerifier, *mockSessions) {
	t.Helper()
	verifier := &mockVerifier{}
	sessions := &mockSessions{}
	h := NewOTPHandler(otp.NewWorkflow(verifier, opts), sessions, newRenderer(t), testCookies)
	return h, verifier, sessions
}

// flashFrom decodes the flash cookie a response set, or nil.
func flashFrom(t *testing.T, rr *httptest.ResponseRecorder) []domain.Notification {
	t.Helper()
	for _, ck := range rr.Result().Cookies() {
		if ck.Name != flashCookieName || ck.Value == "" {
			continue
		}
		b, err := base64.RawURLEncoding.DecodeString(ck.Value)
		require.NoError(t, err)
		var notes []domain.Notification
		require.NoError(t, json.Unmarshal(b, &notes))
		return notes
	}
	return nil
}

func cookieFrom(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rr.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func flashCookie(t *testing.T, notes []domain.Notification) *http.Cookie {
	t.Helper()
	b, err := json.Marshal(notes)
	require.NoError(t, err)
	return &http.Cookie{Name: flashCookieName, Value: base64.RawURLEncoding.EncodeToString(b)}
}

func chiContext(action string) context.Context {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("action", action)
	return context.WithValue(context.Background(), chi.RouteCtxKey, rctx)
}
