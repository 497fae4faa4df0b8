package otp

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/otp-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockVerifier struct{ mock.Mock }

func (m *mockVerifier) VerifyOTP(ctx context.Context, subject, code string, kind domain.VerificationKind) (*domain.Session, error) {
	args := m.Called(ctx, subject, code, kind)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

// recorder captures notifications and navigations in the order they happen.
type recorder struct {
	events []string
	notes  []domain.Notification
	paths  []string
}

func (r *recorder) Notify(kind domain.NotificationKind, message string) {
	r.events = append(r.events, "notify")
	r.notes = append(r.notes, domain.Notification{Kind: kind, Message: message})
}

func (r *recorder) NavigateTo(path string) {
	r.events = append(r.events, "navigate")
	r.paths = append(r.paths, path)
}

func strPtr(s string) *string { return &s }

func newWorkflow(v Verifier) *Workflow {
	return NewWorkflow(v, Options{})
}

// --- local validation ---

func TestSubmit_WrongLength_NeverCallsVerifier(t *testing.T) {
	for _, code := range []string{"", "1", "12345", "1234567", "123456789012"} {
		v := &mockVerifier{}
		rec := &recorder{}
		f := NewForm(code)

		sess, err := newWorkflow(v).Submit(context.Background(), f, strPtr("user@example.com"), rec, rec)

		require.Error(t, err, code)
		assert.Nil(t, sess)
		assert.True(t, errors.Is(err, domain.ErrValidation))
		assert.Equal(t, MsgCodeLength, f.FieldError)
		assert.Equal(t, StateIdle, f.State())
		assert.Empty(t, rec.events, "validation errors are inline only")
		v.AssertNotCalled(t, "VerifyOTP", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestSubmit_ValidationRunsBeforeIdentityCheck(t *testing.T) {
	v := &mockVerifier{}
	rec := &recorder{}
	_, err := newWorkflow(v).Submit(context.Background(), NewForm("123"), nil, rec, rec)

	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Empty(t, rec.events)
}

func TestValidate_ClearsPreviousFieldError(t *testing.T) {
	f := NewForm("12")
	w := newWorkflow(&mockVerifier{})
	require.Error(t, w.Validate(f))
	assert.Equal(t, MsgCodeLength, f.FieldError)

	f.Code = "123456"
	require.NoError(t, w.Validate(f))
	assert.Empty(t, f.FieldError)
}

// --- missing identity ---

func TestSubmit_MissingSubject(t *testing.T) {
	cases := map[string]*string{
		"nil":        nil,
		"empty":      strPtr(""),
		"whitespace": strPtr("   "),
	}
	for name, subject := range cases {
		t.Run(name, func(t *testing.T) {
			v := &mockVerifier{}
			rec := &recorder{}
			f := NewForm("123456")

			sess, err := newWorkflow(v).Submit(context.Background(), f, subject, rec, rec)

			require.Error(t, err)
			assert.Nil(t, sess)
			assert.True(t, errors.Is(err, domain.ErrMissingIdentity))
			assert.Equal(t, []string{"notify", "navigate"}, rec.events)
			assert.Equal(t, []domain.Notification{{Kind: domain.NotifyError, Message: "Email is missing. Please try logging in again."}}, rec.notes)
			assert.Equal(t, []string{"/login"}, rec.paths)
			v.AssertNotCalled(t, "VerifyOTP", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

// --- remote verification ---

func TestSubmit_PassesCodeAndSubjectUnmodified(t *testing.T) {
	v := &mockVerifier{}
	ctx := context.WithValue(context.Background(), struct{}{}, "marker")
	v.On("VerifyOTP", ctx, " User@Example.com", "a1B2c3", domain.VerificationEmail).
		Return(&domain.Session{UserID: "u1"}, nil).Once()
	rec := &recorder{}

	_, err := newWorkflow(v).Submit(ctx, NewForm("a1B2c3"), strPtr(" User@Example.com"), rec, rec)

	require.NoError(t, err)
	v.AssertExpectations(t)
	v.AssertNumberOfCalls(t, "VerifyOTP", 1)
}

func TestSubmit_Success(t *testing.T) {
	v := &mockVerifier{}
	want := &domain.Session{UserID: "u1", Email: "user@example.com"}
	v.On("VerifyOTP", mock.Anything, "user@example.com", "123456", domain.VerificationEmail).Return(want, nil).Once()
	rec := &recorder{}
	f := NewForm("123456")

	sess, err := newWorkflow(v).Submit(context.Background(), f, strPtr("user@example.com"), rec, rec)

	require.NoError(t, err)
	assert.Same(t, want, sess)
	assert.Equal(t, []string{"notify", "navigate"}, rec.events, "notification must precede navigation")
	assert.Equal(t, []domain.Notification{{Kind: domain.NotifySuccess, Message: "Logged in!"}}, rec.notes)
	assert.Equal(t, []string{"/dashboard"}, rec.paths)
	assert.Equal(t, StateSuccess, f.State())
	assert.Empty(t, f.Code)
	v.AssertExpectations(t)
}

func TestSubmit_SuccessIsTerminal(t *testing.T) {
	v := &mockVerifier{}
	v.On("VerifyOTP", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(&domain.Session{}, nil).Once()
	rec := &recorder{}
	f := NewForm("123456")
	w := newWorkflow(v)

	_, err := w.Submit(context.Background(), f, strPtr("user@example.com"), rec, rec)
	require.NoError(t, err)

	f.Code = "654321"
	_, err = w.Submit(context.Background(), f, strPtr("user@example.com"), rec, rec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	v.AssertNumberOfCalls(t, "VerifyOTP", 1)
	assert.Len(t, rec.events, 2)
}

func TestSubmit_ProviderMessageIsShown(t *testing.T) {
	v := &mockVerifier{}
	v.On("VerifyOTP", mock.Anything, "user@example.com", "000000", domain.VerificationEmail).
		Return(nil, &domain.ProviderError{Status: 403, Code: "otp_expired", Message: "Token has expired"}).Once()
	rec := &recorder{}
	f := NewForm("000000")

	sess, err := newWorkflow(v).Submit(context.Background(), f, strPtr("user@example.com"), rec, rec)

	require.Error(t, err)
	assert.Nil(t, sess)
	assert.True(t, errors.Is(err, domain.ErrRemoteVerification))
	var pe *domain.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "otp_expired", pe.Code)

	assert.Equal(t, []domain.Notification{{Kind: domain.NotifyError, Message: "Token has expired"}}, rec.notes)
	assert.Empty(t, rec.paths, "failures stay on the form")
	assert.Equal(t, StateIdle, f.State())
}

func TestSubmit_FallbackMessage(t *testing.T) {
	cases := map[string]error{
		"empty provider message": &domain.ProviderError{Status: 500},
		"blank provider message": &domain.ProviderError{Status: 400, Message: "  "},
		"plain error":            errors.New("connection reset"),
	}
	for name, verr := range cases {
		t.Run(name, func(t *testing.T) {
			v := &mockVerifier{}
			v.On("VerifyOTP", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, verr).Once()
			rec := &recorder{}

			_, err := newWorkflow(v).Submit(context.Background(), NewForm("123456"), strPtr("user@example.com"), rec, rec)

			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrRemoteVerification))
			assert.Equal(t, []domain.Notification{{Kind: domain.NotifyError, Message: "Invalid OTP."}}, rec.notes)
			assert.Empty(t, rec.paths)
		})
	}
}

// --- code retention after failure ---

func TestSubmit_Failure_RetainsCodeByDefault(t *testing.T) {
	v := &mockVerifier{}
	v.On("VerifyOTP", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("nope")).Once()
	rec := &recorder{}
	f := NewForm("111111")

	_, _ = newWorkflow(v).Submit(context.Background(), f, strPtr("user@example.com"), rec, rec)

	assert.Equal(t, "111111", f.Code)
}

func TestSubmit_Failure_ClearOnFailurePolicy(t *testing.T) {
	v := &mockVerifier{}
	v.On("VerifyOTP", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("nope")).Once()
	rec := &recorder{}
	f := NewForm("111111")

	_, _ = NewWorkflow(v, Options{Retention: ClearOnFailure}).Submit(context.Background(), f, strPtr("user@example.com"), rec, rec)

	assert.Empty(t, f.Code)
	assert.Equal(t, StateIdle, f.State())
}

func TestSubmit_ResubmitAfterFailure(t *testing.T) {
	v := &mockVerifier{}
	v.On("VerifyOTP", mock.Anything, "user@example.com", "000000", mock.Anything).
		Return(nil, &domain.ProviderError{Message: "Token has expired"}).Once()
	v.On("VerifyOTP", mock.Anything, "user@example.com", "123456", mock.Anything).
		Return(&domain.Session{UserID: "u1"}, nil).Once()
	rec := &recorder{}
	f := NewForm("000000")
	w := newWorkflow(v)

	_, err := w.Submit(context.Background(), f, strPtr("user@example.com"), rec, rec)
	require.Error(t, err)
	require.True(t, f.CanSubmit())

	f.Code = "123456"
	sess, err := w.Submit(context.Background(), f, strPtr("user@example.com"), rec, rec)
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID)
	assert.Equal(t, []string{"notify", "notify", "navigate"}, rec.events)
	v.AssertExpectations(t)
}

func TestSubmit_FailureReportedThenBackToIdle(t *testing.T) {
	v := &mockVerifier{}
	v.On("VerifyOTP", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("nope")).Once()
	f := NewForm("111111")

	var during State
	notify := NotifierFunc(func(domain.NotificationKind, string) { during = f.State() })
	nav := NavigatorFunc(func(string) {})

	_, err := newWorkflow(v).Submit(context.Background(), f, strPtr("user@example.com"), nav, notify)

	require.Error(t, err)
	assert.Equal(t, StateFailure, during)
	assert.Equal(t, StateIdle, f.State())
	assert.True(t, f.CanSubmit())
}

// --- routes ---

func TestNewWorkflow_CustomRoutes(t *testing.T) {
	v := &mockVerifier{}
	v.On("VerifyOTP", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(&domain.Session{}, nil)
	w := NewWorkflow(v, Options{Routes: Routes{Login: "/signin", Destination: "/home"}})

	rec := &recorder{}
	_, _ = w.Submit(context.Background(), NewForm("123456"), nil, rec, rec)
	_, _ = w.Submit(context.Background(), NewForm("123456"), strPtr("user@example.com"), rec, rec)
	assert.Equal(t, []string{"/signin", "/home"}, rec.paths)
}

func TestNewWorkflow_DefaultRoutes(t *testing.T) {
	assert.Equal(t, Routes{Login: "/login", Destination: "/dashboard"}, NewWorkflow(nil, Options{}).Routes())
}

// --- concurrency ---

func TestSubmit_OverlappingSubmissionsAreIndependent(t *testing.T) {
	v := &mockVerifier{}
	release := make(chan struct{})
	var inFlight sync.WaitGroup
	inFlight.Add(2)
	v.On("VerifyOTP", mock.Anything, "user@example.com", "123456", mock.Anything).
		Run(func(mock.Arguments) {
			inFlight.Done()
			<-release
		}).
		Return(&domain.Session{}, nil).Twice()
	w := newWorkflow(v)

	var mu sync.Mutex
	var paths []string
	nav := NavigatorFunc(func(p string) {
		mu.Lock()
		paths = append(paths, p)
		mu.Unlock()
	})
	notify := NotifierFunc(func(domain.NotificationKind, string) {})

	var done sync.WaitGroup
	for i := 0; i < 2; i++ {
		done.Add(1)
		go func() {
			defer done.Done()
			_, _ = w.Submit(context.Background(), NewForm("123456"), strPtr("user@example.com"), nav, notify)
		}()
	}
	// Both calls reach the verifier before either returns.
	inFlight.Wait()
	close(release)
	done.Wait()

	assert.Equal(t, []string{"/dashboard", "/dashboard"}, paths)
	v.AssertNumberOfCalls(t, "VerifyOTP", 2)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "verifying", StateVerifying.String())
	assert.Equal(t, "success", StateSuccess.String())
	assert.Equal(t, "failure", StateFailure.String())
	assert.Equal(t, "unknown", State(42).String())
}
