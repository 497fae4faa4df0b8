package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/otp-gateway/internal/domain"
	"github.com/otp-gateway/internal/pkg/validate"
)

// User-facing messages produced by the workflow.
const (
	MsgCodeLength   = "Your one-time password must be 6 characters."
	MsgMissingEmail = "Email is missing. Please try logging in again."
	MsgInvalidOTP   = "Invalid OTP."
	MsgLoggedIn     = "Logged in!"
)

// Verifier checks a one-time code against a subject with the auth provider.
// A nil error means the code was accepted and a session was issued.
type Verifier interface {
	VerifyOTP(ctx context.Context, subject, code string, kind domain.VerificationKind) (*domain.Session, error)
}

// Navigator moves the user to another screen.
type Navigator interface {
	NavigateTo(path string)
}

// Notifier shows a fire-and-forget message to the user.
type Notifier interface {
	Notify(kind domain.NotificationKind, message string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) NavigateTo(path string) { f(path) }

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(kind domain.NotificationKind, message string)

func (f NotifierFunc) Notify(kind domain.NotificationKind, message string) { f(kind, message) }

// Routes names the screens the workflow can send the user to.
type Routes struct {
	Login       string // re-authentication screen
	Destination string // post-auth screen
}

var defaultRoutes = Routes{Login: "/login", Destination: "/dashboard"}

type Options struct {
	Routes    Routes
	Retention CodeRetention
}

// Workflow runs OTP submissions. It holds no per-submission state and may be
// shared by concurrent requests.
type Workflow struct {
	verifier  Verifier
	routes    Routes
	retention CodeRetention
}

func NewWorkflow(verifier Verifier, opts Options) *Workflow {
	routes := opts.Routes
	if routes.Login == "" {
		routes.Login = defaultRoutes.Login
	}
	if routes.Destination == "" {
		routes.Destination = defaultRoutes.Destination
	}
	return &Workflow{verifier: verifier, routes: routes, retention: opts.Retention}
}

func (w *Workflow) Routes() Routes { return w.routes }

// Validate checks the form locally and sets its inline field error.
func (w *Workflow) Validate(f *Form) error {
	f.FieldError = ""
	if err := validate.Struct(f); err != nil {
		var ve *validate.Error
		if errors.As(err, &ve) && ve.Has("Code") {
			f.FieldError = MsgCodeLength
			return fmt.Errorf("%s: %w", MsgCodeLength, domain.ErrValidation)
		}
		return fmt.Errorf("%v: %w", err, domain.ErrValidation)
	}
	return nil
}

// Submit runs one submission attempt for f against subject.
//
// Exactly one of the following happens:
//   - the form fails local validation: the inline error is set and nothing else;
//   - subject is missing: one error notification and one navigation to the login screen;
//   - the provider rejects the code: one error notification, the user stays on the form;
//   - the provider accepts the code: one success notification, then one navigation
//     to the destination screen.
//
// The verifier is called at most once, with subject and code unmodified, and
// the context is passed through as-is. The returned error wraps
// domain.ErrValidation, domain.ErrMissingIdentity or domain.ErrRemoteVerification;
// all of them have already been reported to the user through nav and notify.
func (w *Workflow) Submit(ctx context.Context, f *Form, subject *string, nav Navigator, notify Notifier) (*domain.Session, error) {
	if !f.CanSubmit() {
		return nil, fmt.Errorf("form already submitted: %w", domain.ErrBadRequest)
	}
	if err := w.Validate(f); err != nil {
		f.state = StateIdle
		return nil, err
	}

	if subject == nil || strings.TrimSpace(*subject) == "" {
		f.Code = ""
		f.state = StateIdle
		notify.Notify(domain.NotifyError, MsgMissingEmail)
		nav.NavigateTo(w.routes.Login)
		return nil, fmt.Errorf("email required to verify OTP: %w", domain.ErrMissingIdentity)
	}

	f.state = StateVerifying
	sess, err := w.verifier.VerifyOTP(ctx, *subject, f.Code, domain.VerificationEmail)
	if err != nil {
		f.state = StateFailure
		if w.retention == ClearOnFailure {
			f.Code = ""
		}
		slog.WarnContext(ctx, "otp verification failed", "err", err)
		notify.Notify(domain.NotifyError, failureMessage(err))
		f.state = StateIdle
		return nil, fmt.Errorf("%w: %w", domain.ErrRemoteVerification, err)
	}

	f.state = StateSuccess
	f.Code = ""
	notify.Notify(domain.NotifySuccess, MsgLoggedIn)
	nav.NavigateTo(w.routes.Destination)
	return sess, nil
}

// failureMessage prefers the provider's own text and falls back to a generic one.
func failureMessage(err error) string {
	var pe *domain.ProviderError
	if errors.As(err, &pe) && strings.TrimSpace(pe.Message) != "" {
		return pe.Message
	}
	return MsgInvalidOTP
}
