package domain

// VerificationKind selects which provider flow checks a one-time code.
type VerificationKind string

// VerificationEmail is the email one-time code flow; it is the only kind the OTP form submits.
const VerificationEmail VerificationKind = "email"

// NotificationKind is the severity of a user-facing notification.
type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
)

// Notification is a single user-facing message produced by a submission.
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
}

// VerifyOTPRequest is the JSON body accepted by the OTP verification API.
type VerifyOTPRequest struct {
	Email *string `json:"email"`
	Code  string  `json:"code"`
}

// SendOTPRequest asks the provider to email a fresh one-time code.
type SendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}
