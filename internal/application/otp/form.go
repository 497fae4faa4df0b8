package otp

// State is where a Form sits in the submission lifecycle.
//
//	Idle -> Verifying -> Success
//	             \-----> Failure -> Idle
//
// Failure lasts while the error is being reported; the form is Idle again
// when Submit returns.
type State int

const (
	StateIdle State = iota
	StateVerifying
	StateSuccess
	StateFailure
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateVerifying:
		return "verifying"
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// CodeRetention decides what happens to the entered code after the provider rejects it.
type CodeRetention int

const (
	// RetainOnFailure leaves the rejected code in the form so the user can edit it.
	RetainOnFailure CodeRetention = iota
	// ClearOnFailure empties the form after a rejected code.
	ClearOnFailure
)

// Form is the local state of a single OTP form. It is owned by one
// submission at a time and is not safe for concurrent use; overlapping
// submissions each get their own Form.
type Form struct {
	Code string `validate:"len=6"`

	// FieldError is the inline message shown next to the code input.
	FieldError string `validate:"-"`

	state State
}

// NewForm returns an idle form holding code.
func NewForm(code string) *Form {
	return &Form{Code: code}
}

func (f *Form) State() State { return f.state }

// CanSubmit is false once a submission succeeded; control has left the form by then.
func (f *Form) CanSubmit() bool { return f.state != StateSuccess }
