package http

import (
	"github.com/otp-gateway/internal/application/session"
	"github.com/otp-gateway/internal/transport/http/handler"
	"github.com/otp-gateway/internal/transport/http/view"
)

// Deps holds the collaborators the router wires into handlers.
type Deps struct {
	Workflow handler.OTPWorkflow
	Sender   handler.CodeSender
	Sessions session.Service
	View     *view.Renderer
}
