package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/otp-gateway/internal/config"
	"github.com/otp-gateway/internal/transport/http/handler"
	appmiddleware "github.com/otp-gateway/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	if cfg.TrustProxyHeaders {
		// Rewrites RemoteAddr, which the rate limiter keys on.
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10, on everything that reaches the provider.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	cookies := handler.Cookies{SessionName: cfg.SessionCookieName, Secure: cfg.SessionCookieSecure}
	healthH := handler.NewHealthHandler()
	loginH := handler.NewLoginHandler(deps.Sender, deps.View, cookies)
	otpH := handler.NewOTPHandler(deps.Workflow, deps.Sessions, deps.View, cookies)
	sessionH := handler.NewSessionHandler(deps.Sessions, deps.View, cookies, cfg.LoginPath)

	r.Get("/health-check/{action}", healthH.Ping)

	r.Get(cfg.LoginPath, loginH.Form)
	r.With(sensitiveRL.Limit).Post(cfg.LoginPath, loginH.Submit)
	r.Get("/verify", otpH.Form)
	r.With(sensitiveRL.Limit).Post("/verify", otpH.Submit)
	r.Post("/logout", sessionH.Logout)

	r.Group(func(r chi.Router) {
		r.Use(appmiddleware.RequireSession(deps.Sessions, appmiddleware.SessionCookie{Name: cfg.SessionCookieName, Secure: cfg.SessionCookieSecure}, cfg.LoginPath))
		r.Get(cfg.DestinationPath, sessionH.Dashboard)
	})

	r.Route("/v1", func(r chi.Router) {
		r.With(sensitiveRL.Limit).Post("/otp/verify", otpH.Verify)
	})

	return r
}
