package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/otp-gateway/internal/config"
	"github.com/otp-gateway/internal/domain"
	jwtinfra "github.com/otp-gateway/internal/infrastructure/jwt"
)

// maxBodyBytes caps how much of a provider response is read.
const maxBodyBytes = 1 << 20

// TokenVerifier validates access tokens returned by the provider.
type TokenVerifier interface {
	Verify(token string) (*jwtinfra.Claims, error)
}

// Client talks to a GoTrue-compatible auth API (`/auth/v1`).
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	tokens  TokenVerifier
	now     func() time.Time
}

// NewClient builds a provider client. tokens may be nil, in which case the
// session fields are taken from the response body as-is.
func NewClient(cfg *config.Config, tokens TokenVerifier) *Client {
	return &Client{
		baseURL: cfg.AuthURL,
		apiKey:  cfg.AuthAnonKey,
		http:    &http.Client{Timeout: cfg.AuthHTTPTimeout},
		tokens:  tokens,
		now:     time.Now,
	}
}

type verifyRequest struct {
	Type  domain.VerificationKind `json:"type"`
	Email string                  `json:"email"`
	Token string                  `json:"token"`
}

type otpRequest struct {
	Email      string `json:"email"`
	CreateUser bool   `json:"create_user"`
}

type sessionResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// errorResponse covers both the current (`msg`, `error_code`) and the legacy
// OAuth-style (`error`, `error_description`) error bodies.
type errorResponse struct {
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e errorResponse) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// VerifyOTP checks code for subject and returns the session the provider issued.
// Any failure is a *domain.ProviderError; its Message is empty when the provider
// gave no readable reason (transport errors, non-JSON bodies).
func (c *Client) VerifyOTP(ctx context.Context, subject, code string, kind domain.VerificationKind) (*domain.Session, error) {
	status, body, err := c.post(ctx, "/auth/v1/verify", verifyRequest{Type: kind, Email: subject, Token: code})
	if err != nil {
		return nil, &domain.ProviderError{Err: err}
	}
	if status/100 != 2 {
		return nil, providerError(status, body)
	}

	var resp sessionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.ProviderError{Status: status, Err: fmt.Errorf("decode session: %w", err)}
	}
	if resp.AccessToken == "" {
		return nil, &domain.ProviderError{Status: status, Err: errors.New("no session in response")}
	}

	sess := &domain.Session{
		UserID:       resp.User.ID,
		Email:        resp.User.Email,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    resp.ExpiresAt,
	}
	if sess.ExpiresAt == 0 && resp.ExpiresIn > 0 {
		sess.ExpiresAt = c.now().Add(time.Duration(resp.ExpiresIn) * time.Second).Unix()
	}
	if sess.Email == "" {
		sess.Email = subject
	}

	if c.tokens != nil {
		claims, err := c.tokens.Verify(resp.AccessToken)
		if err != nil {
			return nil, &domain.ProviderError{Status: status, Err: err}
		}
		sess.UserID = claims.Subject
		if claims.Email != "" {
			sess.Email = claims.Email
		}
		if claims.ExpiresAt != nil {
			sess.ExpiresAt = claims.ExpiresAt.Unix()
		}
	}
	return sess, nil
}

// SendOTP asks the provider to email a one-time code to email, creating the
// user on first sign-in.
func (c *Client) SendOTP(ctx context.Context, email string) error {
	status, body, err := c.post(ctx, "/auth/v1/otp", otpRequest{Email: email, CreateUser: true})
	if err != nil {
		return &domain.ProviderError{Err: err}
	}
	if status/100 != 2 {
		return providerError(status, body)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (int, []byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func providerError(status int, body []byte) *domain.ProviderError {
	pe := &domain.ProviderError{Status: status}
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		pe.Err = fmt.Errorf("unexpected response (status %d)", status)
		return pe
	}
	pe.Code = er.ErrorCode
	if pe.Code == "" {
		pe.Code = er.Error
	}
	pe.Message = er.text()
	return pe
}
