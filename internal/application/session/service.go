package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/otp-gateway/internal/domain"
	"github.com/otp-gateway/internal/pkg/id"
)

// Repository is the session store the service needs.
type Repository interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// EventPublisher announces new sessions.
type EventPublisher interface {
	PublishSignIn(ctx context.Context, s *domain.Session) error
}

type Service interface {
	// Establish stores a session issued by the auth provider and returns it with its id set.
	Establish(ctx context.Context, s *domain.Session) (*domain.Session, error)
	GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

type ServiceDeps struct {
	SessionRepo Repository
	Events      EventPublisher // optional
}

type service struct {
	sessionRepo Repository
	events      EventPublisher
	now         func() time.Time
}

func NewService(deps ServiceDeps) Service {
	return &service{
		sessionRepo: deps.SessionRepo,
		events:      deps.Events,
		now:         time.Now,
	}
}

func (s *service) Establish(ctx context.Context, sess *domain.Session) (*domain.Session, error) {
	if sess == nil || sess.AccessToken == "" {
		return nil, fmt.Errorf("no provider session to establish: %w", domain.ErrBadRequest)
	}
	stored := *sess
	stored.SessionID = id.New()
	stored.CreatedAt = s.now().UTC()
	if err := s.sessionRepo.Put(ctx, &stored); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	if s.events != nil {
		if err := s.events.PublishSignIn(ctx, &stored); err != nil {
			slog.WarnContext(ctx, "failed to publish sign-in event", "session_id", stored.SessionID, "user_id", stored.UserID, "err", err)
		}
	}
	return &stored, nil
}

func (s *service) GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("no session: %w", domain.ErrUnauthorized)
	}
	sess, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessionRepo.Delete(ctx, sessionID)
}
