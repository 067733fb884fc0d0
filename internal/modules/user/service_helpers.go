package user

import (
	"context"
	"errors"

	"github.com/delordemm1/go-identity-core/internal/events"
)

// internal passes domain errors through and wraps anything else as ErrInternal.
func (s *service) internal(op string, err error) error {
	var de *DomainError
	if errors.As(err, &de) {
		return err
	}
	s.logger.Error(op+" failed", "error", err)
	return ErrInternal.WithCause(err)
}

// issueToken expires any live token of the same purpose for the user, then stores a new one.
// At most one live token exists per (user, purpose).
func (s *service) issueToken(ctx context.Context, userID string, purpose Purpose, consent *ConsentDetails) (*EphemeralToken, error) {
	now := s.now()
	if _, err := s.tokens.InvalidateAllForUser(ctx, purpose, userID, now); err != nil {
		return nil, s.internal("invalidate tokens", err)
	}
	plaintext, err := s.credentials.GenerateResetToken()
	if err != nil {
		return nil, s.internal("generate token", err)
	}
	t, err := NewEphemeralToken(userID, purpose, plaintext, now)
	if err != nil {
		return nil, err
	}
	t.Consent = consent
	if err := s.tokens.Save(ctx, t); err != nil {
		return nil, s.internal("save token", err)
	}
	return t, nil
}

// redeem looks a token up and consumes it in memory. The caller persists it with
// tokens.MarkUsed once every other precondition holds, so a failed workflow leaves the token live.
func (s *service) redeem(ctx context.Context, purpose Purpose, plaintext string) (*EphemeralToken, error) {
	if plaintext == "" {
		return nil, ErrTokenNotFound
	}
	t, err := s.tokens.FindByToken(ctx, purpose, plaintext)
	if err != nil {
		return nil, s.internal("find token", err)
	}
	if err := t.Consume(s.now()); err != nil {
		return nil, err
	}
	return t, nil
}

// publish is fire-and-forget: failures are logged, never returned.
func (s *service) publish(ctx context.Context, evs ...events.Event) {
	if s.events == nil || len(evs) == 0 {
		return
	}
	var err error
	if len(evs) == 1 {
		err = s.events.Publish(ctx, evs[0])
	} else {
		err = s.events.PublishBatch(ctx, evs)
	}
	if err != nil {
		s.logger.Error("failed to publish event", "event", evs[0].EventName(), "error", err)
	}
}

// notify sends in the background, detached from the request, and logs a failure.
func (s *service) notify(ctx context.Context, userID, what string, send func(context.Context) error) {
	if s.notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			s.logger.Error("failed to send "+what+" email", "user_id", userID, "error", err)
		}
	}()
}

// Wait blocks until every background notification has returned.
func (s *service) Wait() {
	s.inflight.Wait()
}
