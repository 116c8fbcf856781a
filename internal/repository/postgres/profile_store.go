package postgres

import (
	"context"
	"errors"
	"fmt"

	"internify-backend/internal/domain"
	"internify-backend/pkg/auth"
	"internify-backend/pkg/clock"
	"internify-backend/pkg/logger"

	"github.com/google/uuid"
)

// TokenVerifier checks a bridged authorization token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

type profileStore struct {
	users    domain.UserRepository
	verifier TokenVerifier
	clock    clock.Clock
	policy   domain.RolePolicy
	newID    func() string
}

// NewProfileStore returns the application database as the orchestrator sees
// it. Every call first checks the authorization token, standing in for the
// database's access policy.
func NewProfileStore(users domain.UserRepository, verifier TokenVerifier, clk clock.Clock, policy domain.RolePolicy) domain.ProfileStore {
	if clk == nil {
		clk = clock.New()
	}
	return &profileStore{
		users:    users,
		verifier: verifier,
		clock:    clk,
		policy:   policy,
		newID:    uuid.NewString,
	}
}

func (s *profileStore) UpsertUser(ctx context.Context, token string, in domain.UpsertInput) (domain.UpsertResult, error) {
	id, err := s.identify(ctx, token)
	if err != nil {
		return domain.UpsertResult{}, err
	}

	var result domain.UpsertResult
	err = s.users.WithinTx(ctx, func(tx domain.UserRepository) error {
		existing, err := tx.GetByTokenIdentifier(ctx, id.TokenIdentifier, true)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		rec, err := domain.ApplyUpsert(existing, in, id, s.clock.Now().UTC(), s.policy, s.newID)
		if err != nil {
			return err
		}
		if err := tx.Save(ctx, rec); err != nil {
			return err
		}

		result = domain.UpsertResult{UserID: rec.User.ID, Role: rec.User.Role}
		return nil
	})
	if err != nil {
		return domain.UpsertResult{}, err
	}

	logger.Log.Info("user upserted", "user_id", result.UserID, "role", result.Role)
	return result, nil
}

func (s *profileStore) CurrentUser(ctx context.Context, token string) (*domain.UserRecord, error) {
	id, err := s.identify(ctx, token)
	if err != nil {
		return nil, err
	}

	rec, err := s.users.GetByTokenIdentifier(ctx, id.TokenIdentifier, false)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

func (s *profileStore) identify(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := s.verifier.Verify(ctx, token)
	if err != nil {
		logger.Log.Debug("authorization token rejected", "error", err)
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return domain.Identity{
		TokenIdentifier: claims.TokenIdentifier(),
		Subject:         claims.Subject,
		Email:           claims.Email,
		GivenName:       claims.GivenName,
		FamilyName:      claims.FamilyName,
	}, nil
}
