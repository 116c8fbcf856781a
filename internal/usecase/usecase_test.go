package usecase_test

import (
	"context"
	"time"

	"internify-backend/internal/domain"
	"internify-backend/pkg/clock"

	"github.com/stretchr/testify/mock"
)

// Mock collaborators
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) CreateAccount(ctx context.Context, creds domain.SignUpCredentials) (domain.AuthAttempt, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(domain.AuthAttempt), args.Error(1)
}

func (m *MockIdentity) VerifyCode(ctx context.Context, pendingID, code string) (domain.AuthAttempt, error) {
	args := m.Called(ctx, pendingID, code)
	return args.Get(0).(domain.AuthAttempt), args.Error(1)
}

func (m *MockIdentity) SignIn(ctx context.Context, creds domain.Credentials) (domain.AuthAttempt, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(domain.AuthAttempt), args.Error(1)
}

func (m *MockIdentity) ActivateSession(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *MockIdentity) SignOut(ctx context.Context, sessionID, redirectTarget string) error {
	return m.Called(ctx, sessionID, redirectTarget).Error(0)
}

func (m *MockIdentity) AuthorizationToken(ctx context.Context, sessionID, audience string) (string, error) {
	args := m.Called(ctx, sessionID, audience)
	return args.String(0), args.Error(1)
}

type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) UpsertUser(ctx context.Context, token string, in domain.UpsertInput) (domain.UpsertResult, error) {
	args := m.Called(ctx, token, in)
	return args.Get(0).(domain.UpsertResult), args.Error(1)
}

func (m *MockProfileStore) CurrentUser(ctx context.Context, token string) (*domain.UserRecord, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserRecord), args.Error(1)
}

func newFakeClock() *clock.Fake {
	return clock.NewFake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
}

// tokenAfter makes AuthorizationToken return "" for the first n-1 polls and
// tok from poll n on.
func tokenAfter(m *MockIdentity, sessionID string, n int, tok string) {
	if n > 1 {
		m.On("AuthorizationToken", mock.Anything, sessionID, "convex").Return("", nil).Times(n - 1)
	}
	m.On("AuthorizationToken", mock.Anything, sessionID, "convex").Return(tok, nil)
}

func recordWithRole(role domain.Role) *domain.UserRecord {
	rec := &domain.UserRecord{User: domain.User{ID: "user-1", Email: "a@b.com", Role: role}}
	if role == domain.RoleEmployer {
		rec.Profile = domain.EmployerOf(domain.EmployerProfile{CompanyName: "Acme", Position: "CTO", RankLevel: domain.RankExecutive})
	} else {
		rec.Profile = domain.StudentOf(domain.StudentProfile{AcademicStatus: domain.AcademicUndergraduate, FieldOfStudy: "CS"})
	}
	return rec
}
