package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"internify-backend/internal/domain"
	"internify-backend/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL error codes
const (
	pgUniqueViolation = "23505"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type userRepo struct {
	pool *pgxpool.Pool
	q    querier
}

func NewUserRepository(pool *pgxpool.Pool) domain.UserRepository {
	return &userRepo{pool: pool, q: pool}
}

func (r *userRepo) WithinTx(ctx context.Context, fn func(tx domain.UserRepository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(&userRepo{pool: r.pool, q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const selectUserRecord = `
	SELECT u.id, u.token_identifier, u.subject_id, u.email, u.first_name, u.last_name,
	       u.role, u.created_at, u.updated_at,
	       sp.id, sp.academic_status, sp.field_of_study, sp.cv_storage_id, sp.cv_file_name, sp.updated_at,
	       ep.id, ep.company_name, ep.position, ep.rank_level, ep.updated_at
	FROM users u
	LEFT JOIN student_profiles sp ON sp.user_id = u.id AND u.role = 'student'
	LEFT JOIN employer_profiles ep ON ep.user_id = u.id AND u.role = 'employer'
	WHERE u.token_identifier = $1`

func (r *userRepo) GetByTokenIdentifier(ctx context.Context, tokenIdentifier string, forUpdate bool) (*domain.UserRecord, error) {
	query := selectUserRecord
	if forUpdate {
		query += ` FOR UPDATE OF u`
	}

	var (
		u domain.User

		spID, spStatus, spField, spCVID, spCVName *string
		spUpdated                                 *time.Time

		epID, epCompany, epPosition, epRank *string
		epUpdated                           *time.Time
	)
	err := r.q.QueryRow(ctx, query, tokenIdentifier).Scan(
		&u.ID, &u.TokenIdentifier, &u.SubjectID, &u.Email, &u.FirstName, &u.LastName,
		&u.Role, &u.CreatedAt, &u.UpdatedAt,
		&spID, &spStatus, &spField, &spCVID, &spCVName, &spUpdated,
		&epID, &epCompany, &epPosition, &epRank, &epUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, apperror.Internal(err)
	}

	rec := &domain.UserRecord{User: u}
	switch {
	case spID != nil:
		rec.Profile = domain.StudentOf(domain.StudentProfile{
			ID:             *spID,
			UserID:         u.ID,
			AcademicStatus: domain.AcademicStatus(deref(spStatus)),
			FieldOfStudy:   deref(spField),
			CVStorageID:    spCVID,
			CVFileName:     spCVName,
			UpdatedAt:      derefTime(spUpdated),
		})
	case epID != nil:
		rec.Profile = domain.EmployerOf(domain.EmployerProfile{
			ID:          *epID,
			UserID:      u.ID,
			CompanyName: deref(epCompany),
			Position:    deref(epPosition),
			RankLevel:   domain.RankLevel(deref(epRank)),
			UpdatedAt:   derefTime(epUpdated),
		})
	}
	return rec, nil
}

// Save writes the user row and its single role profile, removing any profile
// of the other kind. Call it inside WithinTx.
func (r *userRepo) Save(ctx context.Context, rec *domain.UserRecord) error {
	u := rec.User
	_, err := r.q.Exec(ctx, `
		INSERT INTO users (id, token_identifier, subject_id, email, first_name, last_name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			subject_id = EXCLUDED.subject_id,
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			role = EXCLUDED.role,
			updated_at = EXCLUDED.updated_at`,
		u.ID, u.TokenIdentifier, u.SubjectID, u.Email, u.FirstName, u.LastName, u.Role, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperror.Conflict("A user for this identity already exists")
		}
		return apperror.Internal(err)
	}

	if sp, ok := rec.Profile.Student(); ok {
		if _, err := r.q.Exec(ctx, `DELETE FROM employer_profiles WHERE user_id = $1`, u.ID); err != nil {
			return apperror.Internal(err)
		}
		_, err = r.q.Exec(ctx, `
			INSERT INTO student_profiles (id, user_id, academic_status, field_of_study, cv_storage_id, cv_file_name, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (user_id) DO UPDATE SET
				academic_status = EXCLUDED.academic_status,
				field_of_study = EXCLUDED.field_of_study,
				cv_storage_id = EXCLUDED.cv_storage_id,
				cv_file_name = EXCLUDED.cv_file_name,
				updated_at = EXCLUDED.updated_at`,
			sp.ID, u.ID, sp.AcademicStatus, sp.FieldOfStudy, sp.CVStorageID, sp.CVFileName, sp.UpdatedAt,
		)
		if err != nil {
			return apperror.Internal(err)
		}
		return nil
	}

	if ep, ok := rec.Profile.Employer(); ok {
		if _, err := r.q.Exec(ctx, `DELETE FROM student_profiles WHERE user_id = $1`, u.ID); err != nil {
			return apperror.Internal(err)
		}
		_, err = r.q.Exec(ctx, `
			INSERT INTO employer_profiles (id, user_id, company_name, position, rank_level, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (user_id) DO UPDATE SET
				company_name = EXCLUDED.company_name,
				position = EXCLUDED.position,
				rank_level = EXCLUDED.rank_level,
				updated_at = EXCLUDED.updated_at`,
			ep.ID, u.ID, ep.CompanyName, ep.Position, ep.RankLevel, ep.UpdatedAt,
		)
		if err != nil {
			return apperror.Internal(err)
		}
		return nil
	}

	return domain.ErrProfileRequired
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
