package domain

import (
	"context"
	"time"
)

// Role discriminates the two account kinds and selects the profile variant.
type Role string

const (
	RoleStudent  Role = "student"
	RoleEmployer Role = "employer"
)

func (r Role) IsValid() bool {
	return r == RoleStudent || r == RoleEmployer
}

// ParseRole mirrors the login tabs: anything but "employer" is the student tab.
func ParseRole(s string) Role {
	if Role(s) == RoleEmployer {
		return RoleEmployer
	}
	return RoleStudent
}

type AcademicStatus string

const (
	AcademicUndergraduate AcademicStatus = "undergraduate"
	AcademicGraduate      AcademicStatus = "graduate"
)

func (s AcademicStatus) IsValid() bool {
	return s == AcademicUndergraduate || s == AcademicGraduate
}

type RankLevel string

const (
	RankMid       RankLevel = "mid"
	RankSenior    RankLevel = "senior"
	RankLead      RankLevel = "lead"
	RankManager   RankLevel = "manager"
	RankDirector  RankLevel = "director"
	RankExecutive RankLevel = "executive"
)

// ValidRankLevels returns all valid rank levels
func ValidRankLevels() []RankLevel {
	return []RankLevel{RankMid, RankSenior, RankLead, RankManager, RankDirector, RankExecutive}
}

func (l RankLevel) IsValid() bool {
	for _, valid := range ValidRankLevels() {
		if l == valid {
			return true
		}
	}
	return false
}

// User is the application record for an identity-service account.
type User struct {
	ID              string    `json:"id"`
	TokenIdentifier string    `json:"token_identifier"` // issuer|subject, unique
	SubjectID       string    `json:"subject_id"`       // identity-service user id
	Email           string    `json:"email"`
	FirstName       string    `json:"first_name,omitempty"`
	LastName        string    `json:"last_name,omitempty"`
	Role            Role      `json:"role"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type StudentProfile struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	AcademicStatus AcademicStatus `json:"academic_status"`
	FieldOfStudy   string         `json:"field_of_study"`
	CVStorageID    *string        `json:"cv_storage_id,omitempty"`
	CVFileName     *string        `json:"cv_file_name,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type EmployerProfile struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	CompanyName string    `json:"company_name"`
	Position    string    `json:"position"`
	RankLevel   RankLevel `json:"rank_level"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Profile is the role-specific extension of a User. Exactly one variant is
// set and its kind is the profile's Role; the zero Profile holds neither.
type Profile struct {
	student  *StudentProfile
	employer *EmployerProfile
}

func StudentOf(p StudentProfile) Profile {
	return Profile{student: &p}
}

func EmployerOf(p EmployerProfile) Profile {
	return Profile{employer: &p}
}

func (p Profile) IsZero() bool {
	return p.student == nil && p.employer == nil
}

// Role reports the variant, or "" for the zero Profile.
func (p Profile) Role() Role {
	switch {
	case p.student != nil:
		return RoleStudent
	case p.employer != nil:
		return RoleEmployer
	default:
		return ""
	}
}

func (p Profile) Student() (*StudentProfile, bool) {
	return p.student, p.student != nil
}

func (p Profile) Employer() (*EmployerProfile, bool) {
	return p.employer, p.employer != nil
}

// UserRecord is the User aggregate together with its role profile.
type UserRecord struct {
	User    User
	Profile Profile
}

// CurrentUser is the read model returned to clients.
type CurrentUser struct {
	User            *User            `json:"user"`
	StudentProfile  *StudentProfile  `json:"studentProfile"`
	EmployerProfile *EmployerProfile `json:"employerProfile"`
}

func (r *UserRecord) View() *CurrentUser {
	if r == nil {
		return nil
	}
	u := r.User
	view := &CurrentUser{User: &u}
	if sp, ok := r.Profile.Student(); ok {
		cp := *sp
		view.StudentProfile = &cp
	}
	if ep, ok := r.Profile.Employer(); ok {
		cp := *ep
		view.EmployerProfile = &cp
	}
	return view
}

// Identity is what the application database learns from a verified
// authorization token.
type Identity struct {
	TokenIdentifier string
	Subject         string
	Email           string
	GivenName       string
	FamilyName      string
}

// UpsertInput is the role-tagged payload handed to the application database.
// Empty name/email fields fall back to the token's identity claims.
type UpsertInput struct {
	Email     string
	FirstName string
	LastName  string
	Profile   Profile
}

func (in UpsertInput) Role() Role {
	return in.Profile.Role()
}

type UpsertResult struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// ProfileStore is the application database as seen by the orchestrator.
// Every call is authorized by the bridged token; a token the database does
// not (yet) honor fails with ErrUnauthorized.
type ProfileStore interface {
	UpsertUser(ctx context.Context, token string, in UpsertInput) (UpsertResult, error)
	// CurrentUser returns nil, nil when the identity has no User yet.
	CurrentUser(ctx context.Context, token string) (*UserRecord, error)
}

// UserRepository persists UserRecords inside one unit of work.
type UserRepository interface {
	// WithinTx runs fn with a repository bound to a single transaction.
	WithinTx(ctx context.Context, fn func(tx UserRepository) error) error
	GetByTokenIdentifier(ctx context.Context, tokenIdentifier string, forUpdate bool) (*UserRecord, error)
	Save(ctx context.Context, rec *UserRecord) error
}
