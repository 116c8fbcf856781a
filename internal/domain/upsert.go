package domain

import (
	"fmt"
	"time"
)

// RolePolicy decides whether a stored User.role may change on later upserts.
type RolePolicy int

const (
	// RoleImmutable rejects a persist whose role differs from the stored one.
	RoleImmutable RolePolicy = iota
	// RoleLastWriterWins patches the role and replaces the profile variant.
	RoleLastWriterWins
)

// ApplyUpsert computes the state of a User aggregate after an upsert. It is
// pure: applying the same input twice at the same instant yields equal
// records, and the resulting profile variant always matches User.Role.
func ApplyUpsert(existing *UserRecord, in UpsertInput, id Identity, now time.Time, policy RolePolicy, newID func() string) (*UserRecord, error) {
	role := in.Role()
	if !role.IsValid() {
		return nil, ErrProfileRequired
	}
	if err := validateProfile(in.Profile); err != nil {
		return nil, err
	}
	if id.TokenIdentifier == "" {
		return nil, ErrUnauthorized
	}

	email := firstNonEmpty(in.Email, id.Email)
	if email == "" {
		return nil, ErrMissingEmail
	}

	var rec UserRecord
	if existing == nil {
		rec.User = User{
			ID:              newID(),
			TokenIdentifier: id.TokenIdentifier,
			CreatedAt:       now,
		}
	} else {
		if existing.User.Role != role && policy == RoleImmutable {
			return nil, &RoleLockedError{Stored: existing.User.Role, Requested: role}
		}
		rec.User = existing.User
	}

	rec.User.SubjectID = id.Subject
	rec.User.Email = email
	rec.User.FirstName = firstNonEmpty(in.FirstName, id.GivenName)
	rec.User.LastName = firstNonEmpty(in.LastName, id.FamilyName)
	rec.User.Role = role
	rec.User.UpdatedAt = now

	var prev Profile
	if existing != nil {
		prev = existing.Profile
	}

	switch role {
	case RoleStudent:
		next, _ := in.Profile.Student()
		sp := *next
		if old, ok := prev.Student(); ok {
			sp.ID = old.ID
		} else {
			sp.ID = newID()
		}
		sp.UserID = rec.User.ID
		sp.UpdatedAt = now
		rec.Profile = StudentOf(sp)
	case RoleEmployer:
		next, _ := in.Profile.Employer()
		ep := *next
		if old, ok := prev.Employer(); ok {
			ep.ID = old.ID
		} else {
			ep.ID = newID()
		}
		ep.UserID = rec.User.ID
		ep.UpdatedAt = now
		rec.Profile = EmployerOf(ep)
	}

	return &rec, nil
}

func validateProfile(p Profile) error {
	if sp, ok := p.Student(); ok {
		if !sp.AcademicStatus.IsValid() {
			return fmt.Errorf("%w: invalid academic status %q", ErrInvalidProfile, sp.AcademicStatus)
		}
		if sp.FieldOfStudy == "" {
			return fmt.Errorf("%w: field of study is required", ErrInvalidProfile)
		}
	}
	if ep, ok := p.Employer(); ok {
		if ep.CompanyName == "" || ep.Position == "" {
			return fmt.Errorf("%w: company name and position are required", ErrInvalidProfile)
		}
		if !ep.RankLevel.IsValid() {
			return fmt.Errorf("%w: invalid rank level %q", ErrInvalidProfile, ep.RankLevel)
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
