package domain

// Step1Data is the account step shared by both roles.
type Step1Data struct {
	FirstName string `json:"firstName" validate:"required,max=100,valid_name"`
	LastName  string `json:"lastName" validate:"required,max=100,valid_name"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
}

type StudentStep2Data struct {
	AcademicStatus AcademicStatus `json:"academicStatus" validate:"required,oneof=undergraduate graduate"`
	FieldOfStudy   string         `json:"fieldOfStudy" validate:"required,max=200,no_emoji"`
	CVStorageID    *string        `json:"cvStorageId,omitempty"`
	CVFileName     *string        `json:"cvFileName,omitempty" validate:"omitempty,max=255"`
}

type EmployerStep2Data struct {
	CompanyName string    `json:"companyName" validate:"required,max=200,no_emoji"`
	Position    string    `json:"position" validate:"required,max=200,no_emoji"`
	RankLevel   RankLevel `json:"rankLevel" validate:"required,oneof=mid senior lead manager director executive"`
}

type SignInRequest struct {
	Role     Role   `json:"role"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignUpRequest struct {
	Role     Role               `json:"role"`
	Account  Step1Data          `json:"account"`
	Student  *StudentStep2Data  `json:"student,omitempty"`
	Employer *EmployerStep2Data `json:"employer,omitempty"`
}

// Profile builds the role-tagged profile; the step-2 payload must match Role.
func (r SignUpRequest) Profile() (Profile, error) {
	switch r.Role {
	case RoleStudent:
		if r.Student == nil {
			return Profile{}, ErrProfileRequired
		}
		return StudentOf(StudentProfile{
			AcademicStatus: r.Student.AcademicStatus,
			FieldOfStudy:   r.Student.FieldOfStudy,
			CVStorageID:    r.Student.CVStorageID,
			CVFileName:     r.Student.CVFileName,
		}), nil
	case RoleEmployer:
		if r.Employer == nil {
			return Profile{}, ErrProfileRequired
		}
		return EmployerOf(EmployerProfile{
			CompanyName: r.Employer.CompanyName,
			Position:    r.Employer.Position,
			RankLevel:   r.Employer.RankLevel,
		}), nil
	default:
		return Profile{}, ErrProfileRequired
	}
}

func (r SignUpRequest) UpsertInput() (UpsertInput, error) {
	p, err := r.Profile()
	if err != nil {
		return UpsertInput{}, err
	}
	return UpsertInput{
		Email:     r.Account.Email,
		FirstName: r.Account.FirstName,
		LastName:  r.Account.LastName,
		Profile:   p,
	}, nil
}

type VerifySignUpRequest struct {
	SignUpRequest
	PendingID string `json:"pendingId" validate:"required"`
	Code      string `json:"code" validate:"required,len=6,numeric"`
}
