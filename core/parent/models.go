package parent

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/scholarlypay/core"
)

// Role is fixed: family-portal identities are always parents.
const Role = "parent"

// Parent is one family-portal profile per authenticated identity.
// AdmissionNumber links to the child's Student record by value, not reference.
type Parent struct {
	ID              string    `json:"id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Email           string    `json:"email"`
	AdmissionNumber string    `json:"admission_number"`
	Role            string    `json:"role"`
	PasswordHash    []byte    `json:"-"`
	CreatedAt       time.Time `json:"created_at"` // UTC
}

func (p *Parent) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.PasswordHash = hash
	return nil
}

func (p *Parent) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(p.PasswordHash, []byte(pwd))
}

func (p *Parent) FullName() string {
	return core.CleanString(p.FirstName + " " + p.LastName)
}

// NewParent contains information needed to register a family account.
type NewParent struct {
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	AdmissionNumber string `json:"admission_number" validate:"omitempty,admnum"`
}

func (np *NewParent) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	np.FirstName = core.CleanString(np.FirstName)
	np.LastName = core.CleanString(np.LastName)
	np.Email = core.CleanString(np.Email, true /* lower */)
	np.AdmissionNumber = core.CleanString(np.AdmissionNumber)

	if err := validate.Struct(np); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, np.Email)
}
