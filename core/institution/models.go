package institution

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/scholarlypay/core"
)

// Role is fixed: institution-portal identities are always admins.
const Role = "admin"

// Institution is created at signup and immutable thereafter.
type Institution struct {
	ID           string    `json:"id"`
	SchoolName   string    `json:"school_name"`
	AdminEmail   string    `json:"admin_email"`
	Role         string    `json:"role"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

func (i *Institution) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	i.PasswordHash = hash
	return nil
}

func (i *Institution) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(i.PasswordHash, []byte(pwd))
}

// NewInstitution contains information needed to register an institution account.
type NewInstitution struct {
	SchoolName string `json:"school_name" validate:"required"`
	AdminEmail string `json:"admin_email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
}

func (ni *NewInstitution) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	ni.SchoolName = core.CleanString(ni.SchoolName)
	ni.AdminEmail = core.CleanString(ni.AdminEmail, true /* lower */)

	if err := validate.Struct(ni); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, ni.AdminEmail)
}
