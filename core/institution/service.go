package institution

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/scholarlypay/core"
)

var (
	// errors
	ErrNotFound    = errors.New("institution not found")
	ErrEmailExists = errors.New("an institution with this admin email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, exec ...core.DBExecutor) error
		CreateInstitution(ctx context.Context, inst Institution, exec ...core.DBExecutor) (Institution, error)
		GetInstitution(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Institution, error)
	}

	// GetFilter looks an Institution up by exactly one of its unique keys.
	GetFilter struct {
		ID    string
		Email string
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckEmailUniqueness(ctx context.Context, email string) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "admin_email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ni NewInstitution) (Institution, error) {
	inst := Institution{
		SchoolName: ni.SchoolName,
		AdminEmail: ni.AdminEmail,
		Role:       Role,
		CreatedAt:  time.Now().UTC(),
	}
	if err := inst.SetPassword(ni.Password); err != nil {
		return Institution{}, err
	}
	return svc.repo.CreateInstitution(ctx, inst)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Institution, error) {
	return svc.repo.GetInstitution(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Institution, error) {
	return svc.repo.GetInstitution(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}
