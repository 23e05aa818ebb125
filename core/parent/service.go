package parent

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/scholarlypay/core"
)

var (
	// errors
	ErrNotFound    = errors.New("parent not found")
	ErrEmailExists = errors.New("a parent with this email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, exec ...core.DBExecutor) error
		CreateParent(ctx context.Context, p Parent, exec ...core.DBExecutor) (Parent, error)
		GetParent(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Parent, error)
	}

	// GetFilter looks a Parent up by exactly one of its unique keys.
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
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, np NewParent) (Parent, error) {
	p := Parent{
		FirstName:       np.FirstName,
		LastName:        np.LastName,
		Email:           np.Email,
		AdmissionNumber: np.AdmissionNumber,
		Role:            Role,
		CreatedAt:       time.Now().UTC(),
	}
	if err := p.SetPassword(np.Password); err != nil {
		return Parent{}, err
	}
	return svc.repo.CreateParent(ctx, p)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Parent, error) {
	return svc.repo.GetParent(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Parent, error) {
	return svc.repo.GetParent(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}
