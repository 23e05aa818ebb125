package payment

import (
	"context"
	"errors"

	"github.com/trezcool/scholarlypay/core"
)

var (
	// errors
	ErrNotFound = errors.New("payment not found")
	// ErrDuplicateReference guards the ledger's idempotency key: one gateway
	// reference settles at most once.
	ErrDuplicateReference = errors.New("a payment with this reference already exists")
)

type (
	Repository interface {
		// AppendPayment inserts a new ledger record. It never updates;
		// a reference collision returns ErrDuplicateReference.
		AppendPayment(ctx context.Context, pmt Payment, exec ...core.DBExecutor) (Payment, error)
		GetPayment(ctx context.Context, id string, exec ...core.DBExecutor) (Payment, error)
		// QueryPayments applies AND operation on available QueryFilter fields,
		// most recent first.
		QueryPayments(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Payment, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Get(ctx context.Context, id string) (Payment, error) {
	return svc.repo.GetPayment(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Payment, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryPayments(ctx, filter)
}

// Ledger returns the payment history for one student, used for history and receipts.
func (svc *Service) Ledger(ctx context.Context, studentID string) ([]Payment, error) {
	return svc.repo.QueryPayments(ctx, &QueryFilter{StudentID: studentID})
}
