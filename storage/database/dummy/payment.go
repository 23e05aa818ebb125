package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/scholarlypay/core"
	"github.com/trezcool/scholarlypay/core/payment"
)

type paymentRepository struct {
	db *paymentTable
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) *paymentRepository {
	return &paymentRepository{db: db.payment}
}

func (repo *paymentRepository) query() []payment.Payment {
	pmts := make([]payment.Payment, 0, len(repo.db.table))
	for _, pmt := range repo.db.table {
		pmts = append(pmts, *pmt)
	}
	return pmts
}

// appendLocked inserts a record; the caller holds the table lock.
func (repo *paymentRepository) appendLocked(pmt payment.Payment) (payment.Payment, error) {
	if _, exists := repo.db.references[pmt.Reference]; exists {
		return payment.Payment{}, payment.ErrDuplicateReference
	}
	pmt.ID = uuid.New().String()
	repo.db.table[pmt.ID] = &pmt
	repo.db.references[pmt.Reference] = pmt.ID
	return pmt, nil
}

func (repo *paymentRepository) AppendPayment(_ context.Context, pmt payment.Payment, _ ...core.DBExecutor) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	return repo.appendLocked(pmt)
}

func (repo *paymentRepository) GetPayment(_ context.Context, id string, _ ...core.DBExecutor) (payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if pmt, ok := repo.db.table[id]; ok {
		return *pmt, nil
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (repo *paymentRepository) QueryPayments(_ context.Context, filter *payment.QueryFilter, _ ...core.DBExecutor) ([]payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	pmts := repo.query()

	if filter != nil {
		if filter.StudentID != "" {
			var filtered []payment.Payment
			for _, p := range pmts {
				if p.StudentID == filter.StudentID {
					filtered = append(filtered, p)
				}
			}
			pmts = filtered
		}
		if pmts != nil && filter.AdmissionNumber != "" {
			var filtered []payment.Payment
			for _, p := range pmts {
				if p.AdmissionNumber == filter.AdmissionNumber {
					filtered = append(filtered, p)
				}
			}
			pmts = filtered
		}
		if pmts != nil && filter.Reference != "" {
			var filtered []payment.Payment
			for _, p := range pmts {
				if p.Reference == filter.Reference {
					filtered = append(filtered, p)
				}
			}
			pmts = filtered
		}
		if pmts != nil && !filter.DateFrom.IsZero() {
			var filtered []payment.Payment
			timeUTC := filter.DateFrom.UTC()
			for _, p := range pmts {
				if p.Date.Equal(timeUTC) || p.Date.After(timeUTC) {
					filtered = append(filtered, p)
				}
			}
			pmts = filtered
		}
		if pmts != nil && !filter.DateTo.IsZero() {
			var filtered []payment.Payment
			timeUTC := filter.DateTo.UTC()
			for _, p := range pmts {
				if p.Date.Before(timeUTC) || p.Date.Equal(timeUTC) {
					filtered = append(filtered, p)
				}
			}
			pmts = filtered
		}
	}

	// most recent first
	sort.Slice(pmts, func(i, j int) bool { return pmts[i].Date.After(pmts[j].Date) })
	return pmts, nil
}
