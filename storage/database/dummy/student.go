package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/scholarlypay/core"
	"github.com/trezcool/scholarlypay/core/payment"
	"github.com/trezcool/scholarlypay/core/student"
)

type studentRepository struct {
	db       *studentTable
	payments *paymentRepository
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db.student, payments: NewPaymentRepository(db)}
}

func (repo *studentRepository) query() []student.Student {
	students := make([]student.Student, 0, len(repo.db.table))
	for _, st := range repo.db.table {
		students = append(students, *st)
	}
	return students
}

func (repo *studentRepository) CheckAdmissionNumberUniqueness(_ context.Context, admissionNumber string, _ ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, st := range repo.query() {
		if strings.EqualFold(st.AdmissionNumber, admissionNumber) {
			return student.ErrAdmissionNumberExists
		}
	}
	return nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, st student.Student, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	st.ID = uuid.New().String()
	repo.db.table[st.ID] = &st
	return st, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, filter student.GetFilter, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if st, ok := repo.db.table[filter.ID]; ok {
			return *st, nil
		}
		return student.Student{}, student.ErrNotFound
	}
	for _, st := range repo.query() {
		if st.AdmissionNumber == filter.AdmissionNumber {
			return st, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter *student.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := repo.query()

	if filter != nil {
		// students with search keyword matching Name or AdmissionNumber ?
		if filter.Search != "" {
			var filtered []student.Student
			for _, st := range students {
				if strings.Contains(strings.ToLower(st.Name), strings.ToLower(filter.Search)) ||
					strings.Contains(strings.ToLower(st.AdmissionNumber), strings.ToLower(filter.Search)) {
					filtered = append(filtered, st)
				}
			}
			students = filtered
		}
		if students != nil && filter.Status != "" {
			var filtered []student.Student
			for _, st := range students {
				if strings.EqualFold(string(st.Status), filter.Status) {
					filtered = append(filtered, st)
				}
			}
			students = filtered
		}
		if students != nil && filter.Grade != "" {
			var filtered []student.Student
			for _, st := range students {
				if strings.EqualFold(st.Grade, filter.Grade) {
					filtered = append(filtered, st)
				}
			}
			students = filtered
		}
	}

	sort.Slice(students, func(i, j int) bool { return students[i].Name < students[j].Name })
	return students, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, st student.Student, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[st.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	st.CreatedAt = orig.CreatedAt
	repo.db.table[st.ID] = &st
	return st, nil
}

func (repo *studentRepository) DeleteStudentsByID(_ context.Context, ids []string, _ ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			cnt++
		}
	}
	return cnt, nil
}

// SettleBalance holds both table locks so the balance increment and the
// ledger append land together or not at all.
func (repo *studentRepository) SettleBalance(_ context.Context, studentID string, amount int64, pmt payment.Payment) (student.Student, payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.payments.db.Lock()
	defer repo.payments.db.Unlock()

	st, ok := repo.db.table[studentID]
	if !ok {
		return student.Student{}, payment.Payment{}, student.ErrNotFound
	}

	// append the ledger record first: a duplicate reference must leave the
	// student untouched
	pmt, err := repo.payments.appendLocked(pmt)
	if err != nil {
		return student.Student{}, payment.Payment{}, err
	}

	st.PaidAmount += amount
	st.Status = student.StatusFor(st.TotalFees, st.PaidAmount)
	repo.db.table[st.ID] = st
	return *st, pmt, nil
}
