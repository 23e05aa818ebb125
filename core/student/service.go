package student

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/scholarlypay/core"
	"github.com/trezcool/scholarlypay/core/payment"
)

var (
	// errors
	ErrNotFound              = errors.New("student not found")
	ErrAdmissionNumberExists = errors.New("a student with this admission number already exists")
)

type (
	Repository interface {
		CheckAdmissionNumberUniqueness(ctx context.Context, admissionNumber string, exec ...core.DBExecutor) error
		CreateStudent(ctx context.Context, st Student, exec ...core.DBExecutor) (Student, error)
		GetStudent(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of
		// Student.Name or Student.AdmissionNumber.
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Student, error)
		UpdateStudent(ctx context.Context, st Student, exec ...core.DBExecutor) (Student, error)
		DeleteStudentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)

		// SettleBalance applies a balance increment and appends its ledger
		// record as a single unit: paidAmount += amount, status re-derived via
		// StatusFor, pmt inserted — all or nothing. A reference collision on
		// the ledger returns payment.ErrDuplicateReference and leaves the
		// student untouched.
		SettleBalance(ctx context.Context, studentID string, amount int64, pmt payment.Payment) (Student, payment.Payment, error)
	}

	Service struct {
		repo Repository
		conf *core.Config
	}
)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{repo: repo, conf: conf}
}

func (svc *Service) CheckAdmissionNumberUniqueness(ctx context.Context, admissionNumber string) error {
	if err := svc.repo.CheckAdmissionNumberUniqueness(ctx, admissionNumber); err != nil {
		if err == ErrAdmissionNumberExists {
			return core.NewValidationError(err, core.FieldError{Field: "admission_number", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	st := Student{
		Name:            ns.Name,
		AdmissionNumber: ns.AdmissionNumber,
		Grade:           ns.Grade,
		Year:            ns.Year,
		Term:            ns.Term,
		Gender:          ns.Gender,
		DOB:             ns.DOB,
		Address:         ns.Address,
		ParentName:      ns.ParentName,
		ParentEmail:     ns.ParentEmail,
		ParentPhone:     ns.ParentPhone,
		Background:      ns.Background,
		MedicalNotes:    ns.MedicalNotes,
		TotalFees:       ns.TotalFees,
		PaidAmount:      ns.PaidAmount,
		CreatedAt:       time.Now().UTC(),
	}
	// "Pending" is set here and only here: a brand-new record with no payment yet.
	if ns.PaidAmount == 0 {
		st.Status = StatusPending
	} else {
		st.Status = StatusFor(ns.TotalFees, ns.PaidAmount)
	}
	return svc.repo.CreateStudent(ctx, st)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByAdmissionNumber(ctx context.Context, admissionNumber string) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{AdmissionNumber: core.CleanString(admissionNumber)})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	orig, err := svc.repo.GetStudent(ctx, GetFilter{ID: id})
	if err != nil {
		return Student{}, err
	}

	orig.Name = us.Name
	orig.Grade = us.Grade
	orig.Year = us.Year
	orig.Term = us.Term
	orig.Address = us.Address
	orig.ParentName = us.ParentName
	orig.ParentEmail = us.ParentEmail
	orig.ParentPhone = us.ParentPhone
	orig.Background = us.Background
	orig.MedicalNotes = us.MedicalNotes
	if us.TotalFees != nil {
		orig.TotalFees = *us.TotalFees
		// fee change moves the goalposts: re-derive unless still untouched
		if orig.Status != StatusPending {
			orig.Status = StatusFor(orig.TotalFees, orig.PaidAmount)
		}
	}
	return svc.repo.UpdateStudent(ctx, orig)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteStudentsByID(ctx, ids)
	return err
}

// RecordManualPayment is the institution-side "Add Payment" entry: the same
// atomic settlement write the Balance Engine uses, with a staff-supplied amount.
func (svc *Service) RecordManualPayment(ctx context.Context, studentID string, entry PaymentEntry) (Student, payment.Payment, error) {
	st, err := svc.repo.GetStudent(ctx, GetFilter{ID: studentID})
	if err != nil {
		return Student{}, payment.Payment{}, err
	}

	method := entry.Method
	if method == "" {
		method = "manual"
	}
	ref := entry.Reference
	if ref == "" {
		ref = "MAN-" + strings.ToUpper(uuid.New().String()[:8])
	}

	now := time.Now().UTC()
	pmt := payment.Payment{
		StudentID:       st.ID,
		AdmissionNumber: st.AdmissionNumber,
		Amount:          entry.Amount,
		Currency:        svc.conf.Currency,
		Reference:       ref,
		Status:          payment.StatusSuccess,
		Date:            now,
		Email:           st.ParentEmail,
		Method:          method,
		CreatedAt:       now,
	}
	return svc.repo.SettleBalance(ctx, st.ID, entry.Amount, pmt)
}

// FeesSummary backs the institution dashboard cards.
type FeesSummary struct {
	TotalCollected   int64 `json:"total_collected"`
	TotalOutstanding int64 `json:"total_outstanding"`
	StudentCount     int   `json:"student_count"`
	OwingCount       int   `json:"owing_count"`
}

func (svc *Service) Summary(ctx context.Context) (FeesSummary, error) {
	students, err := svc.repo.QueryStudents(ctx, nil, nil)
	if err != nil {
		return FeesSummary{}, err
	}

	var sum FeesSummary
	sum.StudentCount = len(students)
	for _, st := range students {
		sum.TotalCollected += st.PaidAmount
		outstanding := st.TotalFees - st.PaidAmount
		sum.TotalOutstanding += outstanding
		if outstanding > 0 {
			sum.OwingCount++
		}
	}
	return sum, nil
}
