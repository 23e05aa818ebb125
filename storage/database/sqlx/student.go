package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/scholarlypay/core"
	"github.com/trezcool/scholarlypay/core/payment"
	"github.com/trezcool/scholarlypay/core/student"
)

const (
	studentColumns = `"id", "name", "admission_number", "grade", "year", "term", "gender", "dob", ` +
		`"address", "parent_name", "parent_email", "parent_phone", "background", "medical_notes", ` +
		`"total_fees", "paid_amount", "status", "created_at"`

	insertStudentSQL = `INSERT INTO "student" (` + studentColumns + `) ` +
		`VALUES (:id, :name, :admission_number, :grade, :year, :term, :gender, :dob, ` +
		`:address, :parent_name, :parent_email, :parent_phone, :background, :medical_notes, ` +
		`:total_fees, :paid_amount, :status, :created_at)`

	updateStudentSQL = `UPDATE "student" SET "name" = :name, "grade" = :grade, "year" = :year, ` +
		`"term" = :term, "gender" = :gender, "dob" = :dob, "address" = :address, ` +
		`"parent_name" = :parent_name, "parent_email" = :parent_email, "parent_phone" = :parent_phone, ` +
		`"background" = :background, "medical_notes" = :medical_notes, "total_fees" = :total_fees, ` +
		`"paid_amount" = :paid_amount, "status" = :status WHERE "id" = :id`
)

type studentRow struct {
	ID              string      `db:"id"`
	Name            null.String `db:"name"`
	AdmissionNumber null.String `db:"admission_number"`
	Grade           null.String `db:"grade"`
	Year            null.String `db:"year"`
	Term            null.String `db:"term"`
	Gender          null.String `db:"gender"`
	DOB             null.Time   `db:"dob"`
	Address         null.String `db:"address"`
	ParentName      null.String `db:"parent_name"`
	ParentEmail     null.String `db:"parent_email"`
	ParentPhone     null.String `db:"parent_phone"`
	Background      null.String `db:"background"`
	MedicalNotes    null.String `db:"medical_notes"`
	TotalFees       int64       `db:"total_fees"`
	PaidAmount      int64       `db:"paid_amount"`
	Status          null.String `db:"status"`
	CreatedAt       time.Time   `db:"created_at"`
}

func (r studentRow) student() student.Student {
	return student.Student{
		ID:              r.ID,
		Name:            r.Name.String,
		AdmissionNumber: r.AdmissionNumber.String,
		Grade:           r.Grade.String,
		Year:            r.Year.String,
		Term:            r.Term.String,
		Gender:          r.Gender.String,
		DOB:             r.DOB.Time,
		Address:         r.Address.String,
		ParentName:      r.ParentName.String,
		ParentEmail:     r.ParentEmail.String,
		ParentPhone:     r.ParentPhone.String,
		Background:      r.Background.String,
		MedicalNotes:    r.MedicalNotes.String,
		TotalFees:       r.TotalFees,
		PaidAmount:      r.PaidAmount,
		Status:          student.Status(r.Status.String),
		CreatedAt:       r.CreatedAt,
	}
}

func newStudentRow(st student.Student) studentRow {
	return studentRow{
		ID:              st.ID,
		Name:            null.NewString(st.Name, st.Name != ""),
		AdmissionNumber: null.NewString(st.AdmissionNumber, st.AdmissionNumber != ""),
		Grade:           null.NewString(st.Grade, st.Grade != ""),
		Year:            null.NewString(st.Year, st.Year != ""),
		Term:            null.NewString(st.Term, st.Term != ""),
		Gender:          null.NewString(st.Gender, st.Gender != ""),
		DOB:             null.NewTime(st.DOB.UTC(), !st.DOB.IsZero()),
		Address:         null.NewString(st.Address, st.Address != ""),
		ParentName:      null.NewString(st.ParentName, st.ParentName != ""),
		ParentEmail:     null.NewString(st.ParentEmail, st.ParentEmail != ""),
		ParentPhone:     null.NewString(st.ParentPhone, st.ParentPhone != ""),
		Background:      null.NewString(st.Background, st.Background != ""),
		MedicalNotes:    null.NewString(st.MedicalNotes, st.MedicalNotes != ""),
		TotalFees:       st.TotalFees,
		PaidAmount:      st.PaidAmount,
		Status:          null.NewString(string(st.Status), st.Status != ""),
		CreatedAt:       st.CreatedAt.UTC(),
	}
}

type studentRepository struct {
	db       *sqlx.DB
	payments *paymentRepository
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db, payments: NewPaymentRepository(db)}
}

// trapNoRowsErr maps psql "no rows" err to student.ErrNotFound
func (repo *studentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return student.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *studentRepository) CheckAdmissionNumberUniqueness(ctx context.Context, admissionNumber string, exec ...core.DBExecutor) error {
	var exists bool
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &exists,
		`SELECT EXISTS (SELECT 1 FROM "student" WHERE "admission_number" = $1)`, admissionNumber)
	if err != nil {
		return errors.Wrap(err, "checking admission number uniqueness")
	}
	if exists {
		return student.ErrAdmissionNumberExists
	}
	return nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, st student.Student, exec ...core.DBExecutor) (student.Student, error) {
	st.ID = uuid.New().String()
	if _, err := sqlx.NamedExecContext(ctx, getExec(repo.db, exec), insertStudentSQL, newStudentRow(st)); err != nil {
		if isUniqueViolation(err, "student_admission_number_key") {
			return student.Student{}, student.ErrAdmissionNumberExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return st, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, filter student.GetFilter, exec ...core.DBExecutor) (student.Student, error) {
	var row studentRow
	exe := getExec(repo.db, exec)

	if filter.ID != "" {
		if _, err := uuid.Parse(filter.ID); err != nil {
			return student.Student{}, student.ErrNotFound
		}
		err := sqlx.GetContext(ctx, exe, &row,
			`SELECT `+studentColumns+` FROM "student" WHERE "id" = $1`, filter.ID)
		if err != nil {
			return student.Student{}, repo.trapNoRowsErr(err, "finding student by ID")
		}
	} else {
		err := sqlx.GetContext(ctx, exe, &row,
			`SELECT `+studentColumns+` FROM "student" WHERE "admission_number" = $1`, filter.AdmissionNumber)
		if err != nil {
			return student.Student{}, repo.trapNoRowsErr(err, "finding student by admission number")
		}
	}
	return row.student(), nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]student.Student, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter != nil {
		// students with Name or AdmissionNumber matching the search keyword
		if filter.Search != "" {
			where = append(where, `("name" ILIKE ? OR "admission_number" ILIKE ?)`)
			val := "%" + filter.Search + "%"
			args = append(args, val, val)
		}
		if filter.Status != "" {
			where = append(where, `"status" = ?`)
			args = append(args, filter.Status)
		}
		if filter.Grade != "" {
			where = append(where, `"grade" = ?`)
			args = append(args, filter.Grade)
		}
	}

	q := `SELECT ` + studentColumns + ` FROM "student"`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		q += ` ORDER BY ` + strings.Join(orderList, ", ")
	} else {
		q += ` ORDER BY "name" ASC`
	}

	exe := getExec(repo.db, exec)
	var rows []studentRow
	if err := sqlx.SelectContext(ctx, exe, &rows, exe.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}

	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.student())
	}
	return students, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, st student.Student, exec ...core.DBExecutor) (student.Student, error) {
	res, err := sqlx.NamedExecContext(ctx, getExec(repo.db, exec), updateStudentSQL, newStudentRow(st))
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return st, nil
}

func (repo *studentRepository) DeleteStudentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	q, args, err := sqlx.In(`DELETE FROM "student" WHERE "id" IN (?)`, ids)
	if err != nil {
		return 0, errors.Wrap(err, "deleting students")
	}

	exe := getExec(repo.db, exec)
	res, err := exe.ExecContext(ctx, exe.Rebind(q), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting students")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting students")
	}
	return int(cnt), nil
}

// SettleBalance runs the balance increment and the ledger append in one
// transaction, locking the student row for the duration. The ledger's unique
// reference makes retried confirmations collide instead of double-settling.
func (repo *studentRepository) SettleBalance(ctx context.Context, studentID string, amount int64, pmt payment.Payment) (student.Student, payment.Payment, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return student.Student{}, payment.Payment{}, errors.Wrap(err, "beginning settlement")
	}
	defer func() { _ = tx.Rollback() }()

	var row studentRow
	err = sqlx.GetContext(ctx, tx, &row,
		`SELECT `+studentColumns+` FROM "student" WHERE "id" = $1 FOR UPDATE`, studentID)
	if err != nil {
		return student.Student{}, payment.Payment{}, repo.trapNoRowsErr(err, "locking student")
	}

	st := row.student()
	st.PaidAmount += amount
	st.Status = student.StatusFor(st.TotalFees, st.PaidAmount)

	_, err = tx.ExecContext(ctx,
		`UPDATE "student" SET "paid_amount" = $1, "status" = $2 WHERE "id" = $3`,
		st.PaidAmount, string(st.Status), st.ID)
	if err != nil {
		return student.Student{}, payment.Payment{}, errors.Wrap(err, "updating student balance")
	}

	pmt, err = repo.payments.AppendPayment(ctx, pmt, tx)
	if err != nil {
		return student.Student{}, payment.Payment{}, err
	}

	if err = tx.Commit(); err != nil {
		return student.Student{}, payment.Payment{}, errors.Wrap(err, "committing settlement")
	}
	return st, pmt, nil
}
