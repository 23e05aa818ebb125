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
)

const (
	paymentColumns = `"id", "student_id", "admission_number", "amount", "currency", "reference", ` +
		`"status", "date", "email", "method", "created_at"`

	insertPaymentSQL = `INSERT INTO "payment" (` + paymentColumns + `) ` +
		`VALUES (:id, :student_id, :admission_number, :amount, :currency, :reference, ` +
		`:status, :date, :email, :method, :created_at)`
)

type paymentRow struct {
	ID              string      `db:"id"`
	StudentID       string      `db:"student_id"`
	AdmissionNumber null.String `db:"admission_number"`
	Amount          int64       `db:"amount"`
	Currency        null.String `db:"currency"`
	Reference       null.String `db:"reference"`
	Status          null.String `db:"status"`
	Date            time.Time   `db:"date"`
	Email           null.String `db:"email"`
	Method          null.String `db:"method"`
	CreatedAt       time.Time   `db:"created_at"`
}

func (r paymentRow) payment() payment.Payment {
	return payment.Payment{
		ID:              r.ID,
		StudentID:       r.StudentID,
		AdmissionNumber: r.AdmissionNumber.String,
		Amount:          r.Amount,
		Currency:        r.Currency.String,
		Reference:       r.Reference.String,
		Status:          r.Status.String,
		Date:            r.Date,
		Email:           r.Email.String,
		Method:          r.Method.String,
		CreatedAt:       r.CreatedAt,
	}
}

func newPaymentRow(pmt payment.Payment) paymentRow {
	return paymentRow{
		ID:              pmt.ID,
		StudentID:       pmt.StudentID,
		AdmissionNumber: null.NewString(pmt.AdmissionNumber, pmt.AdmissionNumber != ""),
		Amount:          pmt.Amount,
		Currency:        null.NewString(pmt.Currency, pmt.Currency != ""),
		Reference:       null.NewString(pmt.Reference, pmt.Reference != ""),
		Status:          null.NewString(pmt.Status, pmt.Status != ""),
		Date:            pmt.Date.UTC(),
		Email:           null.NewString(pmt.Email, pmt.Email != ""),
		Method:          null.NewString(pmt.Method, pmt.Method != ""),
		CreatedAt:       pmt.CreatedAt.UTC(),
	}
}

type paymentRepository struct {
	db *sqlx.DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *sqlx.DB) *paymentRepository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) AppendPayment(ctx context.Context, pmt payment.Payment, exec ...core.DBExecutor) (payment.Payment, error) {
	pmt.ID = uuid.New().String()
	if _, err := sqlx.NamedExecContext(ctx, getExec(repo.db, exec), insertPaymentSQL, newPaymentRow(pmt)); err != nil {
		if isUniqueViolation(err, "payment_reference_key") {
			return payment.Payment{}, payment.ErrDuplicateReference
		}
		return payment.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return pmt, nil
}

func (repo *paymentRepository) GetPayment(ctx context.Context, id string, exec ...core.DBExecutor) (payment.Payment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return payment.Payment{}, payment.ErrNotFound
	}

	var row paymentRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &row,
		`SELECT `+paymentColumns+` FROM "payment" WHERE "id" = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return payment.Payment{}, payment.ErrNotFound
		}
		return payment.Payment{}, errors.Wrap(err, "finding payment by ID")
	}
	return row.payment(), nil
}

func (repo *paymentRepository) QueryPayments(ctx context.Context, filter *payment.QueryFilter, exec ...core.DBExecutor) ([]payment.Payment, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter != nil {
		if filter.StudentID != "" {
			where = append(where, `"student_id" = ?`)
			args = append(args, filter.StudentID)
		}
		if filter.AdmissionNumber != "" {
			where = append(where, `"admission_number" = ?`)
			args = append(args, filter.AdmissionNumber)
		}
		if filter.Reference != "" {
			where = append(where, `"reference" = ?`)
			args = append(args, filter.Reference)
		}
		if !filter.DateFrom.IsZero() {
			where = append(where, `"date" >= ?`)
			args = append(args, filter.DateFrom.UTC())
		}
		if !filter.DateTo.IsZero() {
			where = append(where, `"date" <= ?`)
			args = append(args, filter.DateTo.UTC())
		}
	}

	q := `SELECT ` + paymentColumns + ` FROM "payment"`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY "date" DESC, "created_at" DESC`

	exe := getExec(repo.db, exec)
	var rows []paymentRow
	if err := sqlx.SelectContext(ctx, exe, &rows, exe.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}

	pmts := make([]payment.Payment, 0, len(rows))
	for _, row := range rows {
		pmts = append(pmts, row.payment())
	}
	return pmts, nil
}
