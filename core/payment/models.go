package payment

import (
	"time"

	"github.com/trezcool/scholarlypay/core"
)

// StatusSuccess is the only status a ledger record is ever written with:
// a Payment exists iff the gateway (or a staff member) confirmed the money.
const StatusSuccess = "success"

// Payment is one append-only ledger record. Amount always equals the balance
// that was outstanding when the settlement was initiated, not a re-read value.
type Payment struct {
	ID              string    `json:"id"`
	StudentID       string    `json:"student_id"`
	AdmissionNumber string    `json:"admission_number"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	Reference       string    `json:"reference"`
	Status          string    `json:"status"`
	Date            time.Time `json:"date"`
	Email           string    `json:"email"`
	Method          string    `json:"method"`
	CreatedAt       time.Time `json:"created_at"` // UTC
}

type QueryFilter struct {
	StudentID       string    `query:"student_id"`
	AdmissionNumber string    `query:"admission_number"`
	Reference       string    `query:"reference"`
	DateFrom        time.Time `query:"date_from"`
	DateTo          time.Time `query:"date_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentID == "" && qf.AdmissionNumber == "" && qf.Reference == "" &&
		qf.DateFrom.IsZero() && qf.DateTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.AdmissionNumber = core.CleanString(qf.AdmissionNumber)
	qf.Reference = core.CleanString(qf.Reference)
}
