package student

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/scholarlypay/core"
)

// Status is persisted on the Student record (a materialized view of
// paidAmount vs totalFees) and must be re-derived by StatusFor on every write
// that changes either figure; it is never hand-set elsewhere.
type Status string

const (
	StatusPaid    Status = "Paid"
	StatusBalance Status = "Balance"
	// StatusPending is only ever the initial value at student creation when
	// paidAmount starts at 0. The engine never transitions a student back to it.
	StatusPending Status = "Pending"
)

// StatusFor derives the persisted status from the fee figures after a write.
// It applies identically to self-service settlements and staff-entered payments.
func StatusFor(totalFees, paidAmount int64) Status {
	if paidAmount >= totalFees {
		return StatusPaid
	}
	return StatusBalance
}

type Student struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	AdmissionNumber string    `json:"admission_number"` // unique, human-assigned
	Grade           string    `json:"grade"`
	Year            string    `json:"year"`
	Term            string    `json:"term"`
	Gender          string    `json:"gender"`
	DOB             time.Time `json:"dob"`
	Address         string    `json:"address"`
	ParentName      string    `json:"parent_name"`
	ParentEmail     string    `json:"parent_email"`
	ParentPhone     string    `json:"parent_phone"`
	Background      string    `json:"background"`
	MedicalNotes    string    `json:"medical_notes"`
	TotalFees       int64     `json:"total_fees"`
	PaidAmount      int64     `json:"paid_amount"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"created_at"` // UTC
}

// NewStudent contains information needed to register a new Student.
type NewStudent struct {
	Name            string    `json:"name" validate:"required"`
	AdmissionNumber string    `json:"admission_number" validate:"required,admnum"`
	Grade           string    `json:"grade" validate:"required"`
	Year            string    `json:"year"`
	Term            string    `json:"term"`
	Gender          string    `json:"gender"`
	DOB             time.Time `json:"dob"`
	Address         string    `json:"address"`
	ParentName      string    `json:"parent_name"`
	ParentEmail     string    `json:"parent_email" validate:"omitempty,email"`
	ParentPhone     string    `json:"parent_phone"`
	Background      string    `json:"background"`
	MedicalNotes    string    `json:"medical_notes"`
	TotalFees       int64     `json:"total_fees" validate:"required,gt=0"`
	PaidAmount      int64     `json:"paid_amount" validate:"gte=0"`
}

func (ns *NewStudent) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	ns.Name = core.CleanString(ns.Name)
	ns.AdmissionNumber = core.CleanString(ns.AdmissionNumber)
	ns.ParentEmail = core.CleanString(ns.ParentEmail, true /* lower */)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckAdmissionNumberUniqueness(ctx, ns.AdmissionNumber)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Fee figures are pointers so a zero amount can be told apart from "unchanged";
// paidAmount is deliberately absent: it only moves through settlements and
// manual payment entries.
type UpdateStudent struct {
	Name         string `json:"name"`
	Grade        string `json:"grade"`
	Year         string `json:"year"`
	Term         string `json:"term"`
	Address      string `json:"address"`
	ParentName   string `json:"parent_name"`
	ParentEmail  string `json:"parent_email" validate:"omitempty,email"`
	ParentPhone  string `json:"parent_phone"`
	Background   string `json:"background"`
	MedicalNotes string `json:"medical_notes"`
	TotalFees    *int64 `json:"total_fees" validate:"omitempty,gt=0"`
}

func (us *UpdateStudent) Validate(orig Student, validate *validator.Validate) error {
	fallback := func(val *string, orig string) {
		*val = core.CleanString(*val)
		if *val == "" {
			*val = orig
		}
	}
	fallback(&us.Name, orig.Name)
	fallback(&us.Grade, orig.Grade)
	fallback(&us.Year, orig.Year)
	fallback(&us.Term, orig.Term)
	fallback(&us.Address, orig.Address)
	fallback(&us.ParentName, orig.ParentName)
	fallback(&us.ParentPhone, orig.ParentPhone)
	fallback(&us.Background, orig.Background)
	fallback(&us.MedicalNotes, orig.MedicalNotes)

	if email := core.CleanString(us.ParentEmail, true /* lower */); email != "" {
		us.ParentEmail = email
	} else {
		us.ParentEmail = orig.ParentEmail
	}
	return validate.Struct(us)
}

// PaymentEntry is a staff-entered manual payment ("Add Payment").
type PaymentEntry struct {
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
}

func (pe *PaymentEntry) Validate(validate *validator.Validate) error {
	pe.Method = core.CleanString(pe.Method, true /* lower */)
	pe.Reference = core.CleanString(pe.Reference)
	return validate.Struct(pe)
}

type QueryFilter struct {
	Search string `query:"search"`
	Status string `query:"status"`
	Grade  string `query:"grade"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Status == "" && qf.Grade == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status)
	qf.Grade = core.CleanString(qf.Grade)
}

// GetFilter looks a Student up by exactly one of its unique keys.
type GetFilter struct {
	ID              string
	AdmissionNumber string
}
