// Package assist defines the text-drafting collaborator: given structured fee
// fields it returns drafted reminder messages or balance explanations.
// Peripheral to the Balance Engine; a drafting failure never affects settlement.
package assist

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/scholarlypay/core"
)

type (
	ReminderInput struct {
		ParentName      string `json:"parent_name" validate:"required"`
		StudentName     string `json:"student_name" validate:"required"`
		AdmissionNumber string `json:"admission_number" validate:"required"`
		AmountDue       string `json:"amount_due" validate:"required"`
		DueDate         string `json:"due_date" validate:"required"`
		FeeDetails      string `json:"fee_details"`
	}

	ReminderDraft struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}

	ExplanationInput struct {
		StudentName        string `json:"student_name" validate:"required"`
		AdmissionNumber    string `json:"admission_number" validate:"required"`
		FeeComponent       string `json:"fee_component"`
		Amount             int64  `json:"amount"`
		OutstandingBalance int64  `json:"outstanding_balance"`
		DueDate            string `json:"due_date"`
		AdditionalContext  string `json:"additional_context"`
	}

	Explanation struct {
		Explanation string `json:"explanation"`
	}

	// Drafter is any service that can draft fee-related text.
	Drafter interface {
		DraftPaymentReminder(ctx context.Context, in ReminderInput) (ReminderDraft, error)
		ExplainFees(ctx context.Context, in ExplanationInput) (Explanation, error)
	}
)

func (ri *ReminderInput) Validate(validate *validator.Validate) error {
	ri.ParentName = core.CleanString(ri.ParentName)
	ri.StudentName = core.CleanString(ri.StudentName)
	ri.AdmissionNumber = core.CleanString(ri.AdmissionNumber)
	return validate.Struct(ri)
}

func (ei *ExplanationInput) Validate(validate *validator.Validate) error {
	ei.StudentName = core.CleanString(ei.StudentName)
	ei.AdmissionNumber = core.CleanString(ei.AdmissionNumber)
	return validate.Struct(ei)
}
