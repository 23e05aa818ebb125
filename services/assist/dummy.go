package assistsvc

import (
	"context"
	"fmt"

	"github.com/trezcool/scholarlypay/core/assist"
)

// DummyDrafter returns canned drafts; used in debug/test mode.
type DummyDrafter struct {
	ReminderErr    error
	ExplanationErr error

	ReminderCalls    []assist.ReminderInput
	ExplanationCalls []assist.ExplanationInput
}

var _ assist.Drafter = (*DummyDrafter)(nil)

func NewDummyDrafter() *DummyDrafter { return new(DummyDrafter) }

func (d *DummyDrafter) DraftPaymentReminder(_ context.Context, in assist.ReminderInput) (assist.ReminderDraft, error) {
	d.ReminderCalls = append(d.ReminderCalls, in)
	if d.ReminderErr != nil {
		return assist.ReminderDraft{}, d.ReminderErr
	}
	return assist.ReminderDraft{
		Subject: fmt.Sprintf("Fee balance reminder for %s", in.StudentName),
		Body: fmt.Sprintf(
			"Dear %s, this is a friendly reminder that %s (%s) has an outstanding balance of %s due by %s.",
			in.ParentName, in.StudentName, in.AdmissionNumber, in.AmountDue, in.DueDate,
		),
	}, nil
}

func (d *DummyDrafter) ExplainFees(_ context.Context, in assist.ExplanationInput) (assist.Explanation, error) {
	d.ExplanationCalls = append(d.ExplanationCalls, in)
	if d.ExplanationErr != nil {
		return assist.Explanation{}, d.ExplanationErr
	}
	return assist.Explanation{
		Explanation: fmt.Sprintf(
			"The %s charge of %d for %s (%s) covers services billed for the current term. The outstanding balance stands at %d.",
			in.FeeComponent, in.Amount, in.StudentName, in.AdmissionNumber, in.OutstandingBalance,
		),
	}, nil
}
