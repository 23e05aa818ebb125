// Package billing implements the balance-settlement flow: it computes a
// student's outstanding balance, drives the external payment gateway and, on
// confirmation, reconciles the student record and the payment ledger as one
// atomic unit keyed by the gateway reference.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/scholarlypay/core"
	"github.com/trezcool/scholarlypay/core/payment"
	"github.com/trezcool/scholarlypay/core/student"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNothingOutstanding = errors.New("no outstanding balance to settle")
	ErrUnknownReference   = errors.New("unknown settlement reference")
	ErrSettlementExpired  = errors.New("settlement attempt has expired")
	ErrNotPaid            = errors.New("gateway has not confirmed this payment")
	ErrAmountMismatch     = errors.New("gateway amount does not match the initiated balance")
)

type (
	// Gateway is the payment checkout collaborator. Initialize opens a
	// checkout session; Verify settles the "did the money actually move"
	// question before any ledger write happens.
	Gateway interface {
		Initialize(ctx context.Context, req InitRequest) (InitResponse, error)
		Verify(ctx context.Context, reference string) (Transaction, error)
	}

	// InitRequest amounts are in the gateway's minor-unit convention (cents).
	InitRequest struct {
		Reference string
		Email     string
		Amount    int64
		Currency  string
	}

	InitResponse struct {
		AuthorizationURL string
		AccessCode       string
		Reference        string
	}

	Transaction struct {
		Reference string
		Amount    int64 // minor units
		Currency  string
		Status    string
		Channel   string
		PaidAt    time.Time
	}

	// Session describes one initiated settlement attempt, handed to the
	// client so it can open the gateway checkout.
	Session struct {
		Reference        string    `json:"reference"`
		Email            string    `json:"email"`
		Amount           int64     `json:"amount"` // minor units
		Currency         string    `json:"currency"`
		AccessCode       string    `json:"access_code"`
		AuthorizationURL string    `json:"authorization_url"`
		ExpiresAt        time.Time `json:"expires_at"`
	}

	// Settlement is the reconciled outcome of a confirmed attempt.
	Settlement struct {
		Student student.Student `json:"student"`
		Payment payment.Payment `json:"payment"`
	}

	// attempt pins the balance known at the moment the payer clicked "pay";
	// the confirmation applies this amount, never a re-read one, so the
	// charge always matches what the payer was shown and agreed to.
	attempt struct {
		studentID       string
		admissionNumber string
		parentEmail     string
		payerEmail      string
		amount          int64 // whole units
		createdAt       time.Time
	}

	Engine struct {
		students student.Repository
		gateway  Gateway
		logger   core.Logger
		currency string
		timeout  time.Duration

		mu      sync.Mutex
		pending map[string]attempt
	}
)

func NewEngine(students student.Repository, gateway Gateway, logger core.Logger, conf *core.Config) *Engine {
	return &Engine{
		students: students,
		gateway:  gateway,
		logger:   logger,
		currency: conf.Currency,
		timeout:  conf.Settlement.Timeout,
		pending:  make(map[string]attempt),
	}
}

// ComputeBalance returns totalFees - paidAmount, deliberately unclamped: a
// negative balance means overpayment and is surfaced as-is, it only disables
// further settlement initiation.
func ComputeBalance(st student.Student) int64 {
	return st.TotalFees - st.PaidAmount
}

// Initiate opens a gateway checkout session for the student's current
// outstanding balance. The attempt expires after the configured settlement
// timeout; a gateway that never reports back leaves no dangling state.
func (e *Engine) Initiate(ctx context.Context, st student.Student, payerEmail string) (Session, error) {
	balance := ComputeBalance(st)
	if balance <= 0 {
		return Session{}, ErrNothingOutstanding
	}

	ref := newReference()
	now := NowFunc().UTC()

	res, err := e.gateway.Initialize(ctx, InitRequest{
		Reference: ref,
		Email:     payerEmail,
		Amount:    toMinorUnits(balance),
		Currency:  e.currency,
	})
	if err != nil {
		return Session{}, err
	}
	if res.Reference != "" {
		ref = res.Reference
	}

	e.mu.Lock()
	e.expireLocked(now)
	e.pending[ref] = attempt{
		studentID:       st.ID,
		admissionNumber: st.AdmissionNumber,
		parentEmail:     st.ParentEmail,
		payerEmail:      payerEmail,
		amount:          balance,
		createdAt:       now,
	}
	e.mu.Unlock()

	return Session{
		Reference:        ref,
		Email:            payerEmail,
		Amount:           toMinorUnits(balance),
		Currency:         e.currency,
		AccessCode:       res.AccessCode,
		AuthorizationURL: res.AuthorizationURL,
		ExpiresAt:        now.Add(e.timeout),
	}, nil
}

// Confirm settles a previously initiated attempt. It re-verifies the
// reference with the gateway, then updates the student and appends the ledger
// record in one atomic unit; any storage failure rolls the whole settlement
// back and the caller is NOT told the payment succeeded. A reference confirms
// at most once (payment.ErrDuplicateReference on replays).
func (e *Engine) Confirm(ctx context.Context, reference string) (Settlement, error) {
	now := NowFunc().UTC()

	e.mu.Lock()
	att, ok := e.pending[reference]
	if ok && now.Sub(att.createdAt) > e.timeout {
		delete(e.pending, reference)
		ok = false
		e.mu.Unlock()
		return Settlement{}, ErrSettlementExpired
	}
	e.mu.Unlock()
	if !ok {
		return Settlement{}, ErrUnknownReference
	}

	txn, err := e.gateway.Verify(ctx, reference)
	if err != nil {
		// attempt stays pending: the payer may retry the confirmation
		return Settlement{}, err
	}
	if !strings.EqualFold(txn.Status, payment.StatusSuccess) {
		return Settlement{}, ErrNotPaid
	}
	if txn.Amount != toMinorUnits(att.amount) {
		e.logger.Error(
			fmt.Sprintf("settlement %s: gateway amount %d != initiated %d", reference, txn.Amount, toMinorUnits(att.amount)),
			ErrAmountMismatch,
		)
		return Settlement{}, ErrAmountMismatch
	}

	method := txn.Channel
	if method == "" {
		method = "card"
	}
	pmt := payment.Payment{
		StudentID:       att.studentID,
		AdmissionNumber: att.admissionNumber,
		Amount:          att.amount,
		Currency:        e.currency,
		Reference:       reference,
		Status:          payment.StatusSuccess,
		Date:            txn.PaidAt,
		Email:           att.payerEmail,
		Method:          method,
		CreatedAt:       now,
	}
	if pmt.Date.IsZero() {
		pmt.Date = now
	}

	st, pmt, err := e.students.SettleBalance(ctx, att.studentID, att.amount, pmt)
	if err != nil {
		if err == payment.ErrDuplicateReference {
			// money already reconciled under this reference; drop the attempt
			e.forget(reference)
			return Settlement{}, err
		}
		e.logger.Error(fmt.Sprintf("settlement %s: storage write rejected: %v", reference, err), err)
		return Settlement{}, err
	}

	e.forget(reference)
	return Settlement{Student: st, Payment: pmt}, nil
}

// Cancel drops a pending attempt after the payer closed the checkout widget.
// No state is mutated; it reports whether the reference was known.
func (e *Engine) Cancel(reference string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.pending[reference]
	delete(e.pending, reference)
	return ok
}

func (e *Engine) forget(reference string) {
	e.mu.Lock()
	delete(e.pending, reference)
	e.mu.Unlock()
}

// expireLocked sweeps timed-out attempts. Caller holds e.mu.
func (e *Engine) expireLocked(now time.Time) {
	for ref, att := range e.pending {
		if now.Sub(att.createdAt) > e.timeout {
			delete(e.pending, ref)
		}
	}
}

func newReference() string {
	return "SP-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:16])
}

// toMinorUnits converts a whole-unit amount to the gateway's convention (cents).
func toMinorUnits(amount int64) int64 {
	return amount * 100
}
