package paystack

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/scholarlypay/core/billing"
	"github.com/trezcool/scholarlypay/core/payment"
)

// DummyGateway confirms everything it initialized; for tests and DEV mode.
type DummyGateway struct {
	mu       sync.Mutex
	sessions map[string]billing.InitRequest

	// VerifyStatus overrides the reported transaction status when set.
	VerifyStatus string
	// VerifyErr makes Verify fail when set.
	VerifyErr error
}

var _ billing.Gateway = (*DummyGateway)(nil)

func NewDummyGateway() *DummyGateway {
	return &DummyGateway{sessions: make(map[string]billing.InitRequest)}
}

func (g *DummyGateway) Initialize(_ context.Context, req billing.InitRequest) (billing.InitResponse, error) {
	g.mu.Lock()
	g.sessions[req.Reference] = req
	g.mu.Unlock()
	return billing.InitResponse{
		AuthorizationURL: "https://checkout.dummy/" + req.Reference,
		AccessCode:       "AC_" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func (g *DummyGateway) Verify(_ context.Context, reference string) (billing.Transaction, error) {
	if g.VerifyErr != nil {
		return billing.Transaction{}, g.VerifyErr
	}

	g.mu.Lock()
	req, ok := g.sessions[reference]
	g.mu.Unlock()
	if !ok {
		return billing.Transaction{Reference: reference, Status: "abandoned"}, nil
	}

	status := payment.StatusSuccess
	if g.VerifyStatus != "" {
		status = g.VerifyStatus
	}
	return billing.Transaction{
		Reference: reference,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Status:    status,
		Channel:   "card",
		PaidAt:    time.Now().UTC(),
	}, nil
}
