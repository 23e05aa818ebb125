package assistsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/trezcool/scholarlypay/core"
	"github.com/trezcool/scholarlypay/core/assist"
)

var (
	reminderPath    = "/v1/draft/payment-reminder"
	explanationPath = "/v1/draft/fee-explanation"

	// ErrDraftingFailed is the generic user-visible failure; the upstream
	// model error is wrapped underneath for diagnostics only.
	ErrDraftingFailed = errors.New("could not generate a draft at this time")
)

type httpDrafter struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  core.Logger
}

var _ assist.Drafter = (*httpDrafter)(nil)

// NewHTTPDrafter talks to the configured text-generation endpoint; drafting
// calls carry the configured timeout and are never retried.
func NewHTTPDrafter(conf *core.Config, logger core.Logger) *httpDrafter {
	return &httpDrafter{
		baseURL: conf.Assist.BaseURL,
		apiKey:  conf.Assist.ApiKey,
		http:    &http.Client{Timeout: conf.Assist.Timeout},
		logger:  logger,
	}
}

func (d *httpDrafter) DraftPaymentReminder(ctx context.Context, in assist.ReminderInput) (assist.ReminderDraft, error) {
	var out assist.ReminderDraft
	if err := d.generate(ctx, reminderPath, in, &out); err != nil {
		return assist.ReminderDraft{}, err
	}
	return out, nil
}

func (d *httpDrafter) ExplainFees(ctx context.Context, in assist.ExplanationInput) (assist.Explanation, error) {
	var out assist.Explanation
	if err := d.generate(ctx, explanationPath, in, &out); err != nil {
		return assist.Explanation{}, err
	}
	return out, nil
}

func (d *httpDrafter) generate(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "marshalling drafting input")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "building drafting request")
	}
	req.Header.Set("Authorization", "Bearer "+d.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := d.http.Do(req)
	if err != nil {
		d.logger.Error(fmt.Sprintf("assist: calling %s: %v", path, err), err)
		return ErrDraftingFailed
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode >= http.StatusBadRequest {
		d.logger.Error(fmt.Sprintf("assist: %s - status: %d", path, res.StatusCode))
		return ErrDraftingFailed
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		d.logger.Error(fmt.Sprintf("assist: decoding %s response: %v", path, err), err)
		return ErrDraftingFailed
	}
	return nil
}
