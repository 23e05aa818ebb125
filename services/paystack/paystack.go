package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/scholarlypay/core"
	"github.com/trezcool/scholarlypay/core/billing"
)

const (
	initializePath = "/transaction/initialize"
	verifyPath     = "/transaction/verify/"
)

type client struct {
	baseURL   string
	secretKey string
	http      *http.Client
	logger    core.Logger
}

var _ billing.Gateway = (*client)(nil) // interface compliance check

func NewGateway(conf *core.Config, logger core.Logger) *client {
	return &client{
		baseURL:   conf.Paystack.BaseURL,
		secretKey: conf.Paystack.SecretKey,
		http:      &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
	}
}

type (
	initPayload struct {
		Reference string `json:"reference"`
		Email     string `json:"email"`
		Amount    int64  `json:"amount"` // minor units
		Currency  string `json:"currency"`
	}

	initEnvelope struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			AuthorizationURL string `json:"authorization_url"`
			AccessCode       string `json:"access_code"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}

	verifyEnvelope struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Reference string    `json:"reference"`
			Amount    int64     `json:"amount"` // minor units
			Currency  string    `json:"currency"`
			Status    string    `json:"status"`
			Channel   string    `json:"channel"`
			PaidAt    time.Time `json:"paid_at"`
		} `json:"data"`
	}
)

func (c *client) Initialize(ctx context.Context, req billing.InitRequest) (billing.InitResponse, error) {
	body, err := json.Marshal(initPayload{
		Reference: req.Reference,
		Email:     req.Email,
		Amount:    req.Amount,
		Currency:  req.Currency,
	})
	if err != nil {
		return billing.InitResponse{}, errors.Wrap(err, "marshalling initialize payload")
	}

	var env initEnvelope
	if err := c.do(ctx, http.MethodPost, initializePath, bytes.NewReader(body), &env); err != nil {
		return billing.InitResponse{}, err
	}
	if !env.Status {
		return billing.InitResponse{}, errors.Errorf("paystack: initialize rejected: %s", env.Message)
	}
	return billing.InitResponse{
		AuthorizationURL: env.Data.AuthorizationURL,
		AccessCode:       env.Data.AccessCode,
		Reference:        env.Data.Reference,
	}, nil
}

func (c *client) Verify(ctx context.Context, reference string) (billing.Transaction, error) {
	var env verifyEnvelope
	if err := c.do(ctx, http.MethodGet, verifyPath+reference, nil, &env); err != nil {
		return billing.Transaction{}, err
	}
	if !env.Status {
		return billing.Transaction{}, errors.Errorf("paystack: verify rejected: %s", env.Message)
	}
	return billing.Transaction{
		Reference: env.Data.Reference,
		Amount:    env.Data.Amount,
		Currency:  env.Data.Currency,
		Status:    env.Data.Status,
		Channel:   env.Data.Channel,
		PaidAt:    env.Data.PaidAt,
	}, nil
}

func (c *client) do(ctx context.Context, method, path string, body *bytes.Reader, out interface{}) error {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return errors.Wrap(err, "building paystack request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "calling paystack")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode >= http.StatusBadRequest {
		c.logger.Error(fmt.Sprintf("paystack: %s %s - status: %d", method, path, res.StatusCode))
		return errors.Errorf("paystack: unexpected status %d", res.StatusCode)
	}
	return errors.Wrap(json.NewDecoder(res.Body).Decode(out), "decoding paystack response")
}

// ValidSignature checks a webhook body against its x-paystack-signature
// header: hex HMAC-SHA512 of the raw body under the secret key.
func ValidSignature(body []byte, signature, secretKey string) bool {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
