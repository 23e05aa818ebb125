package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/scholarlypay/core"
	"github.com/trezcool/scholarlypay/core/billing"
)

func sign(body []byte, key string) string {
	mac := hmac.New(sha512.New, []byte(key))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestValidSignature(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"SP-1"}}`)

	assert.True(t, ValidSignature(body, sign(body, "sk_test_123"), "sk_test_123"))
	assert.False(t, ValidSignature(body, sign(body, "sk_test_123"), "another-key"))
	assert.False(t, ValidSignature(body, "deadbeef", "sk_test_123"))
	assert.False(t, ValidSignature([]byte("tampered"), sign(body, "sk_test_123"), "sk_test_123"))
}

func testClient(t *testing.T, handler http.HandlerFunc) (*client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	conf := &core.Config{}
	conf.Paystack.BaseURL = srv.URL
	conf.Paystack.SecretKey = "sk_test_123"
	return NewGateway(conf, testLogger{}), srv
}

type testLogger struct{}

func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}

func TestClient_Initialize(t *testing.T) {
	var gotAuth string
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, initializePath, r.URL.Path)

		var payload initPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, int64(3000000), payload.Amount)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": true,
			"data": map[string]string{
				"authorization_url": "https://checkout.paystack.com/abc",
				"access_code":       "abc",
				"reference":         payload.Reference,
			},
		})
	})

	res, err := c.Initialize(context.Background(), billing.InitRequest{
		Reference: "SP-1", Email: "parent@example.com", Amount: 3000000, Currency: "KES",
	})
	assert.NoError(t, err)
	assert.Equal(t, "Bearer sk_test_123", gotAuth)
	assert.Equal(t, "https://checkout.paystack.com/abc", res.AuthorizationURL)
	assert.Equal(t, "SP-1", res.Reference)
}

func TestClient_Verify(t *testing.T) {
	paidAt := time.Date(2024, 10, 26, 12, 0, 0, 0, time.UTC)
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, verifyPath+"SP-1", r.URL.Path)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": true,
			"data": map[string]interface{}{
				"reference": "SP-1",
				"amount":    3000000,
				"currency":  "KES",
				"status":    "success",
				"channel":   "mobile_money",
				"paid_at":   paidAt,
			},
		})
	})

	txn, err := c.Verify(context.Background(), "SP-1")
	assert.NoError(t, err)
	assert.Equal(t, "success", txn.Status)
	assert.Equal(t, "mobile_money", txn.Channel)
	assert.Equal(t, int64(3000000), txn.Amount)
	assert.True(t, txn.PaidAt.Equal(paidAt))
}

func TestClient_VerifyRejected(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": false, "message": "Transaction reference not found"})
	})

	_, err := c.Verify(context.Background(), "nope")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Transaction reference not found")
}
