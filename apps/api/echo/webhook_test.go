package echoapi

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/scholarlypay/core/student"
)

func signBody(body []byte, secretKey string) string {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func Test_webhookApi_paystack(t *testing.T) {
	env := setup(t)

	st := createStudent(t, env, "Jane Mwangi", "SCH-2024-001", 50000, 20000)
	p := createParent(t, env, "Grace", "Wanjiru", "grace@test.cd", st.AdmissionNumber)

	session, err := env.engine.Initiate(context.Background(), st, p.Email)
	require.NoError(t, err)

	eventBody := func(event, reference string) []byte {
		return []byte(fmt.Sprintf(`{"event":%q,"data":{"reference":%q}}`, event, reference))
	}
	deliver := func(body []byte, signature string) int {
		req, rec := newRequest(http.MethodPost, "/v1/webhooks/paystack", body)
		req.Header.Set(signatureHeader, signature)
		env.server.ServeHTTP(rec, req)
		return rec.Code
	}
	secret := env.conf.Paystack.SecretKey

	// an unsigned or tampered delivery is rejected before anything happens
	body := eventBody("charge.success", session.Reference)
	assert.Equal(t, http.StatusUnauthorized, deliver(body, ""))
	assert.Equal(t, http.StatusUnauthorized, deliver(body, signBody(body, "wrong-key")))

	fresh, err := env.students.GetByID(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), fresh.PaidAmount)

	// uninteresting events are acknowledged without reconciling
	other := eventBody("charge.dispute.create", session.Reference)
	assert.Equal(t, http.StatusOK, deliver(other, signBody(other, secret)))
	fresh, err = env.students.GetByID(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), fresh.PaidAmount)

	// a signed charge.success settles the pending attempt
	assert.Equal(t, http.StatusOK, deliver(body, signBody(body, secret)))
	fresh, err = env.students.GetByID(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), fresh.PaidAmount)
	assert.Equal(t, student.StatusPaid, fresh.Status)

	// the gateway retries deliveries; replays are acked and change nothing
	assert.Equal(t, http.StatusOK, deliver(body, signBody(body, secret)))
	fresh, err = env.students.GetByID(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), fresh.PaidAmount)
	pmts, err := env.payments.Ledger(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Len(t, pmts, 1)

	// unknown references are acked too
	unknown := eventBody("charge.success", "REF-NEVER-ISSUED")
	assert.Equal(t, http.StatusOK, deliver(unknown, signBody(unknown, secret)))
}
