package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/scholarlypay/core/billing"
	"github.com/trezcool/scholarlypay/core/parent"
	"github.com/trezcool/scholarlypay/core/payment"
	"github.com/trezcool/scholarlypay/core/student"
)

func Test_familyApi_signup(t *testing.T) {
	env := setup(t)

	createStudent(t, env, "Jane Mwangi", "SCH-2024-001", 50000, 0)
	createParent(t, env, "Taken", "Already", "taken@test.cd", "")

	signupBody := func(email, admissionNumber string) []byte {
		return marchallObj(t, parent.NewParent{
			FirstName:       "Grace",
			LastName:        "Wanjiru",
			Email:           email,
			Password:        testPassword,
			AdmissionNumber: admissionNumber,
		})
	}

	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"first_name": "this field is required",
				"last_name":  "this field is required",
				"email":      "this field is required",
				"password":   "this field is required",
			}),
		},
		{
			name: "invalid admission number", body: signupBody("grace@test.cd", "not valid!"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"admission_number": "only letters, digits and dashes are allowed"}),
		},
		{
			name: "unknown admission number", body: signupBody("grace@test.cd", "SCH-2024-999"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"admission_number": errNoLinkedStudent}),
		},
		{
			name: "email taken", body: signupBody("taken@test.cd", "SCH-2024-001"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": parent.ErrEmailExists.Error()}),
		},
		{name: "signed up", body: signupBody("grace@test.cd", "SCH-2024-001"), wantCode: http.StatusCreated},
		{name: "signed up without student", body: signupBody("solo@test.cd", ""), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/family/signup"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			env.server.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

				var respData struct {
					Token   string        `json:"token"`
					Profile parent.Parent `json:"profile"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &respData))
				assert.NotEmpty(t, respData.Token)
				assert.NotEmpty(t, respData.Profile.ID)
				assert.Equal(t, parent.Role, respData.Profile.Role)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_familyApi_login(t *testing.T) {
	env := setup(t)

	createParent(t, env, "Grace", "Wanjiru", "grace@test.cd", "")

	loginBody := func(email, pwd string) []byte {
		return marchallObj(t, LoginRequest{Email: email, Password: pwd})
	}
	authFailed := marchallObj(t, httpErr{Error: "authentication failed"})

	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"email":    "this field is required",
				"password": "this field is required",
			}),
		},
		{name: "unknown email", body: loginBody("nope@test.cd", testPassword), wantCode: http.StatusBadRequest, wantData: authFailed},
		{name: "wrong password", body: loginBody("grace@test.cd", "nope"), wantCode: http.StatusBadRequest, wantData: authFailed},
		{name: "logged in", body: loginBody("grace@test.cd", testPassword), wantCode: http.StatusOK},
		{name: "email case-insensitive", body: loginBody("GRACE@test.cd", testPassword), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/family/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			env.server.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

				var respData LoginResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &respData))
				assert.NotEmpty(t, respData.Token)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_familyApi_refreshToken(t *testing.T) {
	env := setup(t)

	p := createParent(t, env, "Grace", "Wanjiru", "grace@test.cd", "")

	// OrigIssuedAt older than the refresh threshold
	staleClaims := GetParentClaims(env.conf, p, time.Now().Add(-2*env.conf.Server.JWTRefreshExpirationDelta).Unix())
	staleToken, err := GenerateToken(env.conf, staleClaims)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Refresh period expired", token: staleToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "Token refreshed", token: parentToken(t, env, p), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/family/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.server.ServeHTTP(rec, req)

			// cannot guess the new token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

				var respData LoginResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &respData))
				assert.NotEmpty(t, respData.Token)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_familyApi_profileAndStudent(t *testing.T) {
	env := setup(t)

	st := createStudent(t, env, "Jane Mwangi", "SCH-2024-001", 50000, 20000)
	p := createParent(t, env, "Grace", "Wanjiru", "grace@test.cd", st.AdmissionNumber)
	unlinked := createParent(t, env, "Solo", "Parent", "solo@test.cd", "")
	inst := createInstitution(t, env, "Makini School", "admin@makini.cd")

	forbidden := marchallObj(t, httpErr{Error: "permission denied"})
	notFound := marchallObj(t, httpErr{Error: "not found"})

	tests := []httpTest{
		{name: "Auth required", path: "/v1/family/profile", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Institution token not allowed", path: "/v1/family/profile",
			token: institutionToken(t, env, inst), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "Own profile", path: "/v1/family/profile", token: parentToken(t, env, p),
			wantCode: http.StatusOK, wantData: marchallObj(t, p),
		},
		{
			name: "Linked student with balance", path: "/v1/family/student", token: parentToken(t, env, p),
			wantCode: http.StatusOK, wantData: marchallObj(t, StudentDetailResponse{Student: st, Balance: 30000}),
		},
		{
			name: "No linked student", path: "/v1/family/student", token: parentToken(t, env, unlinked),
			wantCode: http.StatusNotFound, wantData: notFound,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_familyApi_settlementFlow(t *testing.T) {
	env := setup(t)

	st := createStudent(t, env, "Jane Mwangi", "SCH-2024-001", 50000, 20000)
	p := createParent(t, env, "Grace", "Wanjiru", "grace@test.cd", st.AdmissionNumber)
	token := parentToken(t, env, p)

	// initiate pins the outstanding balance in gateway minor units
	req, rec := newAuthRequest(http.MethodPost, "/v1/family/settlements", token)
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var session billing.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.NotEmpty(t, session.Reference)
	assert.Equal(t, int64(3000000), session.Amount)
	assert.Equal(t, "KES", session.Currency)
	assert.Equal(t, p.Email, session.Email)
	assert.NotEmpty(t, session.AuthorizationURL)

	// confirm reconciles the student and the ledger
	req, rec = newAuthRequest(http.MethodPost, "/v1/family/settlements/"+session.Reference+"/confirm", token)
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var settlement billing.Settlement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settlement))
	assert.Equal(t, int64(50000), settlement.Student.PaidAmount)
	assert.Equal(t, student.StatusPaid, settlement.Student.Status)
	assert.Equal(t, session.Reference, settlement.Payment.Reference)
	assert.Equal(t, int64(30000), settlement.Payment.Amount)
	assert.Equal(t, payment.StatusSuccess, settlement.Payment.Status)

	// the attempt is closed; a replayed confirmation finds nothing
	req, rec = newAuthRequest(http.MethodPost, "/v1/family/settlements/"+session.Reference+"/confirm", token)
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	// nothing left to settle
	req, rec = newAuthRequest(http.MethodPost, "/v1/family/settlements", token)
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), marchallObj(t, httpErr{Error: "no outstanding balance to settle"}))
	require.NoError(t, err)
	assert.True(t, ok)

	// exactly one ledger row
	pmts, err := env.payments.Ledger(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Len(t, pmts, 1)
}

func Test_familyApi_cancelSettlement(t *testing.T) {
	env := setup(t)

	st := createStudent(t, env, "Jane Mwangi", "SCH-2024-001", 50000, 20000)
	p := createParent(t, env, "Grace", "Wanjiru", "grace@test.cd", st.AdmissionNumber)
	token := parentToken(t, env, p)

	req, rec := newAuthRequest(http.MethodPost, "/v1/family/settlements", token)
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var session billing.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))

	req, rec = newAuthRequest(http.MethodPost, "/v1/family/settlements/"+session.Reference+"/cancel", token)
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), marchallObj(t, SuccessResponse{
		Success: "Checkout closed. No payment was made and no records were changed.",
	}))
	require.NoError(t, err)
	assert.True(t, ok)

	// the cancelled attempt cannot be confirmed
	req, rec = newAuthRequest(http.MethodPost, "/v1/family/settlements/"+session.Reference+"/confirm", token)
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	// no records were changed
	fresh, err := env.students.GetByID(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), fresh.PaidAmount)
	pmts, err := env.payments.Ledger(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Empty(t, pmts)
}

func Test_familyApi_paymentsAndReceipt(t *testing.T) {
	env := setup(t)

	st := createStudent(t, env, "Jane Mwangi", "SCH-2024-001", 50000, 0)
	other := createStudent(t, env, "Brian Otieno", "SCH-2024-002", 40000, 0)
	p := createParent(t, env, "Grace", "Wanjiru", "grace@test.cd", st.AdmissionNumber)
	token := parentToken(t, env, p)

	_, pmt, err := env.students.RecordManualPayment(context.Background(), st.ID, student.PaymentEntry{
		Amount:    20000,
		Reference: "BANK-2024-0001",
		Method:    "bank",
	})
	require.NoError(t, err)
	_, otherPmt, err := env.students.RecordManualPayment(context.Background(), other.ID, student.PaymentEntry{Amount: 10000})
	require.NoError(t, err)

	// only the linked child's ledger is visible
	req, rec := newAuthRequest(http.MethodGet, "/v1/family/payments", token)
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), marchallList(t, pmt))
	require.NoError(t, err)
	assert.True(t, ok)

	// printable receipt
	req, rec = newAuthRequest(http.MethodGet, "/v1/family/payments/"+pmt.ID+"/receipt", token)
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "receipt-BANK-2024-0001.txt")
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, pmt.Reference), body)
	assert.True(t, strings.Contains(body, st.Name), body)

	// another family's receipt does not exist as far as this family knows
	req, rec = newAuthRequest(http.MethodGet, "/v1/family/payments/"+otherPmt.ID+"/receipt", token)
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}

func Test_familyApi_tamperedToken(t *testing.T) {
	env := setup(t)

	p := createParent(t, env, "Grace", "Wanjiru", "grace@test.cd", "")

	// signed with the wrong key
	claims := GetParentClaims(env.conf, p)
	token := jwt.NewWithClaims(jwt.GetSigningMethod("HS256"), claims)
	forged, err := token.SignedString([]byte("not-the-secret"))
	require.NoError(t, err)

	req, rec := newAuthRequest(http.MethodGet, "/v1/family/profile", forged)
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
}
