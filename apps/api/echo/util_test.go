package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/scholarlypay/core"
	"github.com/trezcool/scholarlypay/core/billing"
	"github.com/trezcool/scholarlypay/core/institution"
	"github.com/trezcool/scholarlypay/core/parent"
	"github.com/trezcool/scholarlypay/core/payment"
	"github.com/trezcool/scholarlypay/core/student"
	assistsvc "github.com/trezcool/scholarlypay/services/assist"
	emailsvc "github.com/trezcool/scholarlypay/services/email"
	paystacksvc "github.com/trezcool/scholarlypay/services/paystack"
	dummydb "github.com/trezcool/scholarlypay/storage/database/dummy"
)

const testPassword = "t3st-p4ssword!"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) Fatal(string, ...interface{}) {}

type testEnv struct {
	server *Server
	conf   *core.Config

	parents      *parent.Service
	institutions *institution.Service
	students     *student.Service
	payments     *payment.Service
	engine       *billing.Engine
	gateway      *paystacksvc.DummyGateway
	drafter      *assistsvc.DummyDrafter
}

func testConfig() *core.Config {
	return &core.Config{
		TestMode:  true,
		AppName:   "ScholarlyPay",
		SecretKey: "test-secret-key",
		Currency:  "KES",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Paystack:   core.PaystackConfig{SecretKey: "sk_test_secret"},
		Settlement: core.SettlementConfig{Timeout: time.Minute},
	}
}

func setup(t *testing.T) *testEnv {
	conf := testConfig()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}
	parentRepo := dummydb.NewParentRepository(db)
	instRepo := dummydb.NewInstitutionRepository(db)
	stRepo := dummydb.NewStudentRepository(db)
	pmtRepo := dummydb.NewPaymentRepository(db)

	gateway := paystacksvc.NewDummyGateway()
	drafter := assistsvc.NewDummyDrafter()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	logger := noopLogger{}

	parentSvc := parent.NewService(parentRepo)
	instSvc := institution.NewService(instRepo)
	studentSvc := student.NewService(stRepo, conf)
	paymentSvc := payment.NewService(pmtRepo)
	engine := billing.NewEngine(stRepo, gateway, logger, conf)

	validate := validator.New()
	translator := newTestTranslator(t)
	core.InitValidators(validate, translator)

	server := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		ParentSvc:      parentSvc,
		InstitutionSvc: instSvc,
		StudentSvc:     studentSvc,
		PaymentSvc:     paymentSvc,
		Engine:         engine,
		Drafter:        drafter,
		EmailSvc:       mailSvc,
		Validate:       validate,
		Translator:     translator,
	})

	return &testEnv{
		server:       server,
		conf:         conf,
		parents:      parentSvc,
		institutions: instSvc,
		students:     studentSvc,
		payments:     paymentSvc,
		engine:       engine,
		gateway:      gateway,
		drafter:      drafter,
	}
}

func newTestTranslator(t *testing.T) ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, ok := uni.GetTranslator("en")
	if !ok {
		t.Fatal("newTestTranslator(): no en translator")
	}
	return translator
}

// Fixtures

func createParent(t *testing.T, env *testEnv, first, last, email, admissionNumber string) parent.Parent {
	p, err := env.parents.Create(context.Background(), parent.NewParent{
		FirstName:       first,
		LastName:        last,
		Email:           email,
		Password:        testPassword,
		AdmissionNumber: admissionNumber,
	})
	if err != nil {
		t.Fatalf("createParent(%s): %v", email, err)
	}
	return p
}

func createInstitution(t *testing.T, env *testEnv, school, email string) institution.Institution {
	inst, err := env.institutions.Create(context.Background(), institution.NewInstitution{
		SchoolName: school,
		AdminEmail: email,
		Password:   testPassword,
	})
	if err != nil {
		t.Fatalf("createInstitution(%s): %v", email, err)
	}
	return inst
}

func createStudent(t *testing.T, env *testEnv, name, admissionNumber string, totalFees, paidAmount int64) student.Student {
	st, err := env.students.Create(context.Background(), student.NewStudent{
		Name:            name,
		AdmissionNumber: admissionNumber,
		Grade:           "Grade 6",
		ParentName:      "Parent of " + name,
		TotalFees:       totalFees,
		PaidAmount:      paidAmount,
	})
	if err != nil {
		t.Fatalf("createStudent(%s): %v", admissionNumber, err)
	}
	return st
}

func parentToken(t *testing.T, env *testEnv, p parent.Parent) string {
	token, err := GenerateToken(env.conf, GetParentClaims(env.conf, p))
	if err != nil {
		t.Fatalf("parentToken(): %v", err)
	}
	return token
}

func institutionToken(t *testing.T, env *testEnv, inst institution.Institution) string {
	token, err := GenerateToken(env.conf, GetInstitutionClaims(env.conf, inst))
	if err != nil {
		t.Fatalf("institutionToken(): %v", err)
	}
	return token
}

// HTTP plumbing

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
