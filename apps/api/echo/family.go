package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/scholarlypay/core"
	"github.com/trezcool/scholarlypay/core/billing"
	"github.com/trezcool/scholarlypay/core/parent"
	"github.com/trezcool/scholarlypay/core/payment"
	"github.com/trezcool/scholarlypay/core/student"
)

var errNoLinkedStudent = "no student found with this admission number"

type familyApi struct {
	conf       *core.Config
	parents    *parent.Service
	students   *student.Service
	payments   *payment.Service
	engine     *billing.Engine
	validate   *validator.Validate
	translator ut.Translator
}

func registerFamilyAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := familyApi{
		conf:       deps.Conf,
		parents:    deps.ParentSvc,
		students:   deps.StudentSvc,
		payments:   deps.PaymentSvc,
		engine:     deps.Engine,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	fg := g.Group("/family")

	// un-authed endpoints
	fg.POST("/signup", api.signup)
	fg.POST("/login", api.login)

	// authed endpoints
	ag := fg.Group("", jwt, parentMiddleware())
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/profile", api.profile)
	ag.GET("/student", api.student)
	ag.GET("/payments", api.queryPayments)
	ag.GET("/payments/:id/receipt", api.receipt)
	ag.POST("/settlements", api.initiateSettlement)
	ag.POST("/settlements/:reference/confirm", api.confirmSettlement)
	ag.POST("/settlements/:reference/cancel", api.cancelSettlement)
}

// Handlers

func (api *familyApi) signup(ctx echo.Context) error {
	var data parent.NewParent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewParent")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.parents); err != nil {
		return err
	}

	// the admission number must point at a registered student
	if data.AdmissionNumber != "" {
		if _, err := api.students.GetByAdmissionNumber(ctx.Request().Context(), data.AdmissionNumber); err != nil {
			if errors.Cause(err) == student.ErrNotFound {
				return core.NewValidationError(nil, core.FieldError{Field: "admission_number", Error: errNoLinkedStudent})
			}
			return errors.Wrap(err, "finding student by admission number")
		}
	}

	p, err := api.parents.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating parent")
	}

	token, err := GenerateToken(api.conf, GetParentClaims(api.conf, p))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, SignupResponse{Token: token, Profile: p})
}

func (api *familyApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := authenticateParent(ctx, api.conf, api.parents, data.Email, data.Password)
	if err != nil {
		return err
	}
	token, err := GenerateToken(api.conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *familyApi) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	p, err := getContextParent(ctx, api.parents)
	if err != nil {
		return errors.Wrap(err, "getting context parent")
	}

	token, err := refreshTokenForClaims(api.conf, claims, func() *Claims {
		return GetParentClaims(api.conf, p, claims.OrigIssuedAt)
	})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *familyApi) profile(ctx echo.Context) error {
	p, err := getContextParent(ctx, api.parents)
	if err != nil {
		return errors.Wrap(err, "getting context parent")
	}
	return ctx.JSON(http.StatusOK, p)
}

// student returns the linked child's record with its live outstanding balance.
func (api *familyApi) student(ctx echo.Context) error {
	st, err := api.linkedStudent(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, StudentDetailResponse{
		Student: st,
		Balance: billing.ComputeBalance(st),
	})
}

func (api *familyApi) queryPayments(ctx echo.Context) error {
	st, err := api.linkedStudent(ctx)
	if err != nil {
		return err
	}

	pmts, err := api.payments.Ledger(ctx.Request().Context(), st.ID)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if pmts == nil {
		pmts = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, pmts)
}

func (api *familyApi) receipt(ctx echo.Context) error {
	st, err := api.linkedStudent(ctx)
	if err != nil {
		return err
	}

	pmt, err := api.payments.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == payment.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding payment by ID")
	}
	// a family can only print its own child's receipts
	if pmt.StudentID != st.ID {
		return errHttpNotFound
	}

	doc, err := payment.Receipt(api.conf.AppName, st.Name, pmt)
	if err != nil {
		return errors.Wrap(err, "rendering receipt")
	}

	ctx.Response().Header().Set(
		echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", "receipt-"+pmt.Reference+".txt"),
	)
	return ctx.Blob(http.StatusOK, "text/plain; charset=utf-8", []byte(doc))
}

func (api *familyApi) initiateSettlement(ctx echo.Context) error {
	p, err := getContextParent(ctx, api.parents)
	if err != nil {
		return errors.Wrap(err, "getting context parent")
	}
	st, err := api.linkedStudent(ctx)
	if err != nil {
		return err
	}

	session, err := api.engine.Initiate(ctx.Request().Context(), st, p.Email)
	if err != nil {
		if errors.Cause(err) == billing.ErrNothingOutstanding {
			return errNothingOutstanding
		}
		return errors.Wrap(err, "initiating settlement")
	}
	return ctx.JSON(http.StatusCreated, session)
}

func (api *familyApi) confirmSettlement(ctx echo.Context) error {
	settlement, err := api.engine.Confirm(ctx.Request().Context(), ctx.Param("reference"))
	if err != nil {
		return trapSettlementErr(err)
	}
	return ctx.JSON(http.StatusOK, settlement)
}

func (api *familyApi) cancelSettlement(ctx echo.Context) error {
	api.engine.Cancel(ctx.Param("reference"))
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "Checkout closed. No payment was made and no records were changed.",
	})
}

// linkedStudent resolves the child on the authenticated parent's profile.
func (api *familyApi) linkedStudent(ctx echo.Context) (student.Student, error) {
	p, err := getContextParent(ctx, api.parents)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "getting context parent")
	}
	if p.AdmissionNumber == "" {
		return student.Student{}, errHttpNotFound
	}

	st, err := api.students.GetByAdmissionNumber(ctx.Request().Context(), p.AdmissionNumber)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return student.Student{}, errHttpNotFound
		}
		return student.Student{}, errors.Wrap(err, "finding student by admission number")
	}
	return st, nil
}

func trapSettlementErr(err error) error {
	switch errors.Cause(err) {
	case billing.ErrUnknownReference:
		return errHttpNotFound
	case billing.ErrSettlementExpired:
		return errSettlementExpired
	case billing.ErrNotPaid:
		return errPaymentNotConfirmed
	case billing.ErrAmountMismatch:
		return errAmountMismatch
	case payment.ErrDuplicateReference:
		return errDuplicateSettlement
	}
	return errors.Wrap(err, "confirming settlement")
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	SignupResponse struct {
		Token   string      `json:"token"`
		Profile interface{} `json:"profile"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	StudentDetailResponse struct {
		Student student.Student `json:"student"`
		Balance int64           `json:"balance"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}
