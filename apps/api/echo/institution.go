package echoapi

import (
	"fmt"
	"net/http"
	"net/mail"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/scholarlypay/core"
	"github.com/trezcool/scholarlypay/core/assist"
	"github.com/trezcool/scholarlypay/core/institution"
	"github.com/trezcool/scholarlypay/core/payment"
	"github.com/trezcool/scholarlypay/core/student"
)

var errMissingRecipient = "a recipient email is required to send the reminder"

type institutionApi struct {
	conf         *core.Config
	institutions *institution.Service
	students     *student.Service
	payments     *payment.Service
	drafter      assist.Drafter
	email        core.EmailService
	validate     *validator.Validate
	translator   ut.Translator
}

func registerInstitutionAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := institutionApi{
		conf:         deps.Conf,
		institutions: deps.InstitutionSvc,
		students:     deps.StudentSvc,
		payments:     deps.PaymentSvc,
		drafter:      deps.Drafter,
		email:        deps.EmailSvc,
		validate:     deps.Validate,
		translator:   deps.Translator,
	}

	ig := g.Group("/institution")

	// un-authed endpoints
	ig.POST("/signup", api.signup)
	ig.POST("/login", api.login)
	ig.POST("/token-refresh", api.refreshToken, jwt, adminMiddleware())

	// authed endpoints
	admin := []echo.MiddlewareFunc{jwt, adminMiddleware()}

	sg := g.Group("/students", admin...)
	sg.POST("", api.createStudent)
	sg.GET("", api.queryStudents)
	sg.GET("/:id", api.retrieveStudent)
	sg.PUT("/:id", api.updateStudent)
	sg.DELETE("/:id", api.destroyStudent)
	sg.POST("/:id/payments", api.recordPayment)

	g.GET("/payments", api.queryPayments, admin...)
	g.GET("/dashboard", api.dashboard, admin...)
	g.GET("/reports/fees", api.feesReport, admin...)

	ag := g.Group("/assist", admin...)
	ag.POST("/reminder", api.draftReminder)
	ag.POST("/explanation", api.explainFees)
}

// Handlers

func (api *institutionApi) signup(ctx echo.Context) error {
	var data institution.NewInstitution
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInstitution")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.institutions); err != nil {
		return err
	}

	inst, err := api.institutions.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating institution")
	}

	token, err := GenerateToken(api.conf, GetInstitutionClaims(api.conf, inst))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, SignupResponse{Token: token, Profile: inst})
}

func (api *institutionApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := authenticateInstitution(ctx, api.conf, api.institutions, data.Email, data.Password)
	if err != nil {
		return err
	}
	token, err := GenerateToken(api.conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *institutionApi) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	inst, err := api.institutions.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "finding institution by ID")
	}

	token, err := refreshTokenForClaims(api.conf, claims, func() *Claims {
		return GetInstitutionClaims(api.conf, inst, claims.OrigIssuedAt)
	})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *institutionApi) createStudent(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.students); err != nil {
		return err
	}

	st, err := api.students.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (api *institutionApi) queryStudents(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Student{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.students.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *institutionApi) retrieveStudent(ctx echo.Context) error {
	st, err := api.getStudent(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, StudentDetailResponse{
		Student: st,
		Balance: st.TotalFees - st.PaidAmount,
	})
}

func (api *institutionApi) updateStudent(ctx echo.Context) error {
	st, err := api.getStudent(ctx)
	if err != nil {
		return err
	}

	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(st, api.validate); err != nil {
		return err
	}

	st, err = api.students.Update(ctx.Request().Context(), st.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *institutionApi) destroyStudent(ctx echo.Context) error {
	st, err := api.getStudent(ctx)
	if err != nil {
		return err
	}
	if err := api.students.Delete(ctx.Request().Context(), st.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// recordPayment is the staff-side "Add Payment" entry; it runs the same
// atomic settlement write as a confirmed gateway payment.
func (api *institutionApi) recordPayment(ctx echo.Context) error {
	st, err := api.getStudent(ctx)
	if err != nil {
		return err
	}

	var data student.PaymentEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PaymentEntry")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	updated, pmt, err := api.students.RecordManualPayment(ctx.Request().Context(), st.ID, data)
	if err != nil {
		if errors.Cause(err) == payment.ErrDuplicateReference {
			return core.NewValidationError(nil, core.FieldError{Field: "reference", Error: err.Error()})
		}
		return errors.Wrap(err, "recording manual payment")
	}
	return ctx.JSON(http.StatusCreated, ManualPaymentResponse{Student: updated, Payment: pmt})
}

func (api *institutionApi) queryPayments(ctx echo.Context) error {
	filter := new(payment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []payment.Payment{})
	}

	pmts, err := api.payments.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if pmts == nil {
		pmts = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, pmts)
}

func (api *institutionApi) dashboard(ctx echo.Context) error {
	summary, err := api.students.Summary(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing fees summary")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *institutionApi) feesReport(ctx echo.Context) error {
	students, err := api.students.Query(ctx.Request().Context(), nil, nil)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}

	doc, err := student.FeesReport(api.conf.AppName, api.conf.Currency, students)
	if err != nil {
		return errors.Wrap(err, "rendering fees report")
	}

	ctx.Response().Header().Set(
		echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", "fees-report.txt"),
	)
	return ctx.Blob(http.StatusOK, "text/plain; charset=utf-8", []byte(doc))
}

func (api *institutionApi) draftReminder(ctx echo.Context) error {
	var data ReminderRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReminderRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	draft, err := api.drafter.DraftPaymentReminder(ctx.Request().Context(), data.ReminderInput)
	if err != nil {
		return errDraftingFailed
	}

	if data.Send {
		api.email.SendMessages(&core.EmailMessage{
			To:      []mail.Address{{Name: data.ParentName, Address: data.To}},
			Subject: draft.Subject,
			Body:    draft.Body,
		})
	}
	return ctx.JSON(http.StatusOK, draft)
}

func (api *institutionApi) explainFees(ctx echo.Context) error {
	var data assist.ExplanationInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ExplanationInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	explanation, err := api.drafter.ExplainFees(ctx.Request().Context(), data)
	if err != nil {
		return errDraftingFailed
	}
	return ctx.JSON(http.StatusOK, explanation)
}

func (api *institutionApi) getStudent(ctx echo.Context) (student.Student, error) {
	st, err := api.students.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return student.Student{}, errHttpNotFound
		}
		return student.Student{}, errors.Wrap(err, "finding student by ID")
	}
	return st, nil
}

type (
	// ReminderRequest optionally emails the generated draft to the payer.
	ReminderRequest struct {
		assist.ReminderInput
		Send bool   `json:"send"`
		To   string `json:"to" validate:"omitempty,email"`
	}

	ManualPaymentResponse struct {
		Student student.Student `json:"student"`
		Payment payment.Payment `json:"payment"`
	}
)

func (rr *ReminderRequest) Validate(validate *validator.Validate) error {
	rr.To = core.CleanString(rr.To, true /* lower */)
	if err := rr.ReminderInput.Validate(validate); err != nil {
		return err
	}
	if err := validate.Struct(rr); err != nil {
		return err
	}
	if rr.Send && rr.To == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "to", Error: errMissingRecipient})
	}
	return nil
}
