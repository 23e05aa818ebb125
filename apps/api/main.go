package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/scholarlypay/apps/api/echo"
	"github.com/trezcool/scholarlypay/core"
	"github.com/trezcool/scholarlypay/core/assist"
	"github.com/trezcool/scholarlypay/core/billing"
	"github.com/trezcool/scholarlypay/core/institution"
	"github.com/trezcool/scholarlypay/core/parent"
	"github.com/trezcool/scholarlypay/core/payment"
	"github.com/trezcool/scholarlypay/core/student"
	assistsvc "github.com/trezcool/scholarlypay/services/assist"
	emailsvc "github.com/trezcool/scholarlypay/services/email"
	logsvc "github.com/trezcool/scholarlypay/services/logger"
	paystacksvc "github.com/trezcool/scholarlypay/services/paystack"
	"github.com/trezcool/scholarlypay/storage/database"
	sqlxrepos "github.com/trezcool/scholarlypay/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	var gateway billing.Gateway
	if conf.Debug && conf.Paystack.SecretKey == "" {
		gateway = paystacksvc.NewDummyGateway()
	} else {
		gateway = paystacksvc.NewGateway(conf, logger)
	}

	var drafter assist.Drafter
	if conf.Assist.BaseURL == "" {
		drafter = assistsvc.NewDummyDrafter()
	} else {
		drafter = assistsvc.NewHTTPDrafter(conf, logger)
	}

	studentRepo := sqlxrepos.NewStudentRepository(db)
	studentSvc := student.NewService(studentRepo, conf)
	paymentSvc := payment.NewService(sqlxrepos.NewPaymentRepository(db))
	parentSvc := parent.NewService(sqlxrepos.NewParentRepository(db))
	institutionSvc := institution.NewService(sqlxrepos.NewInstitutionRepository(db))
	engine := billing.NewEngine(studentRepo, gateway, logger, conf)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err = http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:           conf,
			Logger:         logger,
			ParentSvc:      parentSvc,
			InstitutionSvc: institutionSvc,
			StudentSvc:     studentSvc,
			PaymentSvc:     paymentSvc,
			Engine:         engine,
			Drafter:        drafter,
			EmailSvc:       mailSvc,
			Validate:       validate,
			Translator:     translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return sqlx.NewDb(db, conf.Database.Engine), nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
