package dig_container

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/bursary/apps/api/echo"
	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/fee"
	"github.com/trezcool/bursary/core/payment"
	"github.com/trezcool/bursary/core/report"
	"github.com/trezcool/bursary/core/session"
	"github.com/trezcool/bursary/core/student"
	emailsvc "github.com/trezcool/bursary/services/email"
	logsvc "github.com/trezcool/bursary/services/logger"
	metricsvc "github.com/trezcool/bursary/services/metrics"
	"github.com/trezcool/bursary/storage/database"
	sqlxrepos "github.com/trezcool/bursary/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type ledgerParams struct {
	dig.In
	Conf     *core.Config
	Tx       core.Transactor
	Repo     payment.Repository
	Fees     fee.Repository
	Students student.Repository
	Sessions session.Resolver
	Receipts payment.ReceiptGenerator
	Metrics  *metricsvc.Collector
	Validate *validator.Validate
}

type serverParams struct {
	dig.In
	Conf       *core.Config
	Logger     core.Logger
	Sessions   *session.Service
	Catalog    *fee.Catalog
	Ledger     *payment.Ledger
	Reports    *report.Service
	Metrics    *metricsvc.Collector
	Validate   *validator.Validate
	Translator ut.Translator
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
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
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newLocation(conf *core.Config) *time.Location {
	return conf.Location()
}

func newResolver(svc *session.Service) session.Resolver {
	return svc
}

func newReceiptGenerator(conf *core.Config) (payment.ReceiptGenerator, error) {
	return payment.NewReceiptGenerator(conf.Ledger.ReceiptNode)
}

func newCollector(conf *core.Config) *metricsvc.Collector {
	return metricsvc.NewCollector(prometheus.DefaultRegisterer, conf)
}

func newLedger(p ledgerParams) *payment.Ledger {
	return payment.NewLedger(
		p.Tx, p.Repo, p.Fees, p.Students, p.Sessions, p.Receipts, p.Validate,
		payment.WithRecorder(p.Metrics),
		payment.WithLocation(p.Conf.Location()),
		payment.WithMaxPageSize(p.Conf.Ledger.MaxPageSize),
	)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Sessions:   p.Sessions,
		Catalog:    p.Catalog,
		Ledger:     p.Ledger,
		Reports:    p.Reports,
		Metrics:    p.Metrics,
		Validate:   p.Validate,
		Translator: p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(sqlxrepos.NewTransactor))
	must(c.Provide(newEmailService))
	must(c.Provide(newLocation))
	must(c.Provide(newCollector))
	must(c.Provide(newReceiptGenerator))

	must(c.Provide(sqlxrepos.NewSessionRepository))
	must(c.Provide(sqlxrepos.NewStudentRepository))
	must(c.Provide(sqlxrepos.NewFeeRepository))
	must(c.Provide(sqlxrepos.NewPaymentRepository))
	must(c.Provide(sqlxrepos.NewReportRepository))

	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))

	must(c.Provide(session.NewService))
	must(c.Provide(newResolver))
	must(c.Provide(fee.NewCatalog))
	must(c.Provide(newLedger))
	must(c.Provide(report.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
