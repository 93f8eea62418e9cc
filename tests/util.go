package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"os"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/fee"
	"github.com/trezcool/bursary/core/payment"
	"github.com/trezcool/bursary/core/session"
	"github.com/trezcool/bursary/core/student"
	logsvc "github.com/trezcool/bursary/services/logger"
	"github.com/trezcool/bursary/storage/database"
)

// NewConfig returns the TEST configuration.
func NewConfig() *core.Config {
	_ = os.Setenv("ENV", "TEST")
	return core.NewConfig()
}

func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// NewValidator returns a validator knowing every custom validation tag of the app.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := NewTranslator()
	core.InitValidators(validate, translator)
	fee.InitValidators(validate, translator)
	payment.InitValidators(validate, translator)
	return validate, translator
}

// NewLogger returns a silent logger.
func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)
	logger.Enable(false)
	return logger
}

func CreateSession(t *testing.T, repo session.Repository, name string, start, end core.Date, active bool) session.Session {
	ctx := context.Background()
	s, err := repo.CreateSession(ctx, session.Session{Name: name, StartDate: start, EndDate: end})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	if active {
		if err = repo.ActivateSession(ctx, s.ID); err != nil {
			t.Fatalf("CreateSession() failed: %v", err)
		}
		s.IsActive = true
	}
	return s
}

// StudentInserter is implemented by the stores able to add students to the directory.
type StudentInserter func(s student.Student) (student.Student, error)

func CreateStudent(t *testing.T, insert StudentInserter, sessionID int64, rollNo, name, dept string, sem int, program ...string) student.Student {
	s := student.Student{
		RollNo:     rollNo,
		Name:       name,
		Email:      null.StringFrom(rollNo + "@college.test"),
		Department: dept,
		Semester:   sem,
		SessionID:  sessionID,
		UserID:     "usr-" + rollNo,
	}
	if len(program) > 0 {
		s.Program = null.StringFrom(program[0])
	}
	s, err := insert(s)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

// FeeOption customizes the fees created by CreateFee.
type FeeOption func(f *fee.Fee)

func WithScope(dept null.String, sem null.Int, program null.String) FeeOption {
	return func(f *fee.Fee) {
		f.Department = dept
		f.Semester = sem
		f.Program = program
	}
}

func WithLateFine(perDay, maxFine int64) FeeOption {
	return func(f *fee.Fee) {
		f.LateFinePerDay = decimal.NewFromInt(perDay)
		f.MaxLateFine = decimal.NewFromInt(maxFine)
	}
}

func Retired() FeeOption {
	return func(f *fee.Fee) { f.Status = fee.StatusRetired }
}

func CreateFee(t *testing.T, repo fee.Repository, sessionID int64, feeType string, amount int64, due core.Date, opts ...FeeOption) fee.Fee {
	now := time.Now().UTC()
	f := fee.Fee{
		FeeType:   feeType,
		FeeName:   feeType + " fee",
		Amount:    decimal.NewFromInt(amount),
		DueDate:   due,
		SessionID: sessionID,
		Status:    fee.StatusActive,
		CreatedBy: "admin",
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(&f)
	}
	f, err := repo.CreateFee(context.Background(), f)
	if err != nil {
		t.Fatalf("CreateFee() failed: %v", err)
	}
	return f
}

// PrepareDB returns a migrated, empty TEST database. The test is skipped when the database is unreachable.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conf := NewConfig()

	db, err := database.Open(conf)
	if err != nil {
		t.Skipf("opening test database: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err = database.Ping(ctx, db, 3); err != nil {
		_ = db.Close()
		t.Skipf("test database unreachable: %v", err)
	}

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	ResetDB(t, db)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func ResetDB(t *testing.T, db *sqlx.DB) {
	q := "TRUNCATE fee_notifications, payments, fees, students, sessions RESTART IDENTITY CASCADE"
	if _, err := db.Exec(q); err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
}
