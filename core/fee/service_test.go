package fee_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/fee"
	"github.com/trezcool/bursary/core/session"
	"github.com/trezcool/bursary/core/student"
	emailsvc "github.com/trezcool/bursary/services/email"
	inmemdb "github.com/trezcool/bursary/storage/database/inmem"
	"github.com/trezcool/bursary/tests"
)

type catalogEnv struct {
	db       *inmemdb.DB
	sessRepo session.Repository
	feeRepo  fee.Repository
	catalog  *fee.Catalog
	sess     session.Session
}

func setup(t *testing.T, activeSession bool) catalogEnv {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	core.ParseEmailTemplates(conf, logger)
	emailsvc.ResetSentMessages()

	db := inmemdb.Open()
	env := catalogEnv{
		db:       db,
		sessRepo: inmemdb.NewSessionRepository(db),
		feeRepo:  inmemdb.NewFeeRepository(db),
	}
	env.sess = testutil.CreateSession(
		t, env.sessRepo, "2023-2024", core.NewDate(2023, 7, 1), core.NewDate(2024, 6, 30), activeSession,
	)

	validate, _ := testutil.NewValidator()
	env.catalog = fee.NewCatalog(
		db,
		env.feeRepo,
		session.NewService(db, env.sessRepo),
		inmemdb.NewStudentRepository(db),
		emailsvc.NewConsoleServiceMock(conf, logger),
		validate,
	)
	return env
}

var admin = core.Actor{ID: "admin-1", Name: "Admin", IsAdmin: true}

func validNewFee() fee.NewFee {
	return fee.NewFee{
		FeeType:        "  Tuition ",
		FeeName:        "Semester 3 tuition",
		Amount:         decimal.NewFromInt(1000),
		DueDate:        core.NewDate(2024, 1, 10),
		LateFinePerDay: decimal.NewFromInt(50),
		MaxLateFine:    decimal.NewFromInt(500),
		Semester:       null.IntFrom(3),
		Department:     null.StringFrom(" "),
		Program:        null.StringFrom("UG"),
	}
}

func TestCatalog_Create(t *testing.T) {
	env := setup(t, true)
	ctx := context.Background()

	t.Run("normalizes and persists an active fee", func(t *testing.T) {
		f, err := env.catalog.Create(ctx, admin, validNewFee())
		require.NoError(t, err)
		assert.NotZero(t, f.ID)
		assert.Equal(t, "Tuition", f.FeeType)
		assert.False(t, f.Department.Valid, "blank department must become null")
		assert.Equal(t, fee.StatusActive, f.Status)
		assert.Equal(t, env.sess.ID, f.SessionID)
		assert.Equal(t, admin.ID, f.CreatedBy)
	})

	invalid := []struct {
		name   string
		modify func(nf *fee.NewFee)
		field  string
	}{
		{name: "zero amount", modify: func(nf *fee.NewFee) { nf.Amount = decimal.Zero }, field: "amount"},
		{name: "negative amount", modify: func(nf *fee.NewFee) { nf.Amount = decimal.NewFromInt(-5) }, field: "amount"},
		{name: "missing due date", modify: func(nf *fee.NewFee) { nf.DueDate = core.Date{} }, field: "due_date"},
		{name: "missing fee type", modify: func(nf *fee.NewFee) { nf.FeeType = "  " }, field: "fee_type"},
		{name: "negative late fine", modify: func(nf *fee.NewFee) { nf.LateFinePerDay = decimal.NewFromInt(-1) }, field: "late_fine_per_day"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			nf := validNewFee()
			tt.modify(&nf)
			_, err := env.catalog.Create(ctx, admin, nf)
			require.Error(t, err)
			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs), "want validator.ValidationErrors, got %T", err)
			assert.Equal(t, tt.field, verrs[0].Field())
		})
	}

	t.Run("semester out of range", func(t *testing.T) {
		nf := validNewFee()
		nf.Semester = null.IntFrom(7)
		_, err := env.catalog.Create(ctx, admin, nf)
		var verrs validator.ValidationErrors
		require.True(t, errors.As(err, &verrs))
		assert.Equal(t, fee.CodeInvalidSemester, core.ValidationCode(verrs))
	})

	coded := []struct {
		name     string
		modify   func(nf *fee.NewFee)
		wantCode string
		field    string
	}{
		{name: "semester 0", modify: func(nf *fee.NewFee) { nf.Semester = null.IntFrom(0) }, wantCode: fee.CodeInvalidSemester, field: "semester"},
		{
			name:     "amount below a cent",
			modify:   func(nf *fee.NewFee) { nf.Amount = decimal.RequireFromString("0.001") },
			wantCode: fee.CodeInvalidAmount, field: "amount",
		},
		{
			name:     "amount with 3 decimal places",
			modify:   func(nf *fee.NewFee) { nf.Amount = decimal.RequireFromString("1250.005") },
			wantCode: fee.CodeInvalidAmount, field: "amount",
		},
		{
			name:     "amount too large",
			modify:   func(nf *fee.NewFee) { nf.Amount = decimal.New(1, 11) },
			wantCode: fee.CodeInvalidAmount, field: "amount",
		},
		{
			name:     "late fine with 3 decimal places",
			modify:   func(nf *fee.NewFee) { nf.LateFinePerDay = decimal.RequireFromString("0.125") },
			wantCode: fee.CodeInvalidAmount, field: "late_fine_per_day",
		},
		{
			name:     "max late fine too large",
			modify:   func(nf *fee.NewFee) { nf.MaxLateFine = decimal.New(1, 10) },
			wantCode: fee.CodeInvalidAmount, field: "max_late_fine",
		},
	}
	for _, tt := range coded {
		t.Run(tt.name, func(t *testing.T) {
			nf := validNewFee()
			tt.modify(&nf)
			_, err := env.catalog.Create(ctx, admin, nf)
			verr, ok := errors.Cause(err).(*core.ValidationError)
			require.True(t, ok, "want ValidationError, got %v", err)
			assert.Equal(t, tt.wantCode, verr.Code)
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
		})
	}

	t.Run("trailing zeros are not extra precision", func(t *testing.T) {
		nf := validNewFee()
		nf.Amount = decimal.RequireFromString("1250.500")
		f, err := env.catalog.Create(ctx, admin, nf)
		require.NoError(t, err)
		assert.Equal(t, "1250.50", f.Amount.StringFixed(2))
	})
}

func TestCatalog_Create_noActiveSession(t *testing.T) {
	env := setup(t, false)
	_, err := env.catalog.Create(context.Background(), admin, validNewFee())
	_, ok := errors.Cause(err).(*core.NoActiveSessionError)
	assert.True(t, ok, "want NoActiveSessionError, got %v", err)
}

func decodeUpdate(t *testing.T, body string) fee.UpdateFee {
	var uf fee.UpdateFee
	require.NoError(t, json.Unmarshal([]byte(body), &uf))
	return uf
}

func TestCatalog_Update(t *testing.T) {
	env := setup(t, true)
	ctx := context.Background()
	created, err := env.catalog.Create(ctx, admin, validNewFee())
	require.NoError(t, err)

	t.Run("absent fields are kept", func(t *testing.T) {
		f, err := env.catalog.Update(ctx, created.ID, decodeUpdate(t, `{"amount": 1200}`))
		require.NoError(t, err)
		assert.True(t, f.Amount.Equal(decimal.NewFromInt(1200)))
		assert.Equal(t, created.FeeName, f.FeeName)
		assert.Equal(t, created.Semester, f.Semester)
	})

	t.Run("explicit null clears a scope field", func(t *testing.T) {
		f, err := env.catalog.Update(ctx, created.ID, decodeUpdate(t, `{"semester": null, "program": null}`))
		require.NoError(t, err)
		assert.False(t, f.Semester.Valid)
		assert.False(t, f.Program.Valid)
	})

	t.Run("no fields", func(t *testing.T) {
		_, err := env.catalog.Update(ctx, created.ID, decodeUpdate(t, `{"status": "retired"}`))
		verr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok, "want ValidationError, got %v", err)
		assert.Equal(t, fee.CodeNoFields, verr.Code)
	})

	t.Run("changed fields are validated", func(t *testing.T) {
		_, err := env.catalog.Update(ctx, created.ID, decodeUpdate(t, `{"amount": 0}`))
		var verrs validator.ValidationErrors
		require.True(t, errors.As(err, &verrs), "want validator.ValidationErrors, got %v", err)

		f, err := env.catalog.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, f.Amount.Equal(decimal.NewFromInt(1200)), "a rejected update must not be persisted")
	})

	t.Run("semester 0", func(t *testing.T) {
		_, err := env.catalog.Update(ctx, created.ID, decodeUpdate(t, `{"semester": 0}`))
		verr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok, "want ValidationError, got %v", err)
		assert.Equal(t, fee.CodeInvalidSemester, verr.Code)
	})

	t.Run("amount with 3 decimal places", func(t *testing.T) {
		_, err := env.catalog.Update(ctx, created.ID, decodeUpdate(t, `{"amount": 10.005}`))
		verr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok, "want ValidationError, got %v", err)
		assert.Equal(t, fee.CodeInvalidAmount, verr.Code)
	})

	t.Run("unknown fee", func(t *testing.T) {
		_, err := env.catalog.Update(ctx, 9999, decodeUpdate(t, `{"amount": 10}`))
		assert.True(t, core.IsNotFound(err))
	})
}

func TestCatalog_noActiveSession(t *testing.T) {
	env := setup(t, false)
	ctx := context.Background()
	f := testutil.CreateFee(t, env.feeRepo, env.sess.ID, "Tuition", 1000, core.NewDate(2024, 1, 10))

	isNoActiveSession := func(t *testing.T, err error) {
		_, ok := errors.Cause(err).(*core.NoActiveSessionError)
		assert.True(t, ok, "want NoActiveSessionError, got %v", err)
	}

	_, err := env.catalog.Update(ctx, f.ID, decodeUpdate(t, `{"amount": 1200}`))
	isNoActiveSession(t, err)

	_, err = env.catalog.Retire(ctx, f.ID)
	isNoActiveSession(t, err)

	got, err := env.catalog.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, fee.StatusActive, got.Status)
}

func TestCatalog_Retire(t *testing.T) {
	env := setup(t, true)
	ctx := context.Background()
	created, err := env.catalog.Create(ctx, admin, validNewFee())
	require.NoError(t, err)

	for i := 0; i < 2; i++ { // idempotent
		res, err := env.catalog.Retire(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, fee.RetireResult{Deleted: true, FeeID: created.ID, FeeName: created.FeeName}, res)
	}

	f, err := env.catalog.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, fee.StatusRetired, f.Status)

	_, err = env.catalog.Retire(ctx, 9999)
	assert.True(t, core.IsNotFound(err))
}

func TestCatalog_List(t *testing.T) {
	env := setup(t, true)
	ctx := context.Background()
	sid := env.sess.ID

	jan, feb, mar := core.NewDate(2024, 1, 10), core.NewDate(2024, 2, 10), core.NewDate(2024, 3, 10)
	exam := testutil.CreateFee(t, env.feeRepo, sid, "Exam", 500, feb)
	bcaS3 := testutil.CreateFee(t, env.feeRepo, sid, "Tuition", 1000, jan,
		testutil.WithScope(null.StringFrom("BCA"), null.IntFrom(3), null.String{}))
	bbaS3 := testutil.CreateFee(t, env.feeRepo, sid, "Tuition", 1100, jan,
		testutil.WithScope(null.StringFrom("BBA"), null.IntFrom(3), null.String{}))
	allS1 := testutil.CreateFee(t, env.feeRepo, sid, "Library", 200, mar,
		testutil.WithScope(null.String{}, null.IntFrom(1), null.String{}))
	retired := testutil.CreateFee(t, env.feeRepo, sid, "Bus", 300, mar, testutil.Retired())

	other := testutil.CreateSession(t, env.sessRepo, "2024-2025", core.NewDate(2024, 7, 1), core.NewDate(2025, 6, 30), false)
	otherFee := testutil.CreateFee(t, env.feeRepo, other.ID, "Tuition", 1000, jan)

	ids := func(fees []fee.Fee) []int64 {
		out := make([]int64, 0, len(fees))
		for _, f := range fees {
			out = append(out, f.ID)
		}
		return out
	}

	tests := []struct {
		name    string
		filter  fee.QueryFilter
		want    []int64
		wantErr bool
	}{
		{name: "defaults to the active session", want: []int64{bcaS3.ID, bbaS3.ID, exam.ID, allS1.ID, retired.ID}},
		{name: "explicit session", filter: fee.QueryFilter{SessionID: other.ID}, want: []int64{otherFee.ID}},
		{
			name:   "department matches department wide fees",
			filter: fee.QueryFilter{Department: null.StringFrom("BCA")},
			want:   []int64{bcaS3.ID, exam.ID, allS1.ID, retired.ID},
		},
		{
			name:   "semester",
			filter: fee.QueryFilter{Semester: null.IntFrom(1), Status: fee.StatusActive},
			want:   []int64{exam.ID, allS1.ID},
		},
		{name: "status", filter: fee.QueryFilter{Status: "RETIRED"}, want: []int64{retired.ID}},
		{name: "unknown status", filter: fee.QueryFilter{Status: "lost"}, wantErr: true},
		{name: "invalid semester", filter: fee.QueryFilter{Semester: null.IntFrom(9)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := env.catalog.List(ctx, tt.filter)
			if tt.wantErr {
				_, ok := errors.Cause(err).(*core.ValidationError)
				assert.True(t, ok, "want ValidationError, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(res.Fees))
			assert.Equal(t, len(tt.want), res.Total)
		})
	}
}

func TestCatalog_Notify(t *testing.T) {
	env := setup(t, true)
	ctx := context.Background()
	sid := env.sess.ID
	insert := func(s student.Student) (student.Student, error) { return env.db.InsertStudent(s), nil }

	testutil.CreateStudent(t, insert, sid, "BCA301", "Asha", "BCA", 3)
	testutil.CreateStudent(t, insert, sid, "BCA302", "Ravi", "BCA", 3)
	testutil.CreateStudent(t, insert, sid, "BCA101", "Meena", "BCA", 1)
	testutil.CreateStudent(t, insert, sid, "BBA301", "John", "BBA", 3)

	f := testutil.CreateFee(t, env.feeRepo, sid, "Tuition", 1000, core.NewDate(2024, 1, 10),
		testutil.WithScope(null.String{}, null.IntFrom(3), null.String{}), testutil.WithLateFine(50, 500))

	t.Run("targets the narrower scope", func(t *testing.T) {
		emailsvc.ResetSentMessages()
		n, err := env.catalog.Notify(ctx, admin, f.ID, fee.NewNotification{
			Title:      "Tuition reminder",
			Message:    "Please pay your tuition.",
			Department: null.StringFrom("BCA"),
		})
		require.NoError(t, err)
		assert.Equal(t, 2, n.Recipients)
		assert.Equal(t, admin.ID, n.SentBy)
		assert.Len(t, env.db.Notifications(f.ID), 1)

		sent := emailsvc.SentMessages()
		require.Len(t, sent, 2)
		assert.Contains(t, sent[0].TextContent, "Please pay your tuition.")
		assert.Contains(t, sent[0].TextContent, "1000.00")
	})

	t.Run("disjoint target", func(t *testing.T) {
		n, err := env.catalog.Notify(ctx, admin, f.ID, fee.NewNotification{
			Title: "Reminder", Message: "Pay.", Semester: null.IntFrom(1),
		})
		require.NoError(t, err)
		assert.Zero(t, n.Recipients)
	})

	t.Run("unknown fee", func(t *testing.T) {
		_, err := env.catalog.Notify(ctx, admin, 9999, fee.NewNotification{Title: "Reminder", Message: "Pay."})
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("semester 0", func(t *testing.T) {
		_, err := env.catalog.Notify(ctx, admin, f.ID, fee.NewNotification{
			Title: "Reminder", Message: "Pay.", Semester: null.IntFrom(0),
		})
		verr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok, "want ValidationError, got %v", err)
		assert.Equal(t, fee.CodeInvalidSemester, verr.Code)
		assert.Len(t, env.db.Notifications(f.ID), 2, "a rejected notification must not be recorded")
	})

	t.Run("title required", func(t *testing.T) {
		_, err := env.catalog.Notify(ctx, admin, f.ID, fee.NewNotification{Message: "Pay."})
		var verrs validator.ValidationErrors
		assert.True(t, errors.As(err, &verrs))
	})
}
