package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/bursary/apps/api/echo"
	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/fee"
	"github.com/trezcool/bursary/core/payment"
	"github.com/trezcool/bursary/core/report"
	"github.com/trezcool/bursary/core/session"
	emailsvc "github.com/trezcool/bursary/services/email"
	metricsvc "github.com/trezcool/bursary/services/metrics"
	inmemdb "github.com/trezcool/bursary/storage/database/inmem"
	"github.com/trezcool/bursary/tests"
)

type env struct {
	conf     *core.Config
	db       *inmemdb.DB
	sessRepo session.Repository
	feeRepo  fee.Repository
	app      *echoapi.Server
}

func setup(t *testing.T) env {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	validate, translator := testutil.NewValidator()
	core.ParseEmailTemplates(conf, logger)

	db := inmemdb.Open()
	e := env{
		conf:     conf,
		db:       db,
		sessRepo: inmemdb.NewSessionRepository(db),
		feeRepo:  inmemdb.NewFeeRepository(db),
	}
	students := inmemdb.NewStudentRepository(db)
	payments := inmemdb.NewPaymentRepository(db)
	sessions := session.NewService(db, e.sessRepo)
	metrics := metricsvc.NewCollector(prometheus.NewRegistry(), conf)

	receipts, err := payment.NewReceiptGenerator(conf.Ledger.ReceiptNode)
	if err != nil {
		t.Fatalf("NewReceiptGenerator() failed: %v", err)
	}

	e.app = echoapi.NewServer(echoapi.ServerDeps{
		Conf:     conf,
		Logger:   logger,
		Sessions: sessions,
		Catalog: fee.NewCatalog(
			db, e.feeRepo, sessions, students, emailsvc.NewConsoleServiceMock(conf, logger), validate,
		),
		Ledger: payment.NewLedger(
			db, payments, e.feeRepo, students, sessions, receipts, validate, payment.WithRecorder(metrics),
		),
		Reports: report.NewService(
			inmemdb.NewReportRepository(db), e.feeRepo, payments, students, sessions, conf.Location(),
		),
		Metrics:    metrics,
		Validate:   validate,
		Translator: translator,
	})
	return e
}

type httpErr struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

var (
	errMissingToken = httpErr{Error: core.CodeUnauthorized, Message: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: core.CodeForbidden, Message: "permission denied"}
)

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	check    func(t *testing.T, rec *httptest.ResponseRecorder)
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

func getToken(t *testing.T, conf *core.Config, actor core.Actor) string {
	token, err := echoapi.GenerateToken(conf, echoapi.NewClaims(conf, actor))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// unmarshalData decodes the `data` member of a success response into dest.
func unmarshalData(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshalData() failed: %v; body %s", err, rec.Body.String())
	}
	assert.True(t, resp.Success)
	if err := json.Unmarshal(resp.Data, dest); err != nil {
		t.Fatalf("unmarshalData() failed: %v; data %s", err, resp.Data)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData != nil {
		ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
		if err != nil {
			t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
		}
		if !ok {
			t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
		}
	}
	if tt.check != nil {
		tt.check(t, rec)
	}
}

func run(t *testing.T, app http.Handler, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
