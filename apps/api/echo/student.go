package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/bursary/core/payment"
	"github.com/trezcool/bursary/core/report"
)

type studentApi struct {
	ledger  *payment.Ledger
	reports *report.Service
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, ledger *payment.Ledger, reports *report.Service) {
	api := studentApi{ledger: ledger, reports: reports}

	sg := g.Group("/students/:student_id", jwt, ownerOrAdminMiddleware("student_id"))
	sg.GET("/fees", api.fees)
	sg.GET("/payments", api.payments)

	mg := g.Group("/me", jwt, studentMiddleware)
	mg.GET("/fees", api.myFees)
	mg.GET("/payments", api.myPayments)
}

// Handlers

func (api *studentApi) fees(ctx echo.Context) error {
	id, err := pathID(ctx, "student_id", "student")
	if err != nil {
		return err
	}
	return api.statement(ctx, id)
}

func (api *studentApi) payments(ctx echo.Context) error {
	id, err := pathID(ctx, "student_id", "student")
	if err != nil {
		return err
	}
	return api.history(ctx, id)
}

func (api *studentApi) myFees(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}
	return api.statement(ctx, actor.StudentID)
}

func (api *studentApi) myPayments(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}
	return api.history(ctx, actor.StudentID)
}

func (api *studentApi) statement(ctx echo.Context, studentID int64) error {
	qp := newQueryParser(ctx)
	asOf := qp.Date("as_of")
	if err := qp.Err(); err != nil {
		return err
	}
	if asOf.IsZero() {
		asOf = api.reports.Today()
	}

	st, err := api.reports.StudentStatement(ctx.Request().Context(), studentID, asOf)
	if err != nil {
		return errors.Wrap(err, "building student statement")
	}
	return ok(ctx, st.Rounded())
}

func (api *studentApi) history(ctx echo.Context, studentID int64) error {
	res, err := api.ledger.ListForStudent(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "listing student payments")
	}
	res.Summary = res.Summary.Rounded()
	return ok(ctx, res)
}
