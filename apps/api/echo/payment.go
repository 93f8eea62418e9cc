package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/bursary/core/payment"
)

type paymentApi struct {
	ledger *payment.Ledger
}

func registerPaymentAPI(g *echo.Group, jwt echo.MiddlewareFunc, ledger *payment.Ledger) {
	api := paymentApi{ledger: ledger}

	pg := g.Group("/payments", jwt)
	pg.POST("", api.settle, adminMiddleware())
	pg.GET("", api.query, adminMiddleware())
	// students may look up their own receipts
	pg.GET("/receipts/:receipt", api.receipt)
}

// Handlers

func (api *paymentApi) settle(ctx echo.Context) error {
	var data payment.Settlement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Settlement")
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	p, err := api.ledger.Settle(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "settling fee")
	}
	return created(ctx, p)
}

func (api *paymentApi) query(ctx echo.Context) error {
	qp := newQueryParser(ctx)
	filter := payment.QueryFilter{
		StudentID: qp.Int64("student_id"),
		FeeID:     qp.Int64("fee_id"),
		Status:    payment.Status(qp.String("status")),
		Method:    payment.Method(qp.String("payment_method")),
		StartDate: qp.Date("start_date"),
		EndDate:   qp.Date("end_date"),
	}
	page := qp.Page()
	if err := qp.Err(); err != nil {
		return err
	}

	res, err := api.ledger.ListAll(ctx.Request().Context(), filter, page)
	if err != nil {
		return errors.Wrap(err, "listing payments")
	}
	res.Summary = res.Summary.Rounded()
	return ok(ctx, res)
}

func (api *paymentApi) receipt(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}
	p, err := api.ledger.GetByReceipt(ctx.Request().Context(), actor, ctx.Param("receipt"))
	if err != nil {
		return errors.Wrap(err, "getting payment")
	}
	return ok(ctx, p)
}
