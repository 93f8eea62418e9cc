package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/bursary/core/fee"
	"github.com/trezcool/bursary/core/report"
)

type feeApi struct {
	catalog *fee.Catalog
	reports *report.Service
}

func registerFeeAPI(g *echo.Group, jwt echo.MiddlewareFunc, catalog *fee.Catalog, reports *report.Service) {
	api := feeApi{catalog: catalog, reports: reports}

	fg := g.Group("/fees", jwt, adminMiddleware())
	fg.POST("", api.create)
	fg.GET("", api.query)
	fg.GET("/pending-students", api.pendingStudents)

	// detail endpoints
	fg.GET("/:id", api.retrieve)
	fg.PUT("/:id", api.update)
	fg.DELETE("/:id", api.retire)
	fg.POST("/:id/notify", api.notify)
}

// Handlers

func (api *feeApi) create(ctx echo.Context) error {
	var data fee.NewFee
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFee")
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	f, err := api.catalog.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating fee")
	}
	return created(ctx, f)
}

func (api *feeApi) query(ctx echo.Context) error {
	qp := newQueryParser(ctx)
	filter := fee.QueryFilter{
		SessionID:  qp.Int64("session_id"),
		Semester:   qp.NullInt("semester"),
		Department: qp.NullString("department"),
		Status:     fee.Status(qp.String("status")),
	}
	if err := qp.Err(); err != nil {
		return err
	}

	res, err := api.catalog.List(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing fees")
	}
	return ok(ctx, res)
}

func (api *feeApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "id", "fee")
	if err != nil {
		return err
	}
	f, err := api.catalog.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting fee")
	}
	return ok(ctx, f)
}

func (api *feeApi) update(ctx echo.Context) error {
	id, err := pathID(ctx, "id", "fee")
	if err != nil {
		return err
	}
	var data fee.UpdateFee
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateFee")
	}

	f, err := api.catalog.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating fee")
	}
	return ok(ctx, f)
}

func (api *feeApi) retire(ctx echo.Context) error {
	id, err := pathID(ctx, "id", "fee")
	if err != nil {
		return err
	}
	res, err := api.catalog.Retire(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "retiring fee")
	}
	return ok(ctx, res)
}

func (api *feeApi) notify(ctx echo.Context) error {
	id, err := pathID(ctx, "id", "fee")
	if err != nil {
		return err
	}
	var data fee.NewNotification
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNotification")
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	n, err := api.catalog.Notify(ctx.Request().Context(), actor, id, data)
	if err != nil {
		return errors.Wrap(err, "notifying students")
	}
	return created(ctx, n)
}

func (api *feeApi) pendingStudents(ctx echo.Context) error {
	qp := newQueryParser(ctx)
	sessionID := qp.Int64("session_id")
	filter := report.PendingFilter{
		Department: qp.NullString("department"),
		FeeType:    qp.NullString("fee_type"),
	}
	asOf := qp.Date("as_of")
	if err := qp.Err(); err != nil {
		return err
	}
	if asOf.IsZero() {
		asOf = api.reports.Today()
	}

	rep, err := api.reports.PendingStudents(ctx.Request().Context(), sessionID, filter, asOf)
	if err != nil {
		return errors.Wrap(err, "resolving pending students")
	}
	return ok(ctx, rep.Rounded())
}
