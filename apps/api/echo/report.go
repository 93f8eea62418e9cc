package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/bursary/core/report"
)

type reportApi struct {
	reports *report.Service
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, reports *report.Service) {
	api := reportApi{reports: reports}

	rg := g.Group("/reports", jwt, adminMiddleware())
	rg.GET("/financial", api.financial)
	rg.GET("/financial/export", api.exportFinancial)
}

func (api *reportApi) summary(ctx echo.Context) (report.Summary, error) {
	qp := newQueryParser(ctx)
	sessionID := qp.Int64("session_id")
	filter := report.SummaryFilter{
		StartDate:  qp.Date("start_date"),
		EndDate:    qp.Date("end_date"),
		Department: qp.NullString("department"),
	}
	if err := qp.Err(); err != nil {
		return report.Summary{}, err
	}
	sum, err := api.reports.FinancialSummary(ctx.Request().Context(), sessionID, filter)
	return sum, errors.Wrap(err, "summarizing finances")
}

// Handlers

func (api *reportApi) financial(ctx echo.Context) error {
	sum, err := api.summary(ctx)
	if err != nil {
		return err
	}
	return ok(ctx, sum.Rounded())
}

func (api *reportApi) exportFinancial(ctx echo.Context) error {
	sum, err := api.summary(ctx)
	if err != nil {
		return err
	}
	f, err := report.ExportFinancial(sum)
	if err != nil {
		return errors.Wrap(err, "exporting financial summary")
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return errors.Wrap(err, "writing workbook")
	}

	filename := fmt.Sprintf("financial-summary-%d.xlsx", sum.SessionID)
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, report.ExportContentType, buf.Bytes())
}
