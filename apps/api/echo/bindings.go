package echoapi

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/bursary/core"
)

// queryParser reads typed query parameters. It keeps the first error met, see Err.
type queryParser struct {
	values url.Values
	err    error
}

func newQueryParser(ctx echo.Context) *queryParser {
	return &queryParser{values: ctx.QueryParams()}
}

func (p *queryParser) Err() error { return p.err }

func (p *queryParser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *queryParser) String(name string) string {
	return strings.TrimSpace(p.values.Get(name))
}

func (p *queryParser) NullString(name string) null.String {
	if v := p.String(name); v != "" {
		return null.StringFrom(v)
	}
	return null.String{}
}

func (p *queryParser) Int64(name string) int64 {
	v := p.String(name)
	if v == "" {
		return 0
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail(core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be an integer"}))
	}
	return i
}

func (p *queryParser) Int(name string) int {
	return int(p.Int64(name))
}

func (p *queryParser) NullInt(name string) null.Int {
	if p.String(name) == "" {
		return null.Int{}
	}
	return null.IntFrom(p.Int(name))
}

func (p *queryParser) Date(name string) core.Date {
	v := p.String(name)
	if v == "" {
		return core.Date{}
	}
	d, err := core.ParseDate(v)
	if err != nil {
		p.fail(core.NewCodedValidationError(core.CodeInvalidDate, err.Error(), core.FieldError{Field: name, Error: err.Error()}))
	}
	return d
}

// Page reads the `page` and `limit` pagination parameters.
func (p *queryParser) Page() core.Page {
	return core.Page{Number: p.Int("page"), Limit: p.Int("limit")}
}

// pathID parses the `name` path parameter as the ID of resource.
func pathID(ctx echo.Context, name, resource string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewNotFoundError(resource, ctx.Param(name))
	}
	return id, nil
}
