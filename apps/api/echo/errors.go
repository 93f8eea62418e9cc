package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/bursary/core"
)

const msgServerError = "An unexpected error occurred"

// httpStatusCodes maps the echo errors we may return to client error codes.
var httpStatusCodes = map[int]string{
	http.StatusBadRequest:   core.CodeValidation,
	http.StatusUnauthorized: core.CodeUnauthorized,
	http.StatusForbidden:    core.CodeForbidden,
	http.StatusNotFound:     core.CodeNotFound,
	http.StatusConflict:     core.CodeConflict,
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var status int
		var resp errorResponse

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			status, resp = fromHTTPError(origErr)
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			status = http.StatusBadRequest
			resp = errorResponse{Error: core.ValidationCode(origErr), Message: "invalid input", Fields: fldErrs}
		case *core.ValidationError:
			status = http.StatusBadRequest
			resp = errorResponse{Error: origErr.Code, Message: origErr.Error()}
			if len(origErr.Fields) > 0 {
				resp.Fields = make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					resp.Fields[fErr.Field] = fErr.Error
				}
			}
		case *core.AuthError:
			status = http.StatusUnauthorized
			resp = errorResponse{Error: core.CodeUnauthorized, Message: origErr.Error()}
			if origErr.Forbidden {
				status = http.StatusForbidden
				resp.Error = core.CodeForbidden
			}
		case *core.NotFoundError:
			status = http.StatusNotFound
			resp = errorResponse{Error: core.CodeNotFound, Message: origErr.Error()}
		case *core.ConflictError:
			status = http.StatusConflict
			resp = errorResponse{Error: origErr.Code, Message: origErr.Error()}
		case *core.NoActiveSessionError:
			status = http.StatusBadRequest
			resp = errorResponse{Error: core.CodeNoActiveSession, Message: origErr.Error()}
		case *core.InsufficientPaymentError:
			status = http.StatusBadRequest
			resp = errorResponse{Error: core.CodeInsufficientPayment, Message: origErr.Error()}
		default: // any other error is a server error
			status = http.StatusInternalServerError
			resp = errorResponse{Error: core.CodeServerError, Message: msgServerError}

			args := []interface{}{err, core.LogFields{"request_id": requestID(ctx)}}
			var pe *core.PersistenceError
			if errors.As(err, &pe) && pe.Fields != nil {
				args = append(args, pe.Fields)
			}
			if actor, aErr := getContextActor(ctx); aErr == nil {
				args = append(args, actor)
			}
			logger.Error(msgServerError, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(status)
			} else {
				err = ctx.JSON(status, resp)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// fromHTTPError translates the errors raised by echo itself (routing, binding, JWT).
func fromHTTPError(he *echo.HTTPError) (int, errorResponse) {
	if he == middleware.ErrJWTMissing {
		return http.StatusUnauthorized, errorResponse{Error: core.CodeUnauthorized, Message: "missing or malformed jwt"}
	}

	var dateErr *core.DateError
	if he.Internal != nil {
		if errors.As(he.Internal, &dateErr) {
			return http.StatusBadRequest, errorResponse{Error: core.CodeInvalidDate, Message: dateErr.Error()}
		}
		if herr, ok := he.Internal.(*echo.HTTPError); ok {
			he = herr
		}
	}

	code, ok := httpStatusCodes[he.Code]
	if !ok {
		code = http.StatusText(he.Code)
	}
	msg, ok := he.Message.(string)
	if !ok {
		msg = http.StatusText(he.Code)
	}
	return he.Code, errorResponse{Error: code, Message: msg}
}
