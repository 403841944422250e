package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-rental/internal/apperror"
)

// storeTimeout bounds the store calls made on behalf of one request.
const storeTimeout = 5 * time.Second

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), storeTimeout)
}

var errInvalidBody = apperror.Validation("invalid body")

// HTTPErrorHandler renders every error as {"error": msg}.  Internal
// errors are logged with their cause and reported with a generic message.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		status int
		msg    string
		he     *echo.HTTPError
	)
	if errors.As(err, &he) {
		status, msg = he.Code, fmt.Sprint(he.Message)
		if status >= http.StatusInternalServerError {
			msg = "internal server error"
			c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
		}
	} else {
		// Anything that is not an *apperror.Error becomes an internal error.
		ae := apperror.From(err)
		status, msg = ae.Status, ae.Message
		if ae.Kind == apperror.KindInternal {
			c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Request().URL.Path, ae.Cause)
		}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, echo.Map{"error": msg})
	}
	if err != nil {
		c.Logger().Error(err)
	}
}
