package api

import (
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/archon-core/archon/pkg/apperrors"
)

// mapServiceError maps a service-layer apperrors.Kind to an HTTP status;
// this switch is the taxonomy-to-status table.
func mapServiceError(err error) *echo.HTTPError {
	kind := apperrors.KindOf(err)
	switch kind {
	case apperrors.KindValidation:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case apperrors.KindUnauthenticated, apperrors.KindTokenExpired, apperrors.KindInvalidToken:
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case apperrors.KindForbidden:
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case apperrors.KindNotFound, apperrors.KindSessionNotFound:
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	case apperrors.KindConflict, apperrors.KindAlreadyGlobal, apperrors.KindSessionAlreadyDisconnected, apperrors.KindSessionIDMismatch:
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case apperrors.KindRateLimited:
		return echo.NewHTTPError(http.StatusTooManyRequests, err.Error())
	case apperrors.KindStorageUnavailable, apperrors.KindProviderUnavailable:
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case apperrors.KindProviderTimeout:
		return echo.NewHTTPError(http.StatusGatewayTimeout, err.Error())
	default:
		slog.Error("unexpected service error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
