package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/domain/profile"
	"waste-fleet-monitor/internal/domain/route"
	"waste-fleet-monitor/internal/domain/user"
	"waste-fleet-monitor/internal/ingestion"
	"waste-fleet-monitor/internal/jobs"
	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/internal/middleware"
	"waste-fleet-monitor/internal/routing"
	"waste-fleet-monitor/pkg/codec"
	appErrors "waste-fleet-monitor/pkg/errors"
	"waste-fleet-monitor/pkg/utils"
)

func respondWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, appErrors.ErrInvalidCredentials):
		utils.ErrorResponse(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, route.ErrRouteNotFound),
		errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, device.ErrSensorNotFound),
		errors.Is(err, device.ErrOnboardingNotFound),
		errors.Is(err, profile.ErrProfileNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, route.ErrRouteFinished),
		errors.Is(err, route.ErrRouteNotNew),
		errors.Is(err, device.ErrAlreadyApproved):
		utils.ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, profile.ErrProfileReadOnly),
		errors.Is(err, user.ErrUserInactive),
		errors.Is(err, appErrors.ErrInsufficientPermissions):
		utils.ErrorResponse(c, http.StatusForbidden, err.Error())
	case errors.Is(err, routing.ErrDuplicateDriver),
		errors.Is(err, route.ErrNoPoints),
		errors.Is(err, route.ErrPointTarget),
		errors.Is(err, jobs.ErrUnsupportedCommand),
		errors.Is(err, jobs.ErrPayloadRequired),
		errors.Is(err, jobs.ErrPayloadOverflow),
		errors.Is(err, codec.ErrUnknownField),
		errors.Is(err, ingestion.ErrUnknownInstallType),
		errors.Is(err, ingestion.ErrUnknownNetworkType):
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
	default:
		var appErr *appErrors.AppError
		if errors.As(err, &appErr) {
			switch appErr.Code {
			case "INVALID_TRANSITION":
				utils.ErrorResponse(c, http.StatusConflict, appErr.Message)
			default:
				utils.ErrorResponse(c, http.StatusBadRequest, appErr.Message)
			}
			return
		}

		logger.Error("Internal server error",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.Error(err),
		)
		utils.ErrorResponse(c, http.StatusInternalServerError, "Internal server error")
	}
}
