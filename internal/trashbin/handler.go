package trashbin

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/internal/middleware"
	appErrors "waste-fleet-monitor/pkg/errors"
	"waste-fleet-monitor/pkg/utils"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type tokenRequest struct {
	Serial   string `json:"serial" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

type jobsRequest struct {
	Jobs []JobStatus `json:"jobs" validate:"dive"`
}

type jobResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Payload string `json:"payload"`
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup, auth gin.HandlerFunc) {
	bins := router.Group("/trashbins")
	{
		bins.POST("/token", h.Token)

		authed := bins.Group("", auth, middleware.TrashbinOnly())
		authed.POST("/data", middleware.RequestSizeLimitMiddleware(MaxBodySize), h.Data)
		authed.GET("/jobs", h.ListJobs)
		authed.POST("/jobs", h.ReportJobs)
	}
}

func (h *Handler) Token(c *gin.Context) {
	var request tokenRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Auth credentials are not provided")
		return
	}
	if err := utils.ValidateStruct(&request); err != nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Auth credentials are not provided")
		return
	}

	token, bin, err := h.service.Authenticate(c.Request.Context(), request.Serial, request.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Token issued", tokenResponse{Token: token, UserID: bin.ID.String()})
}

func (h *Handler) Data(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondWithError(c, appErrors.ErrPayloadTooLarge)
			return
		}
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to read request body")
		return
	}
	logger.Debug("Got raw trashbin data", zap.Int("bytes", len(body)))

	if err := h.service.Ingest(c.Request.Context(), middleware.GetUserID(c), body); err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Packet registered", nil)
}

func (h *Handler) ListJobs(c *gin.Context) {
	jobs, err := h.service.PendingJobs(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondWithError(c, err)
		return
	}

	out := make([]jobResponse, len(jobs))
	for i, j := range jobs {
		out[i] = jobResponse{ID: j.ID.String(), Type: string(j.Type), Payload: j.Payload}
	}
	utils.SuccessResponse(c, http.StatusOK, "Pending jobs", gin.H{"jobs": out})
}

func (h *Handler) ReportJobs(c *gin.Context) {
	var request jobsRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(&request); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.CompleteJobs(c.Request.Context(), middleware.GetUserID(c), request.Jobs); err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Job statuses recorded", nil)
}

func respondWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, appErrors.ErrPayloadTooLarge):
		utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, appErrors.ErrInvalidCredentials):
		utils.ErrorResponse(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, appErrors.ErrForeignPacket),
		errors.Is(err, appErrors.ErrLicenseInvalid):
		utils.ErrorResponse(c, http.StatusForbidden, err.Error())
	case errors.Is(err, appErrors.ErrTooManyRecords),
		errors.Is(err, appErrors.ErrInvalidJobStatus):
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, device.ErrTrashbinNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, err.Error())
	default:
		var appErr *appErrors.AppError
		if errors.As(err, &appErr) {
			utils.ErrorResponse(c, http.StatusBadRequest, appErr.Message)
			return
		}

		logger.Error("Internal server error",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		utils.ErrorResponse(c, http.StatusInternalServerError, "Internal server error")
	}
}
