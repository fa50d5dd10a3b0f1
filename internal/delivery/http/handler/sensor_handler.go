package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"waste-fleet-monitor/internal/middleware"
	"waste-fleet-monitor/internal/usecase/device"
	"waste-fleet-monitor/pkg/utils"
)

type SensorHandler struct {
	service *device.Service
}

func NewSensorHandler(service *device.Service) *SensorHandler {
	return &SensorHandler{service: service}
}

func (h *SensorHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.PUT("/profiles/:id", h.UpdateProfile)

	sensors := router.Group("/sensors")
	{
		sensors.POST("/:id/jobs", h.EnqueueJob)
		sensors.POST("/:id/fetch", h.FetchFields)
	}
}

func (h *SensorHandler) RegisterAdminRoutes(router *gin.RouterGroup) {
	router.POST("/onboarding/:id/approve", h.ApproveOnboarding)
}

func (h *SensorHandler) UpdateProfile(c *gin.Context) {
	profileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid profile ID")
		return
	}

	var req device.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, err := h.service.UpdateProfile(c.Request.Context(), middleware.GetCompanyID(c), profileID, &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Profile updated successfully", profile)
}

func (h *SensorHandler) EnqueueJob(c *gin.Context) {
	sensorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid sensor ID")
		return
	}

	var req device.EnqueueJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	j, err := h.service.EnqueueJob(c.Request.Context(), middleware.GetCompanyID(c), sensorID, &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	status := http.StatusOK
	if j.Created {
		status = http.StatusCreated
	}
	utils.SuccessResponse(c, status, "Job queued", j)
}

func (h *SensorHandler) FetchFields(c *gin.Context) {
	sensorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid sensor ID")
		return
	}

	var req device.FetchFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.FetchFields(c.Request.Context(), middleware.GetCompanyID(c), sensorID, &req); err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusAccepted, "Settings requested", nil)
}

func (h *SensorHandler) ApproveOnboarding(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid onboarding request ID")
		return
	}

	var req device.ApproveOnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	sensor, err := h.service.ApproveOnboarding(c.Request.Context(), requestID, &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Sensor registered", sensor)
}
