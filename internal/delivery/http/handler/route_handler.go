package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"waste-fleet-monitor/internal/middleware"
	"waste-fleet-monitor/internal/usecase/route"
	"waste-fleet-monitor/pkg/utils"
)

type RouteHandler struct {
	service *route.Service
}

func NewRouteHandler(service *route.Service) *RouteHandler {
	return &RouteHandler{service: service}
}

func (h *RouteHandler) RegisterRoutes(router *gin.RouterGroup) {
	routes := router.Group("/routes")
	{
		routes.POST("", h.CreateRoutes)
		routes.GET("/:id", h.GetRoute)
		routes.POST("/:id/abort", h.AbortRoute)
		routes.POST("/:id/resend", h.ResendRoute)
	}
}

func (h *RouteHandler) CreateRoutes(c *gin.Context) {
	var req route.CreateRoutesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	batch, err := h.service.CreateRoutes(c.Request.Context(), middleware.GetCompanyID(c), &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Routes created successfully", batch)
}

func (h *RouteHandler) GetRoute(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid route ID")
		return
	}

	rt, err := h.service.GetRoute(c.Request.Context(), middleware.GetCompanyID(c), routeID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Route retrieved successfully", rt)
}

func (h *RouteHandler) AbortRoute(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid route ID")
		return
	}

	if err := h.service.AbortRoute(c.Request.Context(), middleware.GetCompanyID(c), routeID); err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Route aborted successfully", nil)
}

func (h *RouteHandler) ResendRoute(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid route ID")
		return
	}

	resp, err := h.service.ResendRoute(c.Request.Context(), middleware.GetCompanyID(c), routeID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Route resent", resp)
}
