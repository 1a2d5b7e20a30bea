package handlers

import (
	"net/http"

	"dreamweaver_backend/internal/services"
	"dreamweaver_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type InsightHandler struct {
	*BaseHandler
	insightService services.InsightService
}

func NewInsightHandler(base *BaseHandler, insightService services.InsightService) *InsightHandler {
	return &InsightHandler{
		BaseHandler:    base,
		insightService: insightService,
	}
}

func (h *InsightHandler) RegisterRoutes(g RouteGroups) {
	insights := g.AI.Group("/insights")
	{
		insights.POST("/report", h.GenerateReport)
		insights.GET("/trends", h.GlobalTrends)
		insights.POST("/community", h.CommunityInsights)
	}
}

// GenerateReport - отчет по снам за период (Pro)
func (h *InsightHandler) GenerateReport(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.ReportRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	report, err := h.insightService.GenerateReport(c.Request.Context(), userID, req.Period)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *InsightHandler) GlobalTrends(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	trends, err := h.insightService.GlobalTrends(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, trends)
}

func (h *InsightHandler) CommunityInsights(c *gin.Context) {
	if _, ok := h.GetAndAuthorizeUserID(c); !ok {
		return
	}

	var req dto.CommunityQueryRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	insight, err := h.insightService.CommunityInsights(c.Request.Context(), req.Query, *req.Lat, *req.Lng)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, insight)
}
