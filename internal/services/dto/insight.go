package dto

import "dreamweaver_backend/internal/models"

// ReportRequest - окно отчета
type ReportRequest struct {
	Period models.ReportPeriod `json:"period" validate:"required,report-period"`
}

// CommunityQueryRequest - вопрос о снах в регионе
type CommunityQueryRequest struct {
	Query string   `json:"query" validate:"notblank,max=500"`
	Lat   *float64 `json:"lat" validate:"required,latitude"`
	Lng   *float64 `json:"lng" validate:"required,longitude"`
}
