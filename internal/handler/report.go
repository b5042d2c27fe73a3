package handler

import (
	"net/http"

	"github.com/segyhp/microcredit-engine/internal/service"
	"github.com/segyhp/microcredit-engine/pkg/response"
)

type ReportHandler struct {
	service *service.ReportService
}

func NewReportHandler(service *service.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Portfolio handles GET /reports/portfolio
func (h *ReportHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Portfolio(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, report)
}
