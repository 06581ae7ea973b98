package handler

import (
	"github.com/clinicpos/diagnostics-api/internal/application/service"
	"github.com/clinicpos/diagnostics-api/internal/domain/enum"
	"github.com/clinicpos/diagnostics-api/internal/domain/repository"
	"github.com/clinicpos/diagnostics-api/internal/presentation/http/dto/request"
	"github.com/clinicpos/diagnostics-api/internal/presentation/http/dto/response"
	"github.com/clinicpos/diagnostics-api/pkg/pagination"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReconciliationHandler handles the end-of-day cash count and its corrections
type ReconciliationHandler struct {
	reconciliationService *service.ReconciliationService
	calendar              *service.Calendar
}

// NewReconciliationHandler creates a new reconciliation handler
func NewReconciliationHandler(reconciliationService *service.ReconciliationService, calendar *service.Calendar) *ReconciliationHandler {
	return &ReconciliationHandler{reconciliationService: reconciliationService, calendar: calendar}
}

// Preview returns today's expected cash
func (h *ReconciliationHandler) Preview(c *gin.Context) {
	p, err := h.reconciliationService.PreviewToday(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Reconciliation preview", response.PreviewResponse{
		Date:              p.Date.Format("2006-01-02"),
		ExpectedCash:      response.Money(p.ExpectedCash),
		TransactionCount:  p.TransactionCount,
		AlreadyReconciled: p.AlreadyReconciled,
	})
}

// Submit records today's counted cash
func (h *ReconciliationHandler) Submit(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}

	var req request.SubmitReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	rec, err := h.reconciliationService.Submit(c.Request.Context(), &service.SubmitInput{
		ActualCash: *req.ActualCash,
		Notes:      req.Notes,
		ActorID:    actorID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Cash reconciliation submitted", response.NewReconciliationResponse(rec))
}

// RequestCorrection asks an admin to reopen a submitted reconciliation
func (h *ReconciliationHandler) RequestCorrection(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}

	var req request.RequestCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	rec, err := h.reconciliationService.RequestCorrection(c.Request.Context(), &service.RequestCorrectionInput{
		ReconciliationID: uuid.MustParse(req.ReconciliationID),
		Reason:           req.Reason,
		ActorID:          actorID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Correction requested", response.NewReconciliationResponse(rec))
}

// ApproveCorrection approves a requested correction, reopening the date
func (h *ReconciliationHandler) ApproveCorrection(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}

	var req request.ApproveCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	rec, err := h.reconciliationService.ApproveCorrection(c.Request.Context(), &service.ApproveCorrectionInput{
		ReconciliationID: uuid.MustParse(req.ReconciliationID),
		ActorID:          actorID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Correction approved", response.NewReconciliationResponse(rec))
}

// List returns reconciliation history, newest first
func (h *ReconciliationHandler) List(c *gin.Context) {
	var req request.ReconciliationFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	params := &repository.ReconciliationFilterParams{
		Pagination: &pagination.PaginationParams{
			Page:    req.Page,
			PerPage: req.PerPage,
		},
	}
	if req.StartDate != "" {
		day, err := h.calendar.ParseDay(req.StartDate)
		if err != nil {
			response.BadRequest(c, "Invalid start_date")
			return
		}
		params.StartDate = &day
	}
	if req.EndDate != "" {
		day, err := h.calendar.ParseDay(req.EndDate)
		if err != nil {
			response.BadRequest(c, "Invalid end_date")
			return
		}
		params.EndDate = &day
	}
	if req.State != "" {
		state := enum.ReconciliationState(req.State)
		params.State = &state
	}

	result, err := h.reconciliationService.ListReconciliations(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	page := pagination.NewPaginatedResult(response.NewReconciliationListResponse(result.Items), result.Pagination)
	response.SuccessWithPagination(c, 200, "Reconciliations retrieved successfully", page)
}

// Get returns one reconciliation record
func (h *ReconciliationHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	rec, err := h.reconciliationService.GetReconciliation(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Reconciliation retrieved successfully", response.NewReconciliationResponse(rec))
}
