package handler

import (
	"github.com/clinicpos/diagnostics-api/internal/application/service"
	"github.com/clinicpos/diagnostics-api/internal/domain/enum"
	"github.com/clinicpos/diagnostics-api/internal/domain/pricing"
	"github.com/clinicpos/diagnostics-api/internal/domain/repository"
	"github.com/clinicpos/diagnostics-api/internal/presentation/http/dto/request"
	"github.com/clinicpos/diagnostics-api/internal/presentation/http/dto/response"
	"github.com/clinicpos/diagnostics-api/pkg/apperror"
	"github.com/clinicpos/diagnostics-api/pkg/pagination"
	"github.com/gin-gonic/gin"
)

// TransactionHandler handles counter transactions
type TransactionHandler struct {
	transactionService *service.TransactionService
	calendar           *service.Calendar
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(transactionService *service.TransactionService, calendar *service.Calendar) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, calendar: calendar}
}

// Create records a paid (or partly paid) lab order
func (h *TransactionHandler) Create(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}

	var req request.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	input := &service.CreateTransactionInput{
		ActorID:        actorID,
		PatientID:      req.PatientID,
		TestIDs:        req.TestIDs,
		PaymentMethod:  enum.PaymentMethod(req.PaymentMethod),
		AmountTendered: req.AmountTendered,
		Discount:       selection(req.Discount),
		Coverage:       selection(req.Coverage),
		Notes:          req.Notes,
	}

	if p := req.Patient; p != nil {
		draft := &service.PatientDraft{
			FirstName:  p.FirstName,
			MiddleName: p.MiddleName,
			LastName:   p.LastName,
			Gender:     p.Gender,
			Contact:    p.Contact,
			Address:    p.Address,
		}
		if p.BirthDate != "" {
			day, err := h.calendar.ParseDay(p.BirthDate)
			if err != nil {
				response.ValidationError(c, []apperror.FieldError{{Field: "patient.birth_date", Message: "must be a date formatted as 2006-01-02"}})
				return
			}
			draft.BirthDate = &day
		}
		input.Patient = draft
	}

	txn, err := h.transactionService.CreateTransaction(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Transaction created successfully", response.NewTransactionResponse(txn))
}

func selection(r *request.RateSelectionRequest) *pricing.Selection {
	if r == nil {
		return nil
	}
	return &pricing.Selection{ID: r.ID, Name: r.Name, Rate: r.Rate}
}

// List returns a page of transactions filtered by day, statuses or a search term
func (h *TransactionHandler) List(c *gin.Context) {
	var req request.TransactionFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	params := &repository.TransactionFilterParams{
		Pagination: &pagination.PaginationParams{
			Page:    req.Page,
			PerPage: req.PerPage,
		},
		Search: req.Search,
	}
	if req.Date != "" {
		day, err := h.calendar.ParseDay(req.Date)
		if err != nil {
			response.BadRequest(c, "Invalid date")
			return
		}
		params.BusinessDate = &day
	}
	if req.PaymentStatus != "" {
		status := enum.PaymentStatus(req.PaymentStatus)
		params.PaymentStatus = &status
	}
	if req.LabStatus != "" {
		status := enum.LabStatus(req.LabStatus)
		params.LabStatus = &status
	}

	result, err := h.transactionService.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	page := pagination.NewPaginatedResult(response.NewTransactionListResponse(result.Items), result.Pagination)
	response.SuccessWithPagination(c, 200, "Transactions retrieved successfully", page)
}

// Get returns one transaction with its tests
func (h *TransactionHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	txn, err := h.transactionService.GetTransaction(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Transaction retrieved successfully", response.NewTransactionResponse(txn))
}

// Events returns the transaction's event trail, oldest first
func (h *TransactionHandler) Events(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	events, err := h.transactionService.ListEvents(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Transaction events retrieved successfully", events)
}
