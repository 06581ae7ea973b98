package handler

import (
	"github.com/clinicpos/diagnostics-api/internal/application/service"
	"github.com/clinicpos/diagnostics-api/internal/domain/enum"
	"github.com/clinicpos/diagnostics-api/internal/presentation/http/dto/request"
	"github.com/clinicpos/diagnostics-api/internal/presentation/http/dto/response"
	"github.com/gin-gonic/gin"
)

// LabHandler handles result entry and release
type LabHandler struct {
	labService *service.LabService
}

// NewLabHandler creates a new lab handler
func NewLabHandler(labService *service.LabService) *LabHandler {
	return &LabHandler{labService: labService}
}

// UpdateTestResult moves one ordered test forward and returns the parent's
// recomputed lab status
func (h *LabHandler) UpdateTestResult(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}
	txnID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	testID, ok := uuidParam(c, "test_id")
	if !ok {
		return
	}

	var req request.UpdateTestResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	out, err := h.labService.UpdateTestResult(c.Request.Context(), &service.UpdateTestResultInput{
		TransactionID: txnID,
		TestID:        testID,
		Status:        enum.TestStatus(req.Status),
		Result:        req.Result,
		Remarks:       req.Remarks,
		ActorID:       actorID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Test result updated", response.NewLabUpdateResponse(out.Test, out.Transaction))
}

// Release hands completed results over to the patient
func (h *LabHandler) Release(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}
	txnID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	txn, err := h.labService.Release(c.Request.Context(), txnID, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Results released", response.NewTransactionResponse(txn))
}
