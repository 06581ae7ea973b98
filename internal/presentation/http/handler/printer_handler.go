package handler

import (
	"github.com/clinicpos/diagnostics-api/internal/application/service"
	"github.com/clinicpos/diagnostics-api/internal/presentation/http/dto/request"
	"github.com/clinicpos/diagnostics-api/internal/presentation/http/dto/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PrinterHandler handles printer-related HTTP requests.
type PrinterHandler struct {
	printerService *service.PrinterService
}

// NewPrinterHandler creates a new printer handler.
func NewPrinterHandler(printerService *service.PrinterService) *PrinterHandler {
	return &PrinterHandler{printerService: printerService}
}

// GetStatus returns the current printer connection status.
func (h *PrinterHandler) GetStatus(c *gin.Context) {
	response.OK(c, "Printer status retrieved", h.printerService.GetStatus())
}

// TestPrint sends a test page to the printer.
func (h *PrinterHandler) TestPrint(c *gin.Context) {
	h.respond(c, h.printerService.TestPrint(), "Test page sent to printer")
}

// PrintReceipt prints the receipt of a transaction. A printer failure still
// returns the receipt so the counter can hand-write or reprint it.
func (h *PrinterHandler) PrintReceipt(c *gin.Context) {
	var req request.PrintReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.printerService.PrintTransactionReceipt(c.Request.Context(), uuid.MustParse(req.TransactionID))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.respond(c, result, "Receipt printed successfully")
}

func (h *PrinterHandler) respond(c *gin.Context, result *service.PrintResult, okMessage string) {
	data := gin.H{
		"receipt": response.NewReceiptResponse(result.Receipt),
		"printed": result.Printed,
	}
	switch {
	case result.Warning != "":
		data["warning"] = result.Warning
		response.OK(c, "Receipt generated but printing failed", data)
	case !result.Printed:
		response.OK(c, "Receipt generated (printer disabled)", data)
	default:
		response.OK(c, okMessage, data)
	}
}
