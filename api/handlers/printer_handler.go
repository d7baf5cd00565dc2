package handlers

import (
	"net/http"
	"strings"

	"github.com/devadigapratham/filavault/api/models"
	"github.com/gin-gonic/gin"
)

// CreatePrinter registers a printer
func (h *Handler) CreatePrinter(c *gin.Context) {
	var printer models.Printer
	if err := c.ShouldBindJSON(&printer); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !models.IsValidPrinterType(printer.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid printer type"})
		return
	}
	printer.Type = strings.ToUpper(printer.Type)

	if printer.Status == "" {
		printer.Status = "idle"
	}
	if !models.IsValidPrinterStatus(printer.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid printer status"})
		return
	}

	// Generate an ID if not provided
	if printer.ID == "" {
		printer.ID = h.NewID()
	}

	if _, ok := h.apply(c, &models.Command{Type: models.AddPrinter, Printer: &printer}, http.StatusInternalServerError); !ok {
		return
	}
	c.JSON(http.StatusCreated, printer)
}

// GetPrinters returns all printers
func (h *Handler) GetPrinters(c *gin.Context) {
	c.JSON(http.StatusOK, h.Node.GetFSM().GetPrinters())
}
