package handlers

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/devadigapratham/filavault/api/models"
	"github.com/devadigapratham/filavault/export"
	"github.com/devadigapratham/filavault/preset"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CreateFilament adds a spool to the inventory
func (h *Handler) CreateFilament(c *gin.Context) {
	var filament models.Filament
	if err := c.ShouldBindJSON(&filament); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(filament.Brand) == "" || strings.TrimSpace(filament.Type) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "brand and type are required"})
		return
	}

	// Generate an ID if not provided
	if filament.ID == "" {
		filament.ID = h.NewID()
	}
	if _, exists := h.Node.GetFSM().GetFilament(filament.ID); exists {
		c.JSON(http.StatusConflict, gin.H{"error": "filament already exists"})
		return
	}

	// A new spool starts full unless told otherwise
	if filament.Remaining == 0 {
		filament.Remaining = filament.Weight
	}
	filament.CreatedAt = h.timestamp()
	filament.UpdatedAt = ""
	filament.Sanitize()

	if _, ok := h.apply(c, &models.Command{Type: models.SaveFilament, Filament: &filament}, http.StatusInternalServerError); !ok {
		return
	}
	c.JSON(http.StatusCreated, filament)
}

// GetFilaments returns all filaments
func (h *Handler) GetFilaments(c *gin.Context) {
	c.JSON(http.StatusOK, h.Node.GetFSM().GetFilaments())
}

// UpdateFilament replaces a spool, keeping its id, creation time and print history
func (h *Handler) UpdateFilament(c *gin.Context) {
	id := c.Param("id")
	current, exists := h.Node.GetFSM().GetFilament(id)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "filament not found"})
		return
	}

	var filament models.Filament
	if err := c.ShouldBindJSON(&filament); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(filament.Brand) == "" || strings.TrimSpace(filament.Type) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "brand and type are required"})
		return
	}

	filament.ID = id
	filament.CreatedAt = current.CreatedAt
	if filament.History == nil {
		filament.History = current.History
	}
	filament.UpdatedAt = h.timestamp()
	filament.Sanitize()

	if _, ok := h.apply(c, &models.Command{Type: models.SaveFilament, Filament: &filament}, http.StatusInternalServerError); !ok {
		return
	}
	c.JSON(http.StatusOK, filament)
}

// DeleteFilament removes a spool
func (h *Handler) DeleteFilament(c *gin.Context) {
	if _, ok := h.apply(c, &models.Command{Type: models.DeleteFilament, ID: c.Param("id")}, http.StatusInternalServerError); !ok {
		return
	}
	c.Status(http.StatusNoContent)
}

// SaveFilamentAsPreset stores a spool's print settings as a user preset
func (h *Handler) SaveFilamentAsPreset(c *gin.Context) {
	filament, exists := h.Node.GetFSM().GetFilament(c.Param("id"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "filament not found"})
		return
	}

	p := preset.FromFilament(filament, h.NewID(), h.Now())
	if _, ok := h.apply(c, &models.Command{Type: models.UpsertPreset, Preset: &p}, http.StatusInternalServerError); !ok {
		return
	}
	c.JSON(http.StatusCreated, p)
}

// ExportFilaments streams the inventory as an XLSX workbook
func (h *Handler) ExportFilaments(c *gin.Context) {
	var buf bytes.Buffer
	if err := export.WriteInventory(&buf, h.Node.GetFSM().GetFilaments()); err != nil {
		h.Logger.Error("inventory export failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="filaments.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
