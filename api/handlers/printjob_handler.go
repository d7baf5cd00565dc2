package handlers

import (
	"net/http"

	"github.com/devadigapratham/filavault/api/models"
	"github.com/gin-gonic/gin"
)

// CreatePrintJob queues a print on a printer, reserving filament from a spool
func (h *Handler) CreatePrintJob(c *gin.Context) {
	var printJob models.PrintJob
	if err := c.ShouldBindJSON(&printJob); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if printJob.PrintWeightInGrams <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "print_weight_in_grams must be positive"})
		return
	}

	// Generate an ID if not provided
	if printJob.ID == "" {
		printJob.ID = h.NewID()
	}

	// Force status to be "Queued"
	printJob.Status = models.JobQueued
	printJob.FinishedAt = ""

	if _, ok := h.apply(c, &models.Command{Type: models.AddPrintJob, PrintJob: &printJob}, http.StatusBadRequest); !ok {
		return
	}
	c.JSON(http.StatusCreated, printJob)
}

// GetPrintJobs returns all print jobs, optionally filtered by ?status=
func (h *Handler) GetPrintJobs(c *gin.Context) {
	status := c.Query("status")

	var printJobs []models.PrintJob
	if status != "" && models.IsValidPrintJobStatus(status) {
		printJobs = h.Node.GetFSM().GetPrintJobsByStatus(status)
	} else {
		printJobs = h.Node.GetFSM().GetPrintJobs()
	}

	c.JSON(http.StatusOK, printJobs)
}

// UpdatePrintJobStatus moves a job through Queued, Running and Done or Canceled
func (h *Handler) UpdatePrintJobStatus(c *gin.Context) {
	jobID := c.Param("id")
	newStatus := c.Query("status")

	if !models.IsValidPrintJobStatus(newStatus) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	if _, exists := h.Node.GetFSM().GetPrintJob(jobID); !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "print job not found"})
		return
	}

	cmd := &models.Command{
		Type:      models.UpdatePrintJob,
		JobID:     jobID,
		NewStatus: newStatus,
		At:        h.timestamp(),
	}
	if _, ok := h.apply(c, cmd, http.StatusBadRequest); !ok {
		return
	}

	job, _ := h.Node.GetFSM().GetPrintJob(jobID)
	c.JSON(http.StatusOK, job)
}
