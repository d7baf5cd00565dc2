package models

import (
	"encoding/json"
	"errors"
	"strings"
)

// CommandType represents the type of command to be executed
type CommandType string

const (
	UpsertPreset   CommandType = "UPSERT_PRESET"
	ImportPresets  CommandType = "IMPORT_PRESETS"
	DeletePreset   CommandType = "DELETE_PRESET"
	ApplyPreset    CommandType = "APPLY_PRESET"
	SaveFilament   CommandType = "SAVE_FILAMENT"
	DeleteFilament CommandType = "DELETE_FILAMENT"
	AddPrinter     CommandType = "ADD_PRINTER"
	AddPrintJob    CommandType = "ADD_PRINT_JOB"
	UpdatePrintJob CommandType = "UPDATE_PRINT_JOB"
)

// Command represents a command to be applied to the FSM. Everything that is not
// deterministic (ids, timestamps) is resolved before the command is proposed so
// that every replica applies it identically.
type Command struct {
	Type      CommandType `json:"type"`
	Preset    *Preset     `json:"preset,omitempty"`
	Presets   []Preset    `json:"presets,omitempty"`
	Filament  *Filament   `json:"filament,omitempty"`
	Printer   *Printer    `json:"printer,omitempty"`
	PrintJob  *PrintJob   `json:"print_job,omitempty"`
	ID        string      `json:"id,omitempty"`
	JobID     string      `json:"job_id,omitempty"`
	NewStatus string      `json:"new_status,omitempty"`
	At        string      `json:"at,omitempty"`
}

// Marshal serializes a command to JSON
func (c *Command) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// UnmarshalCommand deserializes a command from JSON
func UnmarshalCommand(data []byte) (*Command, error) {
	var c Command
	err := json.Unmarshal(data, &c)
	return &c, err
}

// Print job statuses
const (
	JobQueued   = "Queued"
	JobRunning  = "Running"
	JobDone     = "Done"
	JobCanceled = "Canceled"
)

// ValidateStatusChange checks if a status transition is valid
func ValidateStatusChange(currentStatus, newStatus string) error {
	switch currentStatus {
	case JobQueued:
		if newStatus != JobRunning && newStatus != JobCanceled {
			return errors.New("a job can only transition from Queued to Running or Canceled")
		}
	case JobRunning:
		if newStatus != JobDone && newStatus != JobCanceled {
			return errors.New("a job can only transition from Running to Done or Canceled")
		}
	default:
		return errors.New("invalid status transition")
	}
	return nil
}

// IsValidPrinterType checks if a printer type is valid
func IsValidPrinterType(printerType string) bool {
	switch strings.ToUpper(printerType) {
	case "FDM", "SLA":
		return true
	}
	return false
}

// IsValidPrinterStatus checks if a printer status is valid
func IsValidPrinterStatus(status string) bool {
	switch status {
	case "idle", "printing", "maintenance", "offline":
		return true
	}
	return false
}

// IsValidPrintJobStatus checks if a print job status is valid
func IsValidPrintJobStatus(status string) bool {
	validStatuses := []string{JobQueued, JobRunning, JobDone, JobCanceled}

	for _, vs := range validStatuses {
		if status == vs {
			return true
		}
	}
	return false
}
