package models

// PrintJob represents a 3D printing job
type PrintJob struct {
	ID                 string  `json:"id"`
	PrinterID          string  `json:"printer_id"`
	FilamentID         string  `json:"filament_id"`
	Name               string  `json:"name"`
	Link               string  `json:"link,omitempty"`
	PrintWeightInGrams float64 `json:"print_weight_in_grams"`
	PrintTimeHours     float64 `json:"print_time_hours,omitempty"`
	Status             string  `json:"status"` // Queued, Running, Done, Canceled
	FinishedAt         string  `json:"finished_at,omitempty"`
}
