package models

// Printer represents a 3D printer
type Printer struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Type            string  `json:"type"` // FDM, SLA
	PowerWatts      float64 `json:"power_watts"`
	Status          string  `json:"status"` // idle, printing, maintenance, offline
	LastMaintenance string  `json:"last_maintenance,omitempty"`
}
