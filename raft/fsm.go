package raft

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/devadigapratham/filavault/api/models"
	"github.com/devadigapratham/filavault/importer"
	"github.com/devadigapratham/filavault/preset"
	"github.com/hashicorp/raft"
)

// ErrNotFound is returned when a command references an unknown id
var ErrNotFound = errors.New("not found")

// ApplyResult is returned by commands that report how much they changed
type ApplyResult struct {
	Updated int `json:"updated"`
}

// FSM implements the raft.FSM interface for the filament inventory
type FSM struct {
	mu sync.RWMutex

	// presets and filaments keep insertion order: preset lookup is first-match
	// and the inventory is listed the way the user entered it
	presets   []models.Preset
	filaments []models.Filament
	printers  map[string]*models.Printer
	printJobs map[string]*models.PrintJob
}

// NewFSM creates a new Finite State Machine for the Raft cluster
func NewFSM() *FSM {
	return &FSM{
		presets:   []models.Preset{},
		filaments: []models.Filament{},
		printers:  make(map[string]*models.Printer),
		printJobs: make(map[string]*models.PrintJob),
	}
}

// Apply applies a Raft log entry to the FSM
func (f *FSM) Apply(log *raft.Log) interface{} {
	cmd, err := models.UnmarshalCommand(log.Data)
	if err != nil {
		return fmt.Errorf("failed to unmarshal command: %w", err)
	}

	res, err := f.ApplyCommand(cmd)
	if err != nil {
		return err
	}
	return res
}

// ApplyCommand applies a decoded command. It is the deterministic core of
// Apply and is safe to call directly on a standalone FSM.
func (f *FSM) ApplyCommand(cmd *models.Command) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch cmd.Type {
	case models.UpsertPreset:
		if cmd.Preset == nil {
			return nil, fmt.Errorf("preset is nil")
		}
		f.presets = preset.Upsert(f.presets, *cmd.Preset)
		return nil, nil

	case models.ImportPresets:
		f.presets = importer.ImportInto(f.presets, cmd.Presets)
		return ApplyResult{Updated: len(cmd.Presets)}, nil

	case models.DeletePreset:
		presets, removed := preset.Delete(f.presets, cmd.ID)
		if !removed {
			return nil, fmt.Errorf("preset %s: %w", cmd.ID, ErrNotFound)
		}
		f.presets = presets
		return nil, nil

	case models.ApplyPreset:
		if cmd.Preset == nil {
			return nil, fmt.Errorf("preset is nil")
		}
		at, err := models.ParseTimestamp(cmd.At)
		if err != nil {
			return nil, fmt.Errorf("invalid apply timestamp %q: %w", cmd.At, err)
		}
		filaments, updated := preset.ApplyToInventory(*cmd.Preset, f.filaments, at)
		f.filaments = filaments
		return ApplyResult{Updated: updated}, nil

	case models.SaveFilament:
		if cmd.Filament == nil {
			return nil, fmt.Errorf("filament is nil")
		}
		f.saveFilament(cmd.Filament.Clone())
		return nil, nil

	case models.DeleteFilament:
		idx := f.filamentIndex(cmd.ID)
		if idx < 0 {
			return nil, fmt.Errorf("filament %s: %w", cmd.ID, ErrNotFound)
		}
		f.filaments = append(f.filaments[:idx:idx], f.filaments[idx+1:]...)
		return nil, nil

	case models.AddPrinter:
		if cmd.Printer == nil {
			return nil, fmt.Errorf("printer is nil")
		}
		printer := *cmd.Printer
		f.printers[printer.ID] = &printer
		return nil, nil

	case models.AddPrintJob:
		return nil, f.addPrintJob(cmd.PrintJob)

	case models.UpdatePrintJob:
		return nil, f.updatePrintJob(cmd)

	default:
		return nil, fmt.Errorf("unknown command type: %s", cmd.Type)
	}
}

func (f *FSM) filamentIndex(id string) int {
	for i := range f.filaments {
		if f.filaments[i].ID == id {
			return i
		}
	}
	return -1
}

// saveFilament replaces the spool with the same id or appends it. The slice is
// rebuilt so readers holding the previous slice never observe the change.
func (f *FSM) saveFilament(fil models.Filament) {
	out := make([]models.Filament, len(f.filaments), len(f.filaments)+1)
	copy(out, f.filaments)
	if idx := f.filamentIndex(fil.ID); idx >= 0 {
		out[idx] = fil
	} else {
		out = append(out, fil)
	}
	f.filaments = out
}

func (f *FSM) addPrintJob(job *models.PrintJob) error {
	if job == nil {
		return fmt.Errorf("print job is nil")
	}

	// Validate printer and filament exist
	if _, ok := f.printers[job.PrinterID]; !ok {
		return fmt.Errorf("printer with ID %s does not exist", job.PrinterID)
	}
	idx := f.filamentIndex(job.FilamentID)
	if idx < 0 {
		return fmt.Errorf("filament with ID %s does not exist", job.FilamentID)
	}

	// Weight already promised to queued and running jobs is not available
	available := f.filaments[idx].Remaining
	for _, other := range f.printJobs {
		if other.FilamentID == job.FilamentID && (other.Status == models.JobQueued || other.Status == models.JobRunning) {
			available -= other.PrintWeightInGrams
		}
	}
	if job.PrintWeightInGrams > available {
		return fmt.Errorf("not enough filament remaining. Available: %.1f g, Required: %.1f g",
			available, job.PrintWeightInGrams)
	}

	stored := *job
	stored.Status = models.JobQueued
	f.printJobs[stored.ID] = &stored
	return nil
}

func (f *FSM) updatePrintJob(cmd *models.Command) error {
	job, ok := f.printJobs[cmd.JobID]
	if !ok {
		return fmt.Errorf("print job with ID %s does not exist", cmd.JobID)
	}

	if err := models.ValidateStatusChange(job.Status, cmd.NewStatus); err != nil {
		return err
	}

	if job.Status == models.JobRunning && cmd.NewStatus == models.JobDone {
		idx := f.filamentIndex(job.FilamentID)
		if idx < 0 {
			return fmt.Errorf("filament with ID %s does not exist", job.FilamentID)
		}
		spool := f.filaments[idx].Clone()
		spool.Remaining -= job.PrintWeightInGrams
		if spool.Remaining < 0 {
			spool.Remaining = 0
		}
		spool.History = append(spool.History, models.PrintHistory{
			ID:        job.ID,
			Name:      job.Name,
			Weight:    job.PrintWeightInGrams,
			Link:      job.Link,
			PrintTime: job.PrintTimeHours,
			Date:      cmd.At,
		})
		spool.UpdatedAt = cmd.At
		f.saveFilament(spool)
		job.FinishedAt = cmd.At
	}

	job.Status = cmd.NewStatus
	return nil
}

// Snapshot returns a snapshot of the FSM state
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return &fsmSnapshot{state: f.stateLocked()}, nil
}

// Restore restores the FSM from a snapshot
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var st state
	if err := json.NewDecoder(rc).Decode(&st); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.presets = st.Presets
	f.filaments = st.Filaments
	f.printers = make(map[string]*models.Printer, len(st.Printers))
	for i := range st.Printers {
		f.printers[st.Printers[i].ID] = &st.Printers[i]
	}
	f.printJobs = make(map[string]*models.PrintJob, len(st.PrintJobs))
	for i := range st.PrintJobs {
		f.printJobs[st.PrintJobs[i].ID] = &st.PrintJobs[i]
	}
	if f.presets == nil {
		f.presets = []models.Preset{}
	}
	if f.filaments == nil {
		f.filaments = []models.Filament{}
	}
	return nil
}

// GetPresets returns the user preset library in insertion order
func (f *FSM) GetPresets() []models.Preset {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return append([]models.Preset{}, f.presets...)
}

// GetFilaments returns all spools in insertion order
func (f *FSM) GetFilaments() []models.Filament {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]models.Filament, len(f.filaments))
	for i, fil := range f.filaments {
		out[i] = fil.Clone()
	}
	return out
}

// GetFilament returns a spool by ID
func (f *FSM) GetFilament(id string) (models.Filament, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	idx := f.filamentIndex(id)
	if idx < 0 {
		return models.Filament{}, false
	}
	return f.filaments[idx].Clone(), true
}

// GetPrinters returns all printers
func (f *FSM) GetPrinters() []models.Printer {
	f.mu.RLock()
	defer f.mu.RUnlock()

	printers := make([]models.Printer, 0, len(f.printers))
	for _, printer := range f.printers {
		printers = append(printers, *printer)
	}
	return printers
}

// GetPrintJobs returns all print jobs
func (f *FSM) GetPrintJobs() []models.PrintJob {
	f.mu.RLock()
	defer f.mu.RUnlock()

	printJobs := make([]models.PrintJob, 0, len(f.printJobs))
	for _, job := range f.printJobs {
		printJobs = append(printJobs, *job)
	}
	return printJobs
}

// GetPrintJobsByStatus returns print jobs filtered by status
func (f *FSM) GetPrintJobsByStatus(status string) []models.PrintJob {
	f.mu.RLock()
	defer f.mu.RUnlock()

	jobs := []models.PrintJob{}
	for _, job := range f.printJobs {
		if job.Status == status {
			jobs = append(jobs, *job)
		}
	}
	return jobs
}

// GetPrintJob returns a print job by ID
func (f *FSM) GetPrintJob(id string) (models.PrintJob, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	job, ok := f.printJobs[id]
	if !ok {
		return models.PrintJob{}, false
	}
	return *job, true
}

// state is the serialized form of the FSM
type state struct {
	Presets   []models.Preset   `json:"presets"`
	Filaments []models.Filament `json:"filaments"`
	Printers  []models.Printer  `json:"printers"`
	PrintJobs []models.PrintJob `json:"print_jobs"`
}

func (f *FSM) stateLocked() state {
	st := state{
		Presets:   append([]models.Preset{}, f.presets...),
		Filaments: make([]models.Filament, len(f.filaments)),
		Printers:  make([]models.Printer, 0, len(f.printers)),
		PrintJobs: make([]models.PrintJob, 0, len(f.printJobs)),
	}
	for i, fil := range f.filaments {
		st.Filaments[i] = fil.Clone()
	}
	for _, p := range f.printers {
		st.Printers = append(st.Printers, *p)
	}
	for _, j := range f.printJobs {
		st.PrintJobs = append(st.PrintJobs, *j)
	}
	return st
}

// fsmSnapshot implements the raft.FSMSnapshot interface
type fsmSnapshot struct {
	state state
}

// Persist saves the snapshot to the provided sink
func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		// Encode the snapshot
		if err := json.NewEncoder(sink).Encode(s.state); err != nil {
			return err
		}
		return sink.Close()
	}()

	if err != nil {
		sink.Cancel()
		return err
	}

	return nil
}

// Release is a no-op
func (s *fsmSnapshot) Release() {}
