package importer

import (
	"errors"

	"github.com/devadigapratham/filavault/api/models"
	"github.com/devadigapratham/filavault/preset"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Skip records an entry that produced no preset
type Skip struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Result is the outcome of one batch import
type Result struct {
	Presets []models.Preset `json:"presets"`
	Skipped []Skip          `json:"skipped"`
}

// Importer normalizes extracted entries into presets.
type Importer struct {
	Normalizer *preset.Normalizer
	Logger     *zap.Logger
}

// New returns an Importer using the given normalizer.
func New(n *preset.Normalizer, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{Normalizer: n, Logger: logger}
}

// Import normalizes every entry. Vendor profiles go through the normalizer;
// entries that are not vendor profiles but already carry a brand and type are
// taken as canonical presets. Anything else is skipped without failing the
// batch.
func (im *Importer) Import(entries []Entry) Result {
	res := Result{Presets: []models.Preset{}, Skipped: []Skip{}}

	for _, e := range entries {
		if p := im.Normalizer.Normalize(e.Raw); p != nil {
			res.Presets = append(res.Presets, *p)
			continue
		}

		reason := im.Normalizer.Explain(e.Raw)
		if errors.Is(reason, preset.ErrNotAProfile) {
			if p, ok := im.canonical(e.Raw); ok {
				res.Presets = append(res.Presets, p)
				continue
			}
		}

		im.Logger.Debug("skipping import entry",
			zap.String("entry", e.Name),
			zap.Error(reason))
		res.Skipped = append(res.Skipped, Skip{Name: e.Name, Reason: reason.Error()})
	}
	return res
}

// canonical accepts a record already in preset shape.
func (im *Importer) canonical(raw preset.RawRecord) (models.Preset, bool) {
	brand, _ := raw["brand"].(string)
	typ, _ := raw["type"].(string)
	if brand == "" || typ == "" {
		return models.Preset{}, false
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return models.Preset{}, false
	}
	var p models.Preset
	if err := json.Unmarshal(data, &p); err != nil {
		return models.Preset{}, false
	}

	// Built-in ids are reserved
	if p.ID == "" || preset.IsBuiltin(p.ID) {
		p.ID = im.Normalizer.NewID()
	}
	if p.CreatedAt == "" {
		p.CreatedAt = models.Timestamp(im.Normalizer.Now())
	}
	if _, err := models.ParsePlateType(string(p.DefaultPlate)); err != nil {
		p.DefaultPlate = models.PlateTextured
	}
	p.Source = models.SourceUser
	return p, true
}

// ImportInto folds presets into library one at a time, so a later preset in
// the same batch replaces an earlier one with the same brand and type.
func ImportInto(library []models.Preset, presets []models.Preset) []models.Preset {
	out := append([]models.Preset{}, library...)
	for _, p := range presets {
		out = preset.Upsert(out, p)
	}
	return out
}
