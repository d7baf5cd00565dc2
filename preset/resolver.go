package preset

import (
	"time"

	"github.com/devadigapratham/filavault/api/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// fold lower-cases s for identity comparison. A Caser keeps state, so a new one
// is built per call to keep this package safe for concurrent use.
func fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

func sameIdentity(brandA, typeA, brandB, typeB string) bool {
	return fold(brandA) == fold(brandB) && fold(typeA) == fold(typeB)
}

// Matches reports whether p describes the given brand and type. Comparison is
// exact after case folding; there is no partial or fuzzy matching.
func Matches(p models.Preset, brand, typ string) bool {
	return sameIdentity(p.Brand, p.Type, brand, typ)
}

// FindExact returns a copy of the first preset in library matching brand and
// type, or nil. Library order decides between duplicates.
func FindExact(library []models.Preset, brand, typ string) *models.Preset {
	for _, p := range library {
		if Matches(p, brand, typ) {
			found := p
			return &found
		}
	}
	return nil
}

// FindByID returns a copy of the preset with the given id, or nil.
func FindByID(library []models.Preset, id string) *models.Preset {
	for _, p := range library {
		if p.ID == id {
			found := p
			return &found
		}
	}
	return nil
}

// Upsert returns a new library in which p replaces the first entry with the
// same brand and type, or is appended when there is none. The replaced entry's
// id is discarded.
func Upsert(library []models.Preset, p models.Preset) []models.Preset {
	out := make([]models.Preset, len(library), len(library)+1)
	copy(out, library)

	for i := range out {
		if sameIdentity(out[i].Brand, out[i].Type, p.Brand, p.Type) {
			out[i] = p
			return out
		}
	}
	return append(out, p)
}

// Delete returns a new library without the preset with the given id and
// reports whether one was removed.
func Delete(library []models.Preset, id string) ([]models.Preset, bool) {
	out := make([]models.Preset, 0, len(library))
	removed := false
	for _, p := range library {
		if p.ID == id {
			removed = true
			continue
		}
		out = append(out, p)
	}
	return out, removed
}

// CountMatches returns how many spools ApplyToInventory would update.
func CountMatches(p models.Preset, inventory []models.Filament) int {
	n := 0
	for _, f := range inventory {
		if sameIdentity(f.Brand, f.Type, p.Brand, p.Type) {
			n++
		}
	}
	return n
}

// ApplyToInventory returns a new inventory in which every spool matching the
// preset's brand and type carries the preset's print parameters, together with
// the number of spools updated. Only temperatures, flow ratio, pressure advance,
// max volumetric speed, default plate and the whole bed table are overwritten;
// UpdatedAt is set to now. Zero matches is not an error.
func ApplyToInventory(p models.Preset, inventory []models.Filament, now time.Time) ([]models.Filament, int) {
	if inventory == nil {
		return nil, 0
	}

	stamp := models.Timestamp(now)
	out := make([]models.Filament, len(inventory))
	updated := 0

	for i, f := range inventory {
		f = f.Clone()
		if sameIdentity(f.Brand, f.Type, p.Brand, p.Type) {
			f.TempMin = p.TempMin
			f.TempMax = p.TempMax
			f.FlowRatio = p.FlowRatio
			f.PressureAdvance = p.PressureAdvance
			f.MaxVolumetricSpeed = p.MaxVolumetricSpeed
			f.DefaultPlate = p.DefaultPlate
			f.BedSettings = p.BedSettings
			f.UpdatedAt = stamp
			updated++
		}
		out[i] = f
	}
	return out, updated
}
