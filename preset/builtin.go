package preset

import (
	"time"

	"github.com/devadigapratham/filavault/api/models"
)

const builtinCreatedAt = "2026-01-01T00:00:00.000Z"

// withPlates overrides selected plates of the default bed table.
func withPlates(overrides map[models.PlateType]models.BedTemperature) models.BedSettings {
	b := models.DefaultBedSettings()
	for plate, t := range overrides {
		b.Set(plate, t)
	}
	return b
}

func builtinPresets() []models.Preset {
	return []models.Preset{
		{
			ID: "builtin-bambu-pla-basic", Brand: "Bambu Lab", Type: "PLA Basic",
			TempMin: 190, TempMax: 220, FlowRatio: 0.98, PressureAdvance: 0.02, MaxVolumetricSpeed: 21,
			DefaultPlate: models.PlateTextured,
			BedSettings:  withPlates(map[models.PlateType]models.BedTemperature{
				models.PlateTextured: {Initial: 65, Other: 60},
				models.PlateCool:     {Initial: 35, Other: 30},
			}),
		},
		{
			ID: "builtin-bambu-pla-matte", Brand: "Bambu Lab", Type: "PLA Matte",
			TempMin: 190, TempMax: 220, FlowRatio: 0.98, PressureAdvance: 0.02, MaxVolumetricSpeed: 21,
			DefaultPlate: models.PlateTextured,
			BedSettings:  withPlates(map[models.PlateType]models.BedTemperature{
				models.PlateTextured: {Initial: 65, Other: 60},
			}),
		},
		{
			ID: "builtin-bambu-petg-basic", Brand: "Bambu Lab", Type: "PETG Basic",
			TempMin: 230, TempMax: 260, FlowRatio: 0.98, PressureAdvance: 0.02, MaxVolumetricSpeed: 12,
			DefaultPlate: models.PlateTextured,
			BedSettings:  withPlates(map[models.PlateType]models.BedTemperature{
				models.PlateTextured:       {Initial: 80, Other: 75},
				models.PlateSmoothHighTemp: {Initial: 90, Other: 85},
			}),
		},
		{
			ID: "builtin-bambu-abs", Brand: "Bambu Lab", Type: "ABS",
			TempMin: 240, TempMax: 270, FlowRatio: 0.98, PressureAdvance: 0.04, MaxVolumetricSpeed: 12,
			DefaultPlate: models.PlateEngineering,
			BedSettings:  withPlates(map[models.PlateType]models.BedTemperature{
				models.PlateEngineering: {Initial: 105, Other: 100},
			}),
		},
		{
			ID: "builtin-esun-pla-plus", Brand: "eSUN", Type: "PLA+",
			TempMin: 205, TempMax: 230, FlowRatio: 0.98, PressureAdvance: 0.025, MaxVolumetricSpeed: 18,
			DefaultPlate: models.PlateTextured,
			BedSettings:  withPlates(map[models.PlateType]models.BedTemperature{
				models.PlateTextured: {Initial: 65, Other: 60},
			}),
		},
		{
			ID: "builtin-polymaker-petg", Brand: "Polymaker", Type: "PETG Basic",
			TempMin: 230, TempMax: 250, FlowRatio: 0.96, PressureAdvance: 0.03, MaxVolumetricSpeed: 10,
			DefaultPlate: models.PlateTextured,
			BedSettings:  withPlates(map[models.PlateType]models.BedTemperature{
				models.PlateTextured: {Initial: 75, Other: 70},
			}),
		},
	}
}

var builtinTable = func() []models.Preset {
	table := builtinPresets()
	for i := range table {
		table[i].Source = models.SourceBuiltin
		table[i].CreatedAt = builtinCreatedAt
	}
	return table
}()

// Builtin returns the presets shipped with the application.
func Builtin() []models.Preset {
	return append([]models.Preset(nil), builtinTable...)
}

// IsBuiltin reports whether id names a builtin preset.
func IsBuiltin(id string) bool {
	return FindByID(builtinTable, id) != nil
}

// Library returns the lookup order used when editing a spool: user presets
// first, so they shadow builtins with the same brand and type.
func Library(user []models.Preset) []models.Preset {
	out := make([]models.Preset, 0, len(user)+len(builtinTable))
	out = append(out, user...)
	return append(out, builtinTable...)
}

// Fork copies a preset into a new user preset. Builtins cannot be edited in
// place; editing one saves a copy whose brand is marked as such.
func Fork(p models.Preset, id string, now time.Time) models.Preset {
	p.ID = id
	p.Brand += " (Copy)"
	p.Source = models.SourceUser
	p.CreatedAt = models.Timestamp(now)
	return p
}

// FromFilament captures a spool's print parameters as a user preset.
func FromFilament(f models.Filament, id string, now time.Time) models.Preset {
	return models.Preset{
		ID:                 id,
		Brand:              f.Brand,
		Type:               f.Type,
		TempMin:            f.TempMin,
		TempMax:            f.TempMax,
		FlowRatio:          f.FlowRatio,
		PressureAdvance:    f.PressureAdvance,
		MaxVolumetricSpeed: f.MaxVolumetricSpeed,
		DefaultPlate:       f.DefaultPlate,
		BedSettings:        f.BedSettings,
		Source:             models.SourceUser,
		CreatedAt:          models.Timestamp(now),
	}
}
