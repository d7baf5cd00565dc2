package preset

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/devadigapratham/filavault/api/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func libraryPreset(id, brand, typ string) models.Preset {
	return models.Preset{
		ID:                 id,
		Brand:              brand,
		Type:               typ,
		TempMin:            220,
		TempMax:            240,
		FlowRatio:          0.97,
		PressureAdvance:    0.03,
		MaxVolumetricSpeed: 18,
		DefaultPlate:       models.PlateEngineering,
		BedSettings: models.BedSettings{
			CoolStabilized: models.BedTemperature{Initial: 40, Other: 38},
			Cool:           models.BedTemperature{Initial: 45, Other: 42},
			Engineering:    models.BedTemperature{Initial: 80, Other: 78},
			SmoothHighTemp: models.BedTemperature{Initial: 85, Other: 82},
			Textured:       models.BedTemperature{Initial: 75, Other: 72},
		},
		Source:    models.SourceUser,
		CreatedAt: "2026-02-01T00:00:00.000Z",
	}
}

// fakeSpool generates a spool with random bookkeeping fields for the given
// brand and type.
func fakeSpool(f *gofakeit.Faker, brand, typ string) models.Filament {
	return models.Filament{
		ID:                 f.UUID(),
		Brand:              brand,
		Type:               typ,
		Color:              f.HexColor(),
		ColorName:          f.Color(),
		Weight:             1000,
		Remaining:          f.Float64Range(0, 1000),
		Price:              f.Float64Range(50, 200),
		TempMin:            190,
		TempMax:            210,
		FlowRatio:          0.98,
		MaxVolumetricSpeed: 12,
		PressureAdvance:    0.02,
		BedSettings:        models.DefaultBedSettings(),
		DefaultPlate:       models.PlateTextured,
		Notes:              f.Sentence(6),
		History: []models.PrintHistory{
			{ID: f.UUID(), Name: f.Word(), Weight: f.Float64Range(1, 100), Date: "2026-01-05T10:00:00.000Z"},
		},
		CreatedAt: "2026-01-01T00:00:00.000Z",
	}
}

func TestFindExact_CaseInsensitive(t *testing.T) {
	lib := []models.Preset{
		libraryPreset("a", "Polymaker", "PETG Basic"),
		libraryPreset("b", "Bambu Lab", "PLA Basic"),
	}

	found := FindExact(lib, "bambu lab", "pla basic")
	require.NotNil(t, found)
	assert.Equal(t, "b", found.ID)

	assert.Nil(t, FindExact(lib, "bambu", "pla"))
	assert.Nil(t, FindExact(lib, "Bambu Lab", "PETG Basic"))
	assert.Nil(t, FindExact(nil, "Bambu Lab", "PLA Basic"))
}

func TestFindExact_UnicodeFolding(t *testing.T) {
	lib := []models.Preset{libraryPreset("a", "ÉSUN", "PLA+")}

	found := FindExact(lib, "ésun", "pla+")
	require.NotNil(t, found)
	assert.Equal(t, "a", found.ID)
}

func TestFindExact_FirstDuplicateWins(t *testing.T) {
	lib := []models.Preset{
		libraryPreset("first", "Acme", "PLA"),
		libraryPreset("second", "ACME", "pla"),
	}

	found := FindExact(lib, "acme", "PLA")
	require.NotNil(t, found)
	assert.Equal(t, "first", found.ID)
}

func TestFindExact_ReturnsCopy(t *testing.T) {
	lib := []models.Preset{libraryPreset("a", "Acme", "PLA")}

	found := FindExact(lib, "Acme", "PLA")
	require.NotNil(t, found)
	found.TempMin = 1

	assert.Equal(t, 220, lib[0].TempMin)
}

func TestUpsert_ReplacesByIdentityNotID(t *testing.T) {
	lib := []models.Preset{libraryPreset("A", "X", "Y")}
	incoming := libraryPreset("B", "x", "y")
	incoming.TempMin = 205

	out := Upsert(lib, incoming)

	require.Len(t, out, 1)
	assert.Equal(t, "B", out[0].ID)
	assert.Equal(t, 205, out[0].TempMin)
	assert.Equal(t, "A", lib[0].ID, "input library must not change")
}

func TestUpsert_AppendsNewIdentity(t *testing.T) {
	lib := []models.Preset{libraryPreset("A", "X", "Y")}

	out := Upsert(lib, libraryPreset("A", "X", "Z"))

	require.Len(t, out, 2)
	assert.Equal(t, "Y", out[0].Type)
	assert.Equal(t, "Z", out[1].Type)
	assert.Len(t, lib, 1)
}

func TestUpsert_LaterRecordWins(t *testing.T) {
	var lib []models.Preset
	first := libraryPreset("1", "Acme", "PETG")
	second := libraryPreset("2", "acme", "petg")
	second.FlowRatio = 0.91

	lib = Upsert(lib, first)
	lib = Upsert(lib, second)

	require.Len(t, lib, 1)
	assert.Equal(t, "2", lib[0].ID)
	assert.Equal(t, 0.91, lib[0].FlowRatio)
}

func TestDelete(t *testing.T) {
	lib := []models.Preset{libraryPreset("a", "X", "1"), libraryPreset("b", "X", "2")}

	out, removed := Delete(lib, "a")
	assert.True(t, removed)
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].ID)
	assert.Len(t, lib, 2)

	out, removed = Delete(out, "missing")
	assert.False(t, removed)
	assert.Len(t, out, 1)
}

func TestApplyToInventory_ScopedOverwrite(t *testing.T) {
	faker := gofakeit.New(42)
	inventory := []models.Filament{
		fakeSpool(faker, "Acme", "PETG"),
		fakeSpool(faker, "Other", "PETG"),
		fakeSpool(faker, "acme", "petg"),
		fakeSpool(faker, "Acme", "PLA"),
		fakeSpool(faker, "Acme", "PETG-CF"),
	}
	before := make([]models.Filament, len(inventory))
	for i, f := range inventory {
		before[i] = f.Clone()
	}

	p := libraryPreset("p", "ACME", "Petg")
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	out, updated := ApplyToInventory(p, inventory, now)

	assert.Equal(t, 2, updated)
	require.Len(t, out, 5)
	assert.Empty(t, cmp.Diff(before, inventory), "input inventory must not change")

	for i, f := range out {
		orig := before[i]
		assert.Equal(t, orig.ID, f.ID)
		assert.Equal(t, orig.Remaining, f.Remaining)
		assert.Equal(t, orig.History, f.History)
		assert.Equal(t, orig.Price, f.Price)
		assert.Equal(t, orig.Color, f.Color)
		assert.Equal(t, orig.Notes, f.Notes)
		assert.Equal(t, orig.Brand, f.Brand)
		assert.Equal(t, orig.Type, f.Type)

		if i == 0 || i == 2 {
			assert.Equal(t, p.TempMin, f.TempMin)
			assert.Equal(t, p.TempMax, f.TempMax)
			assert.Equal(t, p.FlowRatio, f.FlowRatio)
			assert.Equal(t, p.PressureAdvance, f.PressureAdvance)
			assert.Equal(t, p.MaxVolumetricSpeed, f.MaxVolumetricSpeed)
			assert.Equal(t, p.DefaultPlate, f.DefaultPlate)
			assert.Equal(t, p.BedSettings, f.BedSettings)
			assert.Equal(t, "2026-04-01T12:00:00.000Z", f.UpdatedAt)
		} else {
			assert.Empty(t, cmp.Diff(orig, f))
		}
	}
}

func TestApplyToInventory_ZeroMatchIsNoOp(t *testing.T) {
	faker := gofakeit.New(7)
	inventory := []models.Filament{
		fakeSpool(faker, "Acme", "PLA"),
		fakeSpool(faker, "Other", "PETG"),
	}

	out, updated := ApplyToInventory(libraryPreset("p", "Nobody", "ASA"), inventory, time.Now())

	assert.Zero(t, updated)
	assert.Empty(t, cmp.Diff(inventory, out))

	out, updated = ApplyToInventory(libraryPreset("p", "Nobody", "ASA"), nil, time.Now())
	assert.Zero(t, updated)
	assert.Nil(t, out)
}

func TestApplyToInventory_ResultDoesNotAliasInput(t *testing.T) {
	faker := gofakeit.New(3)
	inventory := []models.Filament{fakeSpool(faker, "Acme", "PLA")}

	out, _ := ApplyToInventory(libraryPreset("p", "Acme", "PLA"), inventory, time.Now())
	out[0].History[0].Name = "changed"
	out[0].BedSettings.Textured.Initial = 1

	assert.NotEqual(t, "changed", inventory[0].History[0].Name)
	assert.Equal(t, 65.0, inventory[0].BedSettings.Textured.Initial)
}

func TestCountMatches(t *testing.T) {
	faker := gofakeit.New(11)
	inventory := []models.Filament{
		fakeSpool(faker, "Acme", "PLA"),
		fakeSpool(faker, "ACME", "pla"),
		fakeSpool(faker, "Acme", "PLA Matte"),
	}

	assert.Equal(t, 2, CountMatches(libraryPreset("p", "acme", "PLA"), inventory))
	assert.Zero(t, CountMatches(libraryPreset("p", "Acme", "ABS"), inventory))
}
