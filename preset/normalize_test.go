package preset

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/devadigapratham/filavault/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

// testNormalizer returns a normalizer with sequential ids and a frozen clock
func testNormalizer() *Normalizer {
	n := 0
	return &Normalizer{
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
		Now: func() time.Time { return fixedNow },
	}
}

func TestNormalize_Scenario(t *testing.T) {
	raw := RawRecord{
		"filament_settings_id": []any{"abc"},
		"filament_vendor":      []any{"Acme"},
		"filament_type":        []any{"PETG"},
		"nozzle_temperature":   []any{230.0, 250.0},
		"cool_plate_temp":      80.0,
		"eng_plate_temp":       []any{95.0},
		"hot_plate_temp":       90.0,
		"textured_plate_temp":  []any{85.0},
		"filament_flow_ratio":  []any{0.95},
		"pressure_advance":     []any{0.03},
	}

	p := testNormalizer().Normalize(raw)
	require.NotNil(t, p)

	assert.Equal(t, "id-1", p.ID)
	assert.Equal(t, "Acme", p.Brand)
	assert.Equal(t, "PETG", p.Type)
	assert.Equal(t, 230, p.TempMin)
	assert.Equal(t, 250, p.TempMax)
	assert.Equal(t, 0.95, p.FlowRatio)
	assert.Equal(t, 0.03, p.PressureAdvance)
	assert.Equal(t, 12.0, p.MaxVolumetricSpeed)
	assert.Equal(t, models.PlateTextured, p.DefaultPlate)
	assert.Equal(t, models.SourceUser, p.Source)
	assert.Equal(t, "2026-03-14T09:26:53.000Z", p.CreatedAt)

	assert.Equal(t, models.BedTemperature{Initial: 95, Other: 95}, p.BedSettings.Engineering)
	assert.Equal(t, models.BedTemperature{Initial: 80, Other: 80}, p.BedSettings.Cool)
	assert.Equal(t, models.BedTemperature{Initial: 80, Other: 80}, p.BedSettings.CoolStabilized)
	assert.Equal(t, models.BedTemperature{Initial: 85, Other: 85}, p.BedSettings.Textured)
	assert.Equal(t, models.BedTemperature{Initial: 90, Other: 90}, p.BedSettings.SmoothHighTemp)
}

func TestNormalize_ScalarAndListAreEquivalent(t *testing.T) {
	fields := map[string]any{
		"filament_vendor":               "Acme",
		"filament_type":                 "PETG",
		"nozzle_temperature":            235.0,
		"filament_flow_ratio":           0.97,
		"filament_max_volumetric_speed": 15.0,
		"pressure_advance":              0.035,
		"cool_plate_temp":               55.0,
		"eng_plate_temp":                90.0,
		"hot_plate_temp":                70.0,
		"textured_plate_temp":           65.0,
	}

	for field, v := range fields {
		t.Run(field, func(t *testing.T) {
			n := testNormalizer()
			scalar := n.Normalize(RawRecord{"filament_settings_id": []any{"x"}, field: v})
			list := n.Normalize(RawRecord{"filament_settings_id": []any{"x"}, field: []any{v}})
			require.NotNil(t, scalar)
			require.NotNil(t, list)

			assert.NotEqual(t, scalar.ID, list.ID)
			scalar.ID, list.ID = "", ""
			assert.Equal(t, *scalar, *list)
		})
	}
}

func TestNormalize_Discriminator(t *testing.T) {
	n := testNormalizer()

	assert.Nil(t, n.Normalize(RawRecord{}))
	assert.Nil(t, n.Normalize(RawRecord{"filament_vendor": []any{"Acme"}}))
	assert.Nil(t, n.Normalize(RawRecord{"filament_settings_id": ""}))
	assert.Nil(t, n.Normalize(RawRecord{"filament_settings_id": []any{}}))
	assert.NotNil(t, n.Normalize(RawRecord{"filament_settings_id": []any{"x"}}))
	assert.NotNil(t, n.Normalize(RawRecord{"setting_id": "x"}))

	assert.ErrorIs(t, n.Explain(RawRecord{}), ErrNotAProfile)
	assert.NoError(t, n.Explain(RawRecord{"setting_id": "x"}))
}

func TestNormalize_Defaults(t *testing.T) {
	p := testNormalizer().Normalize(RawRecord{"filament_settings_id": []any{"x"}})
	require.NotNil(t, p)

	assert.Equal(t, 200, p.TempMin)
	assert.Equal(t, 220, p.TempMax)
	assert.Equal(t, 1.0, p.FlowRatio)
	assert.Equal(t, 12.0, p.MaxVolumetricSpeed)
	assert.Equal(t, 0.02, p.PressureAdvance)
	assert.Equal(t, "Imported", p.Brand)
	assert.Equal(t, "PLA", p.Type)
	assert.Equal(t, models.BedSettings{}, p.BedSettings)
}

func TestNormalize_CoolPlatesShareVendorField(t *testing.T) {
	for _, temp := range []float64{0, 35, 55.5, 60} {
		p := testNormalizer().Normalize(RawRecord{
			"setting_id":      "x",
			"cool_plate_temp": []any{temp},
		})
		require.NotNil(t, p)

		want := models.BedTemperature{Initial: temp, Other: temp}
		assert.Equal(t, want, p.BedSettings.Cool)
		assert.Equal(t, want, p.BedSettings.CoolStabilized)
	}
}

func TestNormalize_StringEncodedNumbers(t *testing.T) {
	// Bambu Studio writes every value as a list of strings
	p := testNormalizer().Normalize(RawRecord{
		"filament_settings_id":          []any{"Generic PETG @BBL X1C"},
		"nozzle_temperature":            []any{"240", "255"},
		"filament_flow_ratio":           []any{"0.96"},
		"filament_max_volumetric_speed": []any{"16"},
		"pressure_advance":              []any{" 0.04 "},
		"textured_plate_temp":           []any{"70"},
	})
	require.NotNil(t, p)

	assert.Equal(t, 240, p.TempMin)
	assert.Equal(t, 255, p.TempMax)
	assert.Equal(t, 0.96, p.FlowRatio)
	assert.Equal(t, 16.0, p.MaxVolumetricSpeed)
	assert.Equal(t, 0.04, p.PressureAdvance)
	assert.Equal(t, models.BedTemperature{Initial: 70, Other: 70}, p.BedSettings.Textured)
}

func TestNormalize_TemperatureForms(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		min, max int
	}{
		{"scalar", 215.0, 215, 215},
		{"single element", []any{"225"}, 225, 225},
		{"range", []any{200.0, 230.0}, 200, 230},
		{"extra elements ignored", []any{200.0, 230.0, 260.0}, 200, 230},
		{"empty list", []any{}, 200, 220},
		{"null", nil, 200, 220},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testNormalizer().Normalize(RawRecord{"setting_id": "x", "nozzle_temperature": tt.value})
			require.NotNil(t, p)
			assert.Equal(t, tt.min, p.TempMin)
			assert.Equal(t, tt.max, p.TempMax)
		})
	}
}

func TestNormalize_NonNumericParametersFallBack(t *testing.T) {
	p := testNormalizer().Normalize(RawRecord{
		"setting_id":                    "x",
		"filament_flow_ratio":           []any{"nil"},
		"filament_max_volumetric_speed": true,
		"pressure_advance":              map[string]any{"value": 1.0},
	})
	require.NotNil(t, p)

	assert.Equal(t, 1.0, p.FlowRatio)
	assert.Equal(t, 12.0, p.MaxVolumetricSpeed)
	assert.Equal(t, 0.02, p.PressureAdvance)
}

func TestNormalize_MalformedFieldSkipsRecord(t *testing.T) {
	tests := []struct {
		name string
		raw  RawRecord
	}{
		{"vendor not a string", RawRecord{"setting_id": "x", "filament_vendor": []any{42.0}}},
		{"type is an object", RawRecord{"setting_id": "x", "filament_type": map[string]any{}}},
		{"temperature not numeric", RawRecord{"setting_id": "x", "nozzle_temperature": []any{"hot", "hotter"}}},
		{"plate temperature not numeric", RawRecord{"setting_id": "x", "eng_plate_temp": "warm"}},
		{"temperature out of range", RawRecord{"setting_id": "x", "nozzle_temperature": []any{1e20, 1e20}}},
		{"upper temperature out of range", RawRecord{"setting_id": "x", "nozzle_temperature": []any{"220", "-5000"}}},
		{"field accessor panics", RawRecord{"setting_id": "x", "filament_flow_ratio": panickingNumber{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := testNormalizer()
			assert.Nil(t, n.Normalize(tt.raw))

			err := n.Explain(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedField))
		})
	}
}

// panickingNumber is a numeric value whose accessor panics
type panickingNumber struct{}

func (panickingNumber) Float64() (float64, error) { panic("boom") }

func TestNormalize_RecoversFromPanic(t *testing.T) {
	raw := RawRecord{"setting_id": "x", "pressure_advance": []any{panickingNumber{}}}
	n := testNormalizer()

	assert.Nil(t, n.Normalize(raw))
	err := n.Explain(raw)
	assert.ErrorIs(t, err, ErrMalformedField)
	assert.ErrorContains(t, err, "boom")

	// the next record is unaffected
	assert.NotNil(t, n.Normalize(RawRecord{"setting_id": "y"}))
}

func TestNormalize_FreshIdentityEachCall(t *testing.T) {
	n := testNormalizer()
	raw := RawRecord{"setting_id": "x", "filament_vendor": "Acme"}

	a := n.Normalize(raw)
	b := n.Normalize(raw)
	require.NotNil(t, a)
	require.NotNil(t, b)

	assert.NotEqual(t, a.ID, b.ID)
	a.ID, b.ID = "", ""
	assert.Equal(t, *a, *b)
}

func TestNewNormalizer_UsesUUIDs(t *testing.T) {
	p := NewNormalizer().Normalize(RawRecord{"setting_id": "x"})
	require.NotNil(t, p)
	assert.Len(t, p.ID, 36)

	_, err := models.ParseTimestamp(p.CreatedAt)
	assert.NoError(t, err)
}
