// Package preset turns vendor slicer profiles into canonical presets and
// resolves presets against the preset library and the spool inventory.
//
// Every function in this package is a pure transform over caller-owned values:
// inputs are never mutated and results never alias them.
package preset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/devadigapratham/filavault/api/models"
	"github.com/google/uuid"
)

// RawRecord is one decoded vendor profile object. Values are whatever the JSON
// decoder produced: strings, float64s, bools, nil, []any or map[string]any.
type RawRecord map[string]any

var (
	// ErrNotAProfile marks a record without filament_settings_id or setting_id.
	ErrNotAProfile = errors.New("not a filament profile")
	// ErrMalformedField marks a record with a field that cannot be coerced.
	ErrMalformedField = errors.New("malformed field")
)

// Vendor keys read during normalization
const (
	keySettingsID         = "filament_settings_id"
	keySettingID          = "setting_id"
	keyVendor             = "filament_vendor"
	keyType               = "filament_type"
	keyNozzleTemperature  = "nozzle_temperature"
	keyFlowRatio          = "filament_flow_ratio"
	keyMaxVolumetricSpeed = "filament_max_volumetric_speed"
	keyPressureAdvance    = "pressure_advance"
	keyCoolPlate          = "cool_plate_temp"
	keyEngPlate           = "eng_plate_temp"
	keyHotPlate           = "hot_plate_temp"
	keyTexturedPlate      = "textured_plate_temp"
)

const (
	defaultBrand              = "Imported"
	defaultType               = "PLA"
	defaultTempMin            = 200
	defaultTempMax            = 220
	defaultFlowRatio          = 1.0
	defaultMaxVolumetricSpeed = 12.0
	defaultPressureAdvance    = 0.02
	importedDefaultPlate      = models.PlateTextured

	// maxNozzleTemperature bounds nozzle temperatures in degrees Celsius
	maxNozzleTemperature = 1000
)

// plateSources lists the vendor key each plate is read from. Vendor exports have
// no separate stabilized cool plate, so both cool plates share cool_plate_temp.
var plateSources = []struct {
	plate models.PlateType
	key   string
}{
	{models.PlateCoolStabilized, keyCoolPlate},
	{models.PlateCool, keyCoolPlate},
	{models.PlateEngineering, keyEngPlate},
	{models.PlateSmoothHighTemp, keyHotPlate},
	{models.PlateTextured, keyTexturedPlate},
}

// Normalizer converts vendor profile records into presets.
type Normalizer struct {
	// NewID returns a fresh identifier for every normalized preset.
	NewID func() string
	// Now stamps CreatedAt.
	Now func() time.Time
}

// NewNormalizer returns a Normalizer backed by random UUIDs and the wall clock.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		NewID: uuid.NewString,
		Now:   time.Now,
	}
}

// Normalize converts raw into a user preset. It returns nil when the record is
// not a filament profile or when any consumed field is malformed; callers skip
// such records and continue with the next one.
func (n *Normalizer) Normalize(raw RawRecord) *models.Preset {
	p, err := build(raw)
	if err != nil {
		return nil
	}
	p.ID = n.NewID()
	p.CreatedAt = models.Timestamp(n.Now())
	return &p
}

// Explain reports why Normalize would skip raw, or nil if it would not.
func (n *Normalizer) Explain(raw RawRecord) error {
	_, err := build(raw)
	return err
}

// build derives every preset field except the id and creation time.
func build(raw RawRecord) (p models.Preset, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrMalformedField, r)
		}
	}()

	if !present(raw, keySettingsID) && !present(raw, keySettingID) {
		return p, ErrNotAProfile
	}

	if p.Brand, err = text(raw, keyVendor, defaultBrand); err != nil {
		return p, err
	}
	if p.Type, err = text(raw, keyType, defaultType); err != nil {
		return p, err
	}
	if p.TempMin, p.TempMax, err = temperatureRange(raw); err != nil {
		return p, err
	}

	p.FlowRatio = numberOr(raw, keyFlowRatio, defaultFlowRatio)
	p.MaxVolumetricSpeed = numberOr(raw, keyMaxVolumetricSpeed, defaultMaxVolumetricSpeed)
	p.PressureAdvance = numberOr(raw, keyPressureAdvance, defaultPressureAdvance)

	for _, src := range plateSources {
		t, err := bedTemperature(raw, src.key)
		if err != nil {
			return p, err
		}
		p.BedSettings.Set(src.plate, models.BedTemperature{Initial: t, Other: t})
	}

	p.DefaultPlate = importedDefaultPlate
	p.Source = models.SourceUser
	return p, nil
}

// unwrap returns the representative scalar of a vendor field: the first element
// of a list, or the value itself. ok is false when the field is absent, null or
// an empty list.
func unwrap(raw RawRecord, key string) (v any, ok bool) {
	v, ok = raw[key]
	if !ok || v == nil {
		return nil, false
	}
	if list, isList := v.([]any); isList {
		if len(list) == 0 || list[0] == nil {
			return nil, false
		}
		v = list[0]
	}
	return v, true
}

func present(raw RawRecord, key string) bool {
	v, ok := unwrap(raw, key)
	if !ok {
		return false
	}
	if s, isString := v.(string); isString {
		return s != ""
	}
	return true
}

func text(raw RawRecord, key, def string) (string, error) {
	v, ok := unwrap(raw, key)
	if !ok {
		return def, nil
	}
	s, isString := v.(string)
	if !isString {
		return "", fmt.Errorf("%w: %s is %T, want string", ErrMalformedField, key, v)
	}
	if s == "" {
		return def, nil
	}
	return s, nil
}

// numberOr resolves absent and non-numeric values to def.
func numberOr(raw RawRecord, key string, def float64) float64 {
	v, ok := unwrap(raw, key)
	if !ok {
		return def
	}
	f, ok := toNumber(v)
	if !ok {
		return def
	}
	return f
}

func temperatureRange(raw RawRecord) (int, int, error) {
	v, ok := raw[keyNozzleTemperature]
	if !ok || v == nil {
		return defaultTempMin, defaultTempMax, nil
	}

	lo, hi := v, v
	if list, isList := v.([]any); isList {
		switch len(list) {
		case 0:
			return defaultTempMin, defaultTempMax, nil
		case 1:
			lo, hi = list[0], list[0]
		default:
			lo, hi = list[0], list[1]
		}
	}

	low, ok := toNumber(lo)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s lower bound %v", ErrMalformedField, keyNozzleTemperature, lo)
	}
	high, ok := toNumber(hi)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s upper bound %v", ErrMalformedField, keyNozzleTemperature, hi)
	}
	for _, t := range []float64{low, high} {
		if math.Abs(t) > maxNozzleTemperature {
			return 0, 0, fmt.Errorf("%w: %s %v out of range", ErrMalformedField, keyNozzleTemperature, t)
		}
	}
	return int(math.Round(low)), int(math.Round(high)), nil
}

// bedTemperature reads a plate temperature. Absent plates read as 0.
func bedTemperature(raw RawRecord, key string) (float64, error) {
	v, ok := unwrap(raw, key)
	if !ok {
		return 0, nil
	}
	f, ok := toNumber(v)
	if !ok {
		return 0, fmt.Errorf("%w: %s is %v", ErrMalformedField, key, v)
	}
	return f, nil
}

// toNumber accepts JSON numbers and numeric strings, the form slicer exports
// use for every value.
func toNumber(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case interface{ Float64() (float64, error) }:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
