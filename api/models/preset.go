package models

import "fmt"

// PlateType identifies a build-surface profile
type PlateType string

const (
	PlateCoolStabilized PlateType = "cool_stabilized"
	PlateCool           PlateType = "cool"
	PlateEngineering    PlateType = "engineering"
	PlateSmoothHighTemp PlateType = "smooth_high_temp"
	PlateTextured       PlateType = "textured"
)

// AllPlates returns the five plate identifiers in display order
func AllPlates() []PlateType {
	return []PlateType{
		PlateCoolStabilized,
		PlateCool,
		PlateEngineering,
		PlateSmoothHighTemp,
		PlateTextured,
	}
}

// ParsePlateType validates a plate identifier
func ParsePlateType(s string) (PlateType, error) {
	for _, p := range AllPlates() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown plate type %q", s)
}

// BedTemperature is the first-layer and other-layer bed temperature of one plate
type BedTemperature struct {
	Initial float64 `json:"initial"`
	Other   float64 `json:"other"`
}

// BedSettings holds one temperature pair per plate. It is a value type: assigning
// it copies every plate.
type BedSettings struct {
	CoolStabilized BedTemperature `json:"cool_stabilized"`
	Cool           BedTemperature `json:"cool"`
	Engineering    BedTemperature `json:"engineering"`
	SmoothHighTemp BedTemperature `json:"smooth_high_temp"`
	Textured       BedTemperature `json:"textured"`
}

// Get returns the temperature pair for a plate
func (b BedSettings) Get(p PlateType) (BedTemperature, bool) {
	switch p {
	case PlateCoolStabilized:
		return b.CoolStabilized, true
	case PlateCool:
		return b.Cool, true
	case PlateEngineering:
		return b.Engineering, true
	case PlateSmoothHighTemp:
		return b.SmoothHighTemp, true
	case PlateTextured:
		return b.Textured, true
	}
	return BedTemperature{}, false
}

// Set replaces the temperature pair for a plate. Unknown plates are ignored.
func (b *BedSettings) Set(p PlateType, t BedTemperature) {
	switch p {
	case PlateCoolStabilized:
		b.CoolStabilized = t
	case PlateCool:
		b.Cool = t
	case PlateEngineering:
		b.Engineering = t
	case PlateSmoothHighTemp:
		b.SmoothHighTemp = t
	case PlateTextured:
		b.Textured = t
	}
}

// IsZero reports whether no plate carries a temperature
func (b BedSettings) IsZero() bool {
	return b == BedSettings{}
}

// DefaultBedSettings returns the bed table used when none is supplied
func DefaultBedSettings() BedSettings {
	return BedSettings{
		CoolStabilized: BedTemperature{Initial: 35, Other: 35},
		Cool:           BedTemperature{Initial: 55, Other: 50},
		Engineering:    BedTemperature{Initial: 90, Other: 90},
		SmoothHighTemp: BedTemperature{Initial: 65, Other: 60},
		Textured:       BedTemperature{Initial: 65, Other: 60},
	}
}

// PresetSource tags where a preset came from
type PresetSource string

const (
	SourceBuiltin PresetSource = "builtin"
	SourceUser    PresetSource = "user"
	SourceLearned PresetSource = "learned"
)

// Preset is a reusable set of print parameters keyed by brand and type
type Preset struct {
	ID                 string       `json:"id"`
	Brand              string       `json:"brand"`
	Type               string       `json:"type"`
	TempMin            int          `json:"tempMin"`
	TempMax            int          `json:"tempMax"`
	FlowRatio          float64      `json:"flowRatio"`
	PressureAdvance    float64      `json:"pressureAdvance"`
	MaxVolumetricSpeed float64      `json:"maxVolumetricSpeed"`
	DefaultPlate       PlateType    `json:"defaultPlate"`
	BedSettings        BedSettings  `json:"bedSettings"`
	Source             PresetSource `json:"source"`
	CreatedAt          string       `json:"createdAt"`
}
