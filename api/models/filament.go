package models

// Filament represents a spool of filament in the inventory
type Filament struct {
	ID        string `json:"id"`
	Brand     string `json:"brand"`
	Type      string `json:"type"` // PLA Basic, PETG Basic, ABS, TPU 95A
	Color     string `json:"color"`
	ColorName string `json:"colorName"`

	Weight    float64 `json:"weight"`    // spool net weight in grams
	Remaining float64 `json:"remaining"` // grams left
	Price     float64 `json:"price"`

	TempMin            int         `json:"tempMin"`
	TempMax            int         `json:"tempMax"`
	FlowRatio          float64     `json:"flowRatio"`
	MaxVolumetricSpeed float64     `json:"maxVolumetricSpeed,omitempty"`
	PressureAdvance    float64     `json:"pressureAdvance"`
	BedSettings        BedSettings `json:"bedSettings"`
	DefaultPlate       PlateType   `json:"defaultPlate"`

	Notes   string         `json:"notes,omitempty"`
	History []PrintHistory `json:"history"`

	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// PrintHistory records one print that consumed filament from a spool
type PrintHistory struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Weight    float64 `json:"weight"`
	Link      string  `json:"link,omitempty"`
	PrintTime float64 `json:"printTime,omitempty"` // hours
	Rating    int     `json:"rating,omitempty"`
	Date      string  `json:"date"`
}

// Clone returns a copy that shares no slices with f
func (f Filament) Clone() Filament {
	if f.History != nil {
		f.History = append([]PrintHistory(nil), f.History...)
	}
	return f
}

// Sanitize clamps user-entered values into their accepted ranges and fills
// defaults for missing plate data.
func (f *Filament) Sanitize() {
	f.Weight = clamp(f.Weight, 0, 10000)
	f.Remaining = clamp(f.Remaining, 0, 10000)
	f.Price = clamp(f.Price, 0, 9999)
	f.TempMin = int(clamp(float64(f.TempMin), 0, 400))
	f.TempMax = int(clamp(float64(f.TempMax), 0, 400))
	if f.FlowRatio == 0 {
		f.FlowRatio = 0.98
	}
	f.FlowRatio = clamp(f.FlowRatio, 0.5, 1.5)
	f.PressureAdvance = clamp(f.PressureAdvance, 0, 0.2)

	if f.BedSettings.IsZero() {
		f.BedSettings = DefaultBedSettings()
	}
	if _, err := ParsePlateType(string(f.DefaultPlate)); err != nil {
		f.DefaultPlate = PlateTextured
	}
	if f.History == nil {
		f.History = []PrintHistory{}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
