package intensity

import (
	"time"
)

// Band is the categorical intensity label published alongside the numeric value.
type Band string

const (
	BandVeryLow  Band = "very low"
	BandLow      Band = "low"
	BandModerate Band = "moderate"
	BandHigh     Band = "high"
	BandVeryHigh Band = "very high"
	BandUnknown  Band = ""
)

// IntensityReading is one national carbon-intensity observation for a
// half-hour settlement window. RecordedAt (the window start) is the upsert
// key; re-fetching the same window overwrites the stored row.
type IntensityReading struct {
	RecordedAt time.Time `json:"recordedAt" validate:"required"`
	WindowEnd  time.Time `json:"windowEnd,omitempty"`

	// Value is the actual intensity in gCO2/kWh when the API has published
	// one, otherwise the forecast for the window.
	Value    float64 `json:"intensityValue" validate:"gte=0"`
	Forecast float64 `json:"forecast"`
	Band     Band    `json:"band,omitempty"`
}

// FuelShare is one fuel type's percentage share of the generation mix.
type FuelShare struct {
	Fuel    string  `json:"fuel" validate:"required"`
	Percent float64 `json:"perc" validate:"gte=0,lte=100"`
}

// GenerationSnapshot is the national generation mix for one window,
// ordered by share descending.
type GenerationSnapshot struct {
	RecordedAt time.Time   `json:"recordedAt" validate:"required"`
	WindowEnd  time.Time   `json:"windowEnd,omitempty"`
	Mix        []FuelShare `json:"mix" validate:"required,dive"`
}

// Region is one DNO region's intensity and mix within a regional snapshot.
type Region struct {
	ID        int         `json:"regionid"`
	Shortname string      `json:"shortname"`
	Forecast  float64     `json:"forecast" validate:"gte=0"`
	Band      Band        `json:"band,omitempty"`
	Mix       []FuelShare `json:"generationmix,omitempty" validate:"dive"`
}

// RegionalSnapshot holds the highest-intensity regions for one window,
// ordered by forecast descending.
type RegionalSnapshot struct {
	RecordedAt time.Time `json:"recordedAt" validate:"required"`
	WindowEnd  time.Time `json:"windowEnd,omitempty"`
	Regions    []Region  `json:"regions" validate:"required,dive"`
}

// RenewableSources are the fuel types counted as renewable when summarising
// a generation mix.
var RenewableSources = map[string]bool{
	"solar":   true,
	"wind":    true,
	"hydro":   true,
	"biomass": true,
}

// RenewableShare sums the renewable portion of a mix.
func RenewableShare(mix []FuelShare) float64 {
	var total float64
	for _, fs := range mix {
		if RenewableSources[fs.Fuel] {
			total += fs.Percent
		}
	}
	return total
}

// MixSum returns the total of all percentage shares. A well-formed mix sums
// to approximately 100.
func MixSum(mix []FuelShare) float64 {
	var total float64
	for _, fs := range mix {
		total += fs.Percent
	}
	return total
}
