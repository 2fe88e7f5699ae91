package intensity

import (
	"errors"
	"testing"
	"time"
)

func TestValidateReadingRejectsNegativeValue(t *testing.T) {
	reading := IntensityReading{
		RecordedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Value:      -5,
	}

	if err := ValidateReading(reading); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestValidateReadingRejectsZeroTimestamp(t *testing.T) {
	reading := IntensityReading{Value: 100}

	if err := ValidateReading(reading); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestValidateReadingPasses(t *testing.T) {
	reading := IntensityReading{
		RecordedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Value:      115,
		Forecast:   120,
		Band:       BandModerate,
	}

	if err := ValidateReading(reading); err != nil {
		t.Errorf("expected valid reading, got %v", err)
	}
}

func TestValidateGenerationRejectsBadShare(t *testing.T) {
	cases := []struct {
		name    string
		percent float64
	}{
		{"negative share", -1},
		{"share above 100", 101},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snapshot := GenerationSnapshot{
				RecordedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				Mix:        []FuelShare{{Fuel: "wind", Percent: tc.percent}},
			}

			if err := ValidateGeneration(snapshot); !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestValidateGenerationPasses(t *testing.T) {
	snapshot := GenerationSnapshot{
		RecordedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Mix: []FuelShare{
			{Fuel: "wind", Percent: 40},
			{Fuel: "gas", Percent: 35},
			{Fuel: "solar", Percent: 25},
		},
	}

	if err := ValidateGeneration(snapshot); err != nil {
		t.Errorf("expected valid snapshot, got %v", err)
	}
}

func TestValidateRegionalRejectsNegativeForecast(t *testing.T) {
	snapshot := RegionalSnapshot{
		RecordedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Regions:    []Region{{ID: 1, Shortname: "North Scotland", Forecast: -10}},
	}

	if err := ValidateRegional(snapshot); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestRenewableShare(t *testing.T) {
	mix := []FuelShare{
		{Fuel: "wind", Percent: 30},
		{Fuel: "solar", Percent: 10},
		{Fuel: "gas", Percent: 40},
		{Fuel: "hydro", Percent: 5},
		{Fuel: "coal", Percent: 15},
	}

	if got := RenewableShare(mix); got != 45 {
		t.Errorf("expected renewable share 45, got %v", got)
	}
	if got := MixSum(mix); got != 100 {
		t.Errorf("expected mix sum 100, got %v", got)
	}
}
