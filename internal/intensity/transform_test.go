package intensity

import (
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"
)

// TestTransformIntensityActualWins verifies that a published actual value
// takes precedence over the forecast and the band is passed through.
func TestTransformIntensityActualWins(t *testing.T) {
	raw := `{"data":[{"from":"2024-01-01T00:00Z","to":"2024-01-01T00:30Z","intensity":{"forecast":120,"actual":115,"index":"moderate"}}]}`

	var payload IntensityPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reading, err := TransformIntensity(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !reading.RecordedAt.Equal(want) {
		t.Errorf("expected recordedAt %v, got %v", want, reading.RecordedAt)
	}
	if reading.Value != 115 {
		t.Errorf("expected value 115, got %v", reading.Value)
	}
	if reading.Forecast != 120 {
		t.Errorf("expected forecast 120, got %v", reading.Forecast)
	}
	if reading.Band != BandModerate {
		t.Errorf("expected band %q, got %q", BandModerate, reading.Band)
	}
	if reading.WindowEnd.IsZero() {
		t.Error("expected window end to be set")
	}
}

// TestTransformIntensityNullActual verifies that a present-but-null actual
// falls back to the forecast rather than failing.
func TestTransformIntensityNullActual(t *testing.T) {
	raw := `{"data":[{"from":"2024-01-01T00:00Z","intensity":{"forecast":120,"actual":null,"index":"low"}}]}`

	var payload IntensityPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reading, err := TransformIntensity(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reading.Value != 120 {
		t.Errorf("expected fallback to forecast 120, got %v", reading.Value)
	}
}

// TestTransformIntensityMissingKey verifies that an absent intensity object
// is a schema failure, not a zero-valued reading.
func TestTransformIntensityMissingKey(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"missing intensity object", `{"data":[{"from":"2024-01-01T00:00Z"}]}`},
		{"empty data array", `{"data":[]}`},
		{"missing from", `{"data":[{"intensity":{"forecast":120}}]}`},
		{"no values at all", `{"data":[{"from":"2024-01-01T00:00Z","intensity":{"forecast":null,"actual":null}}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var payload IntensityPayload
			if err := json.Unmarshal([]byte(tc.raw), &payload); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if _, err := TransformIntensity(payload); !errors.Is(err, ErrSchema) {
				t.Errorf("expected ErrSchema, got %v", err)
			}
		})
	}
}

// TestTransformGenerationSortsMix verifies the mix is reordered by share
// descending before storage.
func TestTransformGenerationSortsMix(t *testing.T) {
	raw := `{"data":{"from":"2024-01-01T00:00Z","to":"2024-01-01T00:30Z","generationmix":[
		{"fuel":"coal","perc":2.5},
		{"fuel":"wind","perc":38.2},
		{"fuel":"gas","perc":30.1}
	]}}`

	var payload GenerationPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snapshot, err := TransformGeneration(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(snapshot.Mix) != 3 {
		t.Fatalf("expected 3 fuels, got %d", len(snapshot.Mix))
	}
	if snapshot.Mix[0].Fuel != "wind" || snapshot.Mix[2].Fuel != "coal" {
		t.Errorf("expected mix sorted by share descending, got %+v", snapshot.Mix)
	}
}

func TestTransformGenerationMissingMix(t *testing.T) {
	raw := `{"data":{"from":"2024-01-01T00:00Z"}}`

	var payload GenerationPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := TransformGeneration(payload); !errors.Is(err, ErrSchema) {
		t.Errorf("expected ErrSchema, got %v", err)
	}
}

// TestTransformRegionalTopN verifies regions are ordered by forecast
// descending and truncated to the configured cap.
func TestTransformRegionalTopN(t *testing.T) {
	// 12 regions with ascending forecasts; expect the top 10, highest first.
	regions := ""
	for i := 0; i < 12; i++ {
		if i > 0 {
			regions += ","
		}
		regions += `{"regionid":` + strconv.Itoa(i+1) + `,"shortname":"R` + strconv.Itoa(i+1) + `","intensity":{"forecast":` + strconv.Itoa((i+1)*10) + `,"index":"low"}}`
	}
	raw := `{"data":[{"from":"2024-01-01T00:00Z","regions":[` + regions + `]}]}`

	var payload RegionalPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snapshot, err := TransformRegional(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(snapshot.Regions) != 10 {
		t.Fatalf("expected 10 regions, got %d", len(snapshot.Regions))
	}
	if snapshot.Regions[0].Forecast != 120 {
		t.Errorf("expected highest forecast first, got %v", snapshot.Regions[0].Forecast)
	}
	if snapshot.Regions[9].Forecast != 30 {
		t.Errorf("expected regions below the cap dropped, got %v", snapshot.Regions[9].Forecast)
	}
}
