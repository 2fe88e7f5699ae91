package intensity

import (
	"fmt"
	"sort"
	"time"
)

// Raw payload shapes of the carbonintensity.org.uk API. Pointer fields
// distinguish an absent object from a present-but-null value: a missing
// required key is a schema failure, a null actual is tolerated.

type IntensityPayload struct {
	Data []struct {
		From      string `json:"from"`
		To        string `json:"to"`
		Intensity *struct {
			Forecast *float64 `json:"forecast"`
			Actual   *float64 `json:"actual"`
			Index    string   `json:"index"`
		} `json:"intensity"`
	} `json:"data"`
}

type GenerationPayload struct {
	Data struct {
		From string       `json:"from"`
		To   string       `json:"to"`
		Mix  *[]FuelShare `json:"generationmix"`
	} `json:"data"`
}

type RegionalPayload struct {
	Data []struct {
		From    string `json:"from"`
		To      string `json:"to"`
		Regions []struct {
			RegionID  int    `json:"regionid"`
			Shortname string `json:"shortname"`
			Intensity *struct {
				Forecast *float64 `json:"forecast"`
				Index    string   `json:"index"`
			} `json:"intensity"`
			Mix []FuelShare `json:"generationmix"`
		} `json:"regions"`
	} `json:"data"`
}

// regionalTopN caps how many regions a snapshot keeps, highest forecast first.
const regionalTopN = 10

// windowTimeLayout matches the API's minute-resolution timestamps,
// e.g. "2024-01-01T00:00Z".
const windowTimeLayout = "2006-01-02T15:04Z07:00"

func parseWindowTime(s string) (time.Time, error) {
	if ts, err := time.Parse(windowTimeLayout, s); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

// TransformIntensity reshapes a raw /intensity payload into a single reading.
// The actual value wins when published; a null actual falls back to the
// forecast.
func TransformIntensity(p IntensityPayload) (IntensityReading, error) {
	if len(p.Data) == 0 {
		return IntensityReading{}, fmt.Errorf("%w: intensity payload has no data entries", ErrSchema)
	}
	entry := p.Data[0]

	if entry.From == "" {
		return IntensityReading{}, fmt.Errorf("%w: intensity entry is missing the from timestamp", ErrSchema)
	}
	recordedAt, err := parseWindowTime(entry.From)
	if err != nil {
		return IntensityReading{}, fmt.Errorf("%w: bad from timestamp %q: %v", ErrSchema, entry.From, err)
	}

	if entry.Intensity == nil {
		return IntensityReading{}, fmt.Errorf("%w: intensity entry is missing the intensity object", ErrSchema)
	}

	var value float64
	switch {
	case entry.Intensity.Actual != nil:
		value = *entry.Intensity.Actual
	case entry.Intensity.Forecast != nil:
		value = *entry.Intensity.Forecast
	default:
		return IntensityReading{}, fmt.Errorf("%w: intensity object has neither actual nor forecast", ErrSchema)
	}

	reading := IntensityReading{
		RecordedAt: recordedAt,
		Value:      value,
		Band:       Band(entry.Intensity.Index),
	}
	if entry.Intensity.Forecast != nil {
		reading.Forecast = *entry.Intensity.Forecast
	}
	if entry.To != "" {
		if end, err := parseWindowTime(entry.To); err == nil {
			reading.WindowEnd = end
		}
	}

	return reading, nil
}

// TransformGeneration reshapes a raw /generation payload, ordering the mix by
// share descending.
func TransformGeneration(p GenerationPayload) (GenerationSnapshot, error) {
	if p.Data.From == "" {
		return GenerationSnapshot{}, fmt.Errorf("%w: generation payload is missing the from timestamp", ErrSchema)
	}
	recordedAt, err := parseWindowTime(p.Data.From)
	if err != nil {
		return GenerationSnapshot{}, fmt.Errorf("%w: bad from timestamp %q: %v", ErrSchema, p.Data.From, err)
	}

	if p.Data.Mix == nil {
		return GenerationSnapshot{}, fmt.Errorf("%w: generation payload is missing the generationmix array", ErrSchema)
	}

	mix := make([]FuelShare, len(*p.Data.Mix))
	copy(mix, *p.Data.Mix)
	sort.SliceStable(mix, func(i, j int) bool {
		return mix[i].Percent > mix[j].Percent
	})

	snapshot := GenerationSnapshot{
		RecordedAt: recordedAt,
		Mix:        mix,
	}
	if p.Data.To != "" {
		if end, err := parseWindowTime(p.Data.To); err == nil {
			snapshot.WindowEnd = end
		}
	}

	return snapshot, nil
}

// TransformRegional reshapes a raw /regional payload, keeping the top
// regions by forecast intensity.
func TransformRegional(p RegionalPayload) (RegionalSnapshot, error) {
	if len(p.Data) == 0 {
		return RegionalSnapshot{}, fmt.Errorf("%w: regional payload has no data entries", ErrSchema)
	}
	entry := p.Data[0]

	if entry.From == "" {
		return RegionalSnapshot{}, fmt.Errorf("%w: regional entry is missing the from timestamp", ErrSchema)
	}
	recordedAt, err := parseWindowTime(entry.From)
	if err != nil {
		return RegionalSnapshot{}, fmt.Errorf("%w: bad from timestamp %q: %v", ErrSchema, entry.From, err)
	}

	if entry.Regions == nil {
		return RegionalSnapshot{}, fmt.Errorf("%w: regional entry is missing the regions array", ErrSchema)
	}

	regions := make([]Region, 0, len(entry.Regions))
	for _, raw := range entry.Regions {
		region := Region{
			ID:        raw.RegionID,
			Shortname: raw.Shortname,
			Mix:       raw.Mix,
		}
		if raw.Intensity != nil {
			if raw.Intensity.Forecast != nil {
				region.Forecast = *raw.Intensity.Forecast
			}
			region.Band = Band(raw.Intensity.Index)
		}
		regions = append(regions, region)
	}

	sort.SliceStable(regions, func(i, j int) bool {
		return regions[i].Forecast > regions[j].Forecast
	})
	if len(regions) > regionalTopN {
		regions = regions[:regionalTopN]
	}

	snapshot := RegionalSnapshot{
		RecordedAt: recordedAt,
		Regions:    regions,
	}
	if entry.To != "" {
		if end, err := parseWindowTime(entry.To); err == nil {
			snapshot.WindowEnd = end
		}
	}

	return snapshot, nil
}
