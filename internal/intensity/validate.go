package intensity

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateReading checks a reading before load. A non-nil error wraps
// ErrValidation with the reason; the caller drops the row and continues.
func ValidateReading(r IntensityReading) error {
	if r.RecordedAt.IsZero() {
		return fmt.Errorf("%w: reading has a zero timestamp", ErrValidation)
	}
	if r.Value < 0 {
		return fmt.Errorf("%w: intensity value %.1f is negative", ErrValidation, r.Value)
	}
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// ValidateGeneration checks a generation snapshot: timestamp set and every
// share within [0, 100]. A mix summing away from 100 is reported by the
// pipeline but is not a validation failure.
func ValidateGeneration(g GenerationSnapshot) error {
	if g.RecordedAt.IsZero() {
		return fmt.Errorf("%w: generation snapshot has a zero timestamp", ErrValidation)
	}
	for _, fs := range g.Mix {
		if fs.Percent < 0 || fs.Percent > 100 {
			return fmt.Errorf("%w: fuel %q share %.1f outside [0, 100]", ErrValidation, fs.Fuel, fs.Percent)
		}
	}
	if err := validate.Struct(g); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// ValidateRegional checks a regional snapshot.
func ValidateRegional(s RegionalSnapshot) error {
	if s.RecordedAt.IsZero() {
		return fmt.Errorf("%w: regional snapshot has a zero timestamp", ErrValidation)
	}
	for _, region := range s.Regions {
		if region.Forecast < 0 {
			return fmt.Errorf("%w: region %q forecast %.1f is negative", ErrValidation, region.Shortname, region.Forecast)
		}
		for _, fs := range region.Mix {
			if fs.Percent < 0 || fs.Percent > 100 {
				return fmt.Errorf("%w: region %q fuel %q share %.1f outside [0, 100]", ErrValidation, region.Shortname, fs.Fuel, fs.Percent)
			}
		}
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
