package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/carbonwatch/carbon-intensity-etl/internal/intensity"
	"github.com/carbonwatch/carbon-intensity-etl/internal/store"
)

var validate = validator.New()

// RegisterRoutes wires the dashboard's read-only HTTP handlers into the
// Fiber app. The dashboard only ever reads; gaps in the stored history are
// the caller's to tolerate.
func RegisterRoutes(app *fiber.App, st store.Store) {
	v1 := app.Group("/api/v1")

	v1.Get("/intensity/latest", func(c *fiber.Ctx) error {
		reading, err := st.LatestReading(c.Context())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no intensity data stored")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch intensity data")
		}
		return c.JSON(reading)
	})

	v1.Get("/intensity/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		readings, err := st.ReadingsRange(c.Context(), req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no intensity data for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch intensity history")
		}

		return c.JSON(fiber.Map{
			"from":     req.From,
			"to":       req.To,
			"readings": readings,
		})
	})

	v1.Get("/generation/latest", func(c *fiber.Ctx) error {
		snapshot, err := st.LatestGeneration(c.Context())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no generation data stored")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch generation data")
		}

		renewable := intensity.RenewableShare(snapshot.Mix)
		return c.JSON(fiber.Map{
			"snapshot":        snapshot,
			"renewablePct":    renewable,
			"nonRenewablePct": intensity.MixSum(snapshot.Mix) - renewable,
		})
	})

	v1.Get("/regional/latest", func(c *fiber.Ctx) error {
		snapshot, err := st.LatestRegional(c.Context())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no regional data stored")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch regional data")
		}
		return c.JSON(snapshot)
	})
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
