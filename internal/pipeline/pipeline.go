package pipeline

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/carbonwatch/carbon-intensity-etl/internal/intensity"
	"github.com/carbonwatch/carbon-intensity-etl/internal/store"
)

// mixSumTolerance is how far a generation mix may drift from 100 percent
// before it gets reported.
const mixSumTolerance = 1.5

// Pipeline runs one extract-transform-validate-load cycle against the
// carbon-intensity API. Each run is stateless; the remote table is the only
// carried-forward state.
type Pipeline struct {
	client    *intensity.Client
	store     store.Store
	log       *zap.Logger
	retention time.Duration
}

// New wires a Pipeline. The retention window drives Cleanup.
func New(client *intensity.Client, st store.Store, log *zap.Logger, retention time.Duration) *Pipeline {
	return &Pipeline{
		client:    client,
		store:     st,
		log:       log,
		retention: retention,
	}
}

// Run executes one ETL cycle. The three feeds are loaded independently, so a
// failure in one still lets the others land; any fatal feed failure makes the
// run as a whole fail so the external scheduler marks it for follow-up.
// Per-row validation failures are dropped, counted, and never abort the run.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()
	p.log.Info("starting ETL run")

	err := errors.Join(
		p.runIntensity(ctx),
		p.runGeneration(ctx),
		p.runRegional(ctx),
	)

	runDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		runsTotal.WithLabelValues("failure").Inc()
		p.log.Error("ETL run finished with failures", zap.Error(err), zap.Duration("took", time.Since(start)))
		return err
	}

	runsTotal.WithLabelValues("success").Inc()
	p.log.Info("ETL run complete", zap.Duration("took", time.Since(start)))
	return nil
}

func (p *Pipeline) runIntensity(ctx context.Context) error {
	payload, err := p.client.FetchIntensity(ctx)
	if err != nil {
		feedErrorsTotal.WithLabelValues("intensity", "fetch").Inc()
		return err
	}

	reading, err := intensity.TransformIntensity(payload)
	if err != nil {
		feedErrorsTotal.WithLabelValues("intensity", "transform").Inc()
		return err
	}

	if err := intensity.ValidateReading(reading); err != nil {
		rowsDroppedTotal.WithLabelValues("intensity").Inc()
		p.log.Warn("dropping invalid intensity reading",
			zap.Time("recordedAt", reading.RecordedAt), zap.Error(err))
		return nil
	}

	if err := p.store.UpsertReading(ctx, reading); err != nil {
		feedErrorsTotal.WithLabelValues("intensity", "load").Inc()
		return err
	}

	rowsLoadedTotal.WithLabelValues("intensity").Inc()
	p.log.Info("stored intensity reading",
		zap.Time("recordedAt", reading.RecordedAt),
		zap.Float64("value", reading.Value),
		zap.String("band", string(reading.Band)))
	return nil
}

func (p *Pipeline) runGeneration(ctx context.Context) error {
	payload, err := p.client.FetchGeneration(ctx)
	if err != nil {
		feedErrorsTotal.WithLabelValues("generation", "fetch").Inc()
		return err
	}

	snapshot, err := intensity.TransformGeneration(payload)
	if err != nil {
		feedErrorsTotal.WithLabelValues("generation", "transform").Inc()
		return err
	}

	if err := intensity.ValidateGeneration(snapshot); err != nil {
		rowsDroppedTotal.WithLabelValues("generation").Inc()
		p.log.Warn("dropping invalid generation snapshot",
			zap.Time("recordedAt", snapshot.RecordedAt), zap.Error(err))
		return nil
	}

	if sum := intensity.MixSum(snapshot.Mix); math.Abs(sum-100) > mixSumTolerance {
		p.log.Warn("generation mix does not sum to 100",
			zap.Time("recordedAt", snapshot.RecordedAt), zap.Float64("sum", sum))
	}

	if err := p.store.UpsertGeneration(ctx, snapshot); err != nil {
		feedErrorsTotal.WithLabelValues("generation", "load").Inc()
		return err
	}

	rowsLoadedTotal.WithLabelValues("generation").Inc()
	p.log.Info("stored generation mix",
		zap.Time("recordedAt", snapshot.RecordedAt),
		zap.Float64("renewablePct", intensity.RenewableShare(snapshot.Mix)))
	return nil
}

func (p *Pipeline) runRegional(ctx context.Context) error {
	payload, err := p.client.FetchRegional(ctx)
	if err != nil {
		feedErrorsTotal.WithLabelValues("regional", "fetch").Inc()
		return err
	}

	snapshot, err := intensity.TransformRegional(payload)
	if err != nil {
		feedErrorsTotal.WithLabelValues("regional", "transform").Inc()
		return err
	}

	if err := intensity.ValidateRegional(snapshot); err != nil {
		rowsDroppedTotal.WithLabelValues("regional").Inc()
		p.log.Warn("dropping invalid regional snapshot",
			zap.Time("recordedAt", snapshot.RecordedAt), zap.Error(err))
		return nil
	}

	if err := p.store.UpsertRegional(ctx, snapshot); err != nil {
		feedErrorsTotal.WithLabelValues("regional", "load").Inc()
		return err
	}

	rowsLoadedTotal.WithLabelValues("regional").Inc()
	p.log.Info("stored regional snapshot",
		zap.Time("recordedAt", snapshot.RecordedAt),
		zap.Int("regions", len(snapshot.Regions)))
	return nil
}

// Cleanup deletes rows older than the retention window. Running it twice in
// immediate succession leaves the table unchanged the second time.
func (p *Pipeline) Cleanup(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-p.retention)

	deleted, err := p.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	rowsSweptTotal.Add(float64(deleted))
	p.log.Info("retention sweep complete",
		zap.Time("cutoff", cutoff),
		zap.Int64("deleted", deleted))
	return nil
}
