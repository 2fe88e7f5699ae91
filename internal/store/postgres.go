package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/carbonwatch/carbon-intensity-etl/internal/intensity"
)

const (
	defaultMaxOpenConns = 10
	defaultMaxIdleConns = 2
	defaultConnLifetime = time.Hour
	defaultPingTimeout  = 5 * time.Second
)

// Config holds the hosted database coordinates. Credentials are passed in
// explicitly so the store stays testable with injected fakes.
type Config struct {
	// URL is the Postgres URL of the hosted database.
	URL string
	// ServiceKey is the service credential. When the URL carries no
	// password the key is injected as one.
	ServiceKey string
}

// Postgres is the pgx-backed implementation of Store.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a connection pool against the hosted database and
// validates it with a ping.
func NewPostgres(cfg Config) (*Postgres, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", intensity.ErrStorage, err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping: %v", intensity.ErrStorage, err)
	}

	return &Postgres{db: db}, nil
}

func buildDSN(cfg Config) (string, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return "", errors.New("store: empty storage URL")
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return "", fmt.Errorf("store: parse storage URL: %w", err)
	}

	if cfg.ServiceKey != "" {
		user := "postgres"
		if u.User != nil {
			user = u.User.Username()
			if _, hasPassword := u.User.Password(); hasPassword {
				return u.String(), nil
			}
		}
		u.User = url.UserPassword(user, cfg.ServiceKey)
	}

	return u.String(), nil
}

// EnsureSchema creates the three tables on first run. Each keeps one row per
// settlement window, enforced by the unique recorded_at key the upserts
// conflict on.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS carbon_intensity (
		id BIGSERIAL PRIMARY KEY,
		recorded_at TIMESTAMPTZ NOT NULL UNIQUE,
		window_end TIMESTAMPTZ,
		intensity_value DOUBLE PRECISION NOT NULL,
		forecast DOUBLE PRECISION,
		intensity_band TEXT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS generation_mix (
		id BIGSERIAL PRIMARY KEY,
		recorded_at TIMESTAMPTZ NOT NULL UNIQUE,
		window_end TIMESTAMPTZ,
		mix JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS regional_intensity (
		id BIGSERIAL PRIMARY KEY,
		recorded_at TIMESTAMPTZ NOT NULL UNIQUE,
		window_end TIMESTAMPTZ,
		regions JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`

	if _, err := p.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("%w: ensure schema: %v", intensity.ErrStorage, err)
	}
	return nil
}

// UpsertReading writes one intensity row, last write wins per window.
func (p *Postgres) UpsertReading(ctx context.Context, r intensity.IntensityReading) error {
	const query = `
		INSERT INTO carbon_intensity (recorded_at, window_end, intensity_value, forecast, intensity_band, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (recorded_at) DO UPDATE SET
			window_end = EXCLUDED.window_end,
			intensity_value = EXCLUDED.intensity_value,
			forecast = EXCLUDED.forecast,
			intensity_band = EXCLUDED.intensity_band,
			updated_at = NOW()
	`
	_, err := p.db.ExecContext(ctx, query,
		r.RecordedAt, nullTime(r.WindowEnd), r.Value, r.Forecast, string(r.Band))
	if err != nil {
		return fmt.Errorf("%w: upsert reading: %v", intensity.ErrStorage, err)
	}
	return nil
}

// UpsertGeneration writes one generation-mix row.
func (p *Postgres) UpsertGeneration(ctx context.Context, g intensity.GenerationSnapshot) error {
	mix, err := json.Marshal(g.Mix)
	if err != nil {
		return fmt.Errorf("%w: encode mix: %v", intensity.ErrStorage, err)
	}

	const query = `
		INSERT INTO generation_mix (recorded_at, window_end, mix, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (recorded_at) DO UPDATE SET
			window_end = EXCLUDED.window_end,
			mix = EXCLUDED.mix,
			updated_at = NOW()
	`
	if _, err := p.db.ExecContext(ctx, query, g.RecordedAt, nullTime(g.WindowEnd), mix); err != nil {
		return fmt.Errorf("%w: upsert generation: %v", intensity.ErrStorage, err)
	}
	return nil
}

// UpsertRegional writes one regional row.
func (p *Postgres) UpsertRegional(ctx context.Context, s intensity.RegionalSnapshot) error {
	regions, err := json.Marshal(s.Regions)
	if err != nil {
		return fmt.Errorf("%w: encode regions: %v", intensity.ErrStorage, err)
	}

	const query = `
		INSERT INTO regional_intensity (recorded_at, window_end, regions, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (recorded_at) DO UPDATE SET
			window_end = EXCLUDED.window_end,
			regions = EXCLUDED.regions,
			updated_at = NOW()
	`
	if _, err := p.db.ExecContext(ctx, query, s.RecordedAt, nullTime(s.WindowEnd), regions); err != nil {
		return fmt.Errorf("%w: upsert regional: %v", intensity.ErrStorage, err)
	}
	return nil
}

// DeleteOlderThan sweeps aged rows from all tables. Each table is swept
// independently so a failure in one does not roll back the others.
func (p *Postgres) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	for _, table := range []string{"carbon_intensity", "generation_mix", "regional_intensity"} {
		result, err := p.db.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE recorded_at < $1", table), cutoff)
		if err != nil {
			return total, fmt.Errorf("%w: sweep %s: %v", intensity.ErrStorage, table, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("%w: sweep %s: %v", intensity.ErrStorage, table, err)
		}
		total += affected
	}
	return total, nil
}

// LatestReading returns the newest stored intensity row.
func (p *Postgres) LatestReading(ctx context.Context) (intensity.IntensityReading, error) {
	const query = `
		SELECT recorded_at, window_end, intensity_value, forecast, intensity_band
		FROM carbon_intensity
		ORDER BY recorded_at DESC
		LIMIT 1
	`
	var r intensity.IntensityReading
	var windowEnd sql.NullTime
	var band sql.NullString
	err := p.db.QueryRowContext(ctx, query).Scan(&r.RecordedAt, &windowEnd, &r.Value, &r.Forecast, &band)
	if errors.Is(err, sql.ErrNoRows) {
		return intensity.IntensityReading{}, ErrNotFound
	}
	if err != nil {
		return intensity.IntensityReading{}, fmt.Errorf("%w: latest reading: %v", intensity.ErrStorage, err)
	}
	if windowEnd.Valid {
		r.WindowEnd = windowEnd.Time
	}
	if band.Valid {
		r.Band = intensity.Band(band.String)
	}
	return r, nil
}

// ReadingsRange returns intensity rows between from and to inclusive,
// ordered ascending.
func (p *Postgres) ReadingsRange(ctx context.Context, from, to time.Time) ([]intensity.IntensityReading, error) {
	const query = `
		SELECT recorded_at, window_end, intensity_value, forecast, intensity_band
		FROM carbon_intensity
		WHERE recorded_at >= $1 AND recorded_at <= $2
		ORDER BY recorded_at ASC
	`
	rows, err := p.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: readings range: %v", intensity.ErrStorage, err)
	}
	defer rows.Close()

	var readings []intensity.IntensityReading
	for rows.Next() {
		var r intensity.IntensityReading
		var windowEnd sql.NullTime
		var band sql.NullString
		if err := rows.Scan(&r.RecordedAt, &windowEnd, &r.Value, &r.Forecast, &band); err != nil {
			return nil, fmt.Errorf("%w: readings range: %v", intensity.ErrStorage, err)
		}
		if windowEnd.Valid {
			r.WindowEnd = windowEnd.Time
		}
		if band.Valid {
			r.Band = intensity.Band(band.String)
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: readings range: %v", intensity.ErrStorage, err)
	}
	if len(readings) == 0 {
		return nil, ErrNotFound
	}
	return readings, nil
}

// LatestGeneration returns the newest stored generation mix.
func (p *Postgres) LatestGeneration(ctx context.Context) (intensity.GenerationSnapshot, error) {
	const query = `
		SELECT recorded_at, window_end, mix
		FROM generation_mix
		ORDER BY recorded_at DESC
		LIMIT 1
	`
	var g intensity.GenerationSnapshot
	var windowEnd sql.NullTime
	var mix []byte
	err := p.db.QueryRowContext(ctx, query).Scan(&g.RecordedAt, &windowEnd, &mix)
	if errors.Is(err, sql.ErrNoRows) {
		return intensity.GenerationSnapshot{}, ErrNotFound
	}
	if err != nil {
		return intensity.GenerationSnapshot{}, fmt.Errorf("%w: latest generation: %v", intensity.ErrStorage, err)
	}
	if windowEnd.Valid {
		g.WindowEnd = windowEnd.Time
	}
	if err := json.Unmarshal(mix, &g.Mix); err != nil {
		return intensity.GenerationSnapshot{}, fmt.Errorf("%w: decode mix: %v", intensity.ErrStorage, err)
	}
	return g, nil
}

// LatestRegional returns the newest stored regional snapshot.
func (p *Postgres) LatestRegional(ctx context.Context) (intensity.RegionalSnapshot, error) {
	const query = `
		SELECT recorded_at, window_end, regions
		FROM regional_intensity
		ORDER BY recorded_at DESC
		LIMIT 1
	`
	var s intensity.RegionalSnapshot
	var windowEnd sql.NullTime
	var regions []byte
	err := p.db.QueryRowContext(ctx, query).Scan(&s.RecordedAt, &windowEnd, &regions)
	if errors.Is(err, sql.ErrNoRows) {
		return intensity.RegionalSnapshot{}, ErrNotFound
	}
	if err != nil {
		return intensity.RegionalSnapshot{}, fmt.Errorf("%w: latest regional: %v", intensity.ErrStorage, err)
	}
	if windowEnd.Valid {
		s.WindowEnd = windowEnd.Time
	}
	if err := json.Unmarshal(regions, &s.Regions); err != nil {
		return intensity.RegionalSnapshot{}, fmt.Errorf("%w: decode regions: %v", intensity.ErrStorage, err)
	}
	return s, nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
