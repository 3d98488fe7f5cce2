package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	occupancy "cragwatch/internal/occupancy/domain"
)

const defaultSampleTable = "occupancy_samples"

// SampleArchive persists the rolling sample window in Postgres so the
// in-memory store survives restarts. The archive is optional; the service
// runs memory-only without it.
type SampleArchive struct {
	db    *sql.DB
	table string
}

// NewSampleArchive creates an archive using the default table name.
func NewSampleArchive(db *sql.DB, opts ...ArchiveOption) *SampleArchive {
	archive := &SampleArchive{db: db, table: defaultSampleTable}
	for _, opt := range opts {
		opt(archive)
	}
	return archive
}

// ArchiveOption configures the archive.
type ArchiveOption func(*SampleArchive)

// WithTable overrides the default table name.
func WithTable(table string) ArchiveOption {
	return func(a *SampleArchive) {
		if table != "" {
			a.table = table
		}
	}
}

// EnsureSchema creates the sample table when it does not exist.
func (a *SampleArchive) EnsureSchema(ctx context.Context) error {
	if a == nil || a.db == nil {
		return errors.New("sample archive: nil db")
	}
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	recorded_at TIMESTAMPTZ PRIMARY KEY,
	lead_pct SMALLINT,
	boulder_pct SMALLINT,
	overall_pct SMALLINT,
	open_sectors TEXT NOT NULL DEFAULT ''
)`, a.table)
	_, err := a.db.ExecContext(ctx, query)
	return err
}

// Insert stores one sample. A duplicate timestamp keeps the earlier row.
func (a *SampleArchive) Insert(ctx context.Context, sample occupancy.Sample) error {
	if a == nil || a.db == nil {
		return errors.New("sample archive: nil db")
	}
	if sample.Time.IsZero() {
		return occupancy.ErrZeroTimestamp
	}

	query := fmt.Sprintf(`
INSERT INTO %s (recorded_at, lead_pct, boulder_pct, overall_pct, open_sectors)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (recorded_at) DO NOTHING`, a.table)

	_, err := a.db.ExecContext(
		ctx,
		query,
		sample.Time,
		percentValue(sample.Lead),
		percentValue(sample.Boulder),
		percentValue(sample.Overall),
		sample.OpenSectors,
	)
	return err
}

// LoadSince returns all samples at or after cutoff, oldest first.
func (a *SampleArchive) LoadSince(ctx context.Context, cutoff time.Time) ([]occupancy.Sample, error) {
	if a == nil || a.db == nil {
		return nil, errors.New("sample archive: nil db")
	}

	query := fmt.Sprintf(`
SELECT recorded_at, lead_pct, boulder_pct, open_sectors
FROM %s
WHERE recorded_at >= $1
ORDER BY recorded_at ASC`, a.table)

	rows, err := a.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []occupancy.Sample
	for rows.Next() {
		var (
			recordedAt  time.Time
			lead        sql.NullInt64
			boulder     sql.NullInt64
			openSectors string
		)
		if err := rows.Scan(&recordedAt, &lead, &boulder, &openSectors); err != nil {
			return nil, err
		}
		sample, err := occupancy.NewSample(recordedAt, percentPointer(lead), percentPointer(boulder), openSectors)
		if err != nil {
			return nil, fmt.Errorf("sample archive: corrupt row at %s: %w", recordedAt, err)
		}
		result = append(result, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// PruneBefore deletes samples older than cutoff and returns the count.
func (a *SampleArchive) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if a == nil || a.db == nil {
		return 0, errors.New("sample archive: nil db")
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE recorded_at < $1`, a.table)
	res, err := a.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func percentValue(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func percentPointer(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
