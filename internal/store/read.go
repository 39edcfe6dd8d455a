package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// defaultHistoryLimit caps history queries when the caller passes a
// non-positive limit.
const defaultHistoryLimit = 50

// TelemetryRow is one persisted soul-signature sample.
type TelemetryRow struct {
	ID              int64     `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	GnosisIntegrity float64   `json:"gnosis_integrity"`
	EntropicFuel    float64   `json:"entropic_fuel"`
}

// LatestTelemetry returns the most recent sample, or nil when no samples
// have been written yet.
func (s *Store) LatestTelemetry(ctx context.Context) (*TelemetryRow, error) {
	const q = `
SELECT id, timestamp, gnosis_integrity, entropic_fuel
FROM soul_signature_telemetry
ORDER BY id DESC
LIMIT 1`
	var row TelemetryRow
	err := s.db.QueryRowContext(ctx, q).Scan(&row.ID, &row.Timestamp, &row.GnosisIntegrity, &row.EntropicFuel)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest telemetry: %w", err)
	}
	return &row, nil
}

// TelemetryHistory returns up to limit samples, newest first. Rows are
// ordered by id rather than timestamp so samples written within the same
// second keep their insertion order.
func (s *Store) TelemetryHistory(ctx context.Context, limit int) ([]TelemetryRow, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	const q = `
SELECT id, timestamp, gnosis_integrity, entropic_fuel
FROM soul_signature_telemetry
ORDER BY id DESC
LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("telemetry history: %w", err)
	}
	defer rows.Close()

	out := []TelemetryRow{}
	for rows.Next() {
		var row TelemetryRow
		if err := rows.Scan(&row.ID, &row.Timestamp, &row.GnosisIntegrity, &row.EntropicFuel); err != nil {
			return nil, fmt.Errorf("scan telemetry row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("telemetry history: %w", err)
	}
	return out, nil
}

// StepRow is one persisted synthesis-step diagnostic.
type StepRow struct {
	ID             int64     `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Dt             float64   `json:"dt"`
	Purity         float64   `json:"purity"`
	CommutatorNorm float64   `json:"commutator_norm"`
	Synthesis      float64   `json:"synthesis"`
	ProtocolZero   bool      `json:"protocol_zero"`
	AtlanteanScar  float64   `json:"atlantean_scar"`
}

// StepHistory returns up to limit synthesis steps, newest first.
func (s *Store) StepHistory(ctx context.Context, limit int) ([]StepRow, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	const q = `
SELECT id, timestamp, dt, purity, commutator_norm, synthesis, protocol_zero, atlantean_scar
FROM synthesis_steps
ORDER BY id DESC
LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("step history: %w", err)
	}
	defer rows.Close()

	out := []StepRow{}
	for rows.Next() {
		var row StepRow
		if err := rows.Scan(&row.ID, &row.Timestamp, &row.Dt, &row.Purity,
			&row.CommutatorNorm, &row.Synthesis, &row.ProtocolZero, &row.AtlanteanScar); err != nil {
			return nil, fmt.Errorf("scan step row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("step history: %w", err)
	}
	return out, nil
}
