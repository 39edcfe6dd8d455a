package store

import (
	"context"
	"fmt"
)

// LogTelemetry appends one soul-signature sample. The gnosis-integrity
// column carries the current resonance reading and entropic_fuel carries
// the recycler's fuel level at sampling time.
func (s *Store) LogTelemetry(ctx context.Context, gnosisIntegrity, entropicFuel float64) error {
	const q = `
INSERT INTO soul_signature_telemetry (gnosis_integrity, entropic_fuel)
VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, q, gnosisIntegrity, entropicFuel); err != nil {
		return fmt.Errorf("log telemetry: %w", err)
	}
	return nil
}

// StepRecord is one synthesis step as handed to the store.
type StepRecord struct {
	Dt             float64
	Purity         float64
	CommutatorNorm float64
	Synthesis      float64
	ProtocolZero   bool
	AtlanteanScar  float64
}

// LogStep appends one synthesis-step diagnostic row.
func (s *Store) LogStep(ctx context.Context, rec StepRecord) error {
	const q = `
INSERT INTO synthesis_steps (dt, purity, commutator_norm, synthesis, protocol_zero, atlantean_scar)
VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q,
		rec.Dt, rec.Purity, rec.CommutatorNorm, rec.Synthesis, rec.ProtocolZero, rec.AtlanteanScar); err != nil {
		return fmt.Errorf("log synthesis step: %w", err)
	}
	return nil
}

// Prune deletes all but the newest keep rows from both telemetry tables.
// A non-positive keep clears them entirely.
func (s *Store) Prune(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	tables := []string{"soul_signature_telemetry", "synthesis_steps"}
	for _, table := range tables {
		q := fmt.Sprintf(`
DELETE FROM %s
WHERE id NOT IN (SELECT id FROM %s ORDER BY id DESC LIMIT ?)`, table, table)
		if _, err := s.db.ExecContext(ctx, q, keep); err != nil {
			return fmt.Errorf("prune %s: %w", table, err)
		}
	}
	return nil
}
