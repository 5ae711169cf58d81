// Package repository persists the datavault tables into PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/annotations"
	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/vault"
)

// VaultRepository writes patient and seizure tables.
type VaultRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVaultRepository creates a new datavault repository.
func NewVaultRepository(db *sql.DB, logger *zap.Logger) *VaultRepository {
	return &VaultRepository{
		db:     db,
		logger: logger,
	}
}

// SavePatients upserts one row per patient, keyed by the patient code so a
// rebuild of the table replaces earlier runs. The whole batch commits or rolls
// back as one transaction.
func (r *VaultRepository) SavePatients(ctx context.Context, records []vault.PatientRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO patients (
			patient_num, patient_id, patient_name, patient_sex,
			start_date, end_date, num_seizures
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (patient_num) DO UPDATE SET
			patient_id = EXCLUDED.patient_id,
			patient_name = EXCLUDED.patient_name,
			patient_sex = EXCLUDED.patient_sex,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			num_seizures = EXCLUDED.num_seizures
	`

	for _, rec := range records {
		if _, err := tx.ExecContext(ctx, query,
			rec.PatientNum,
			rec.PatientID,
			rec.PatientName,
			rec.PatientSex,
			rec.StartDate,
			rec.EndDate,
			rec.NumSeizures,
		); err != nil {
			return fmt.Errorf("failed to upsert patient %s: %w", rec.PatientNum, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit patients: %w", err)
	}

	r.logger.Info("saved patient table", zap.Int("patients", len(records)))
	return nil
}

// SaveSeizures replaces every stored seizure of the covered patients with the
// freshly extracted rows. Seizure rows have no natural key (the annotators
// renumber them), so replacement is per patient, not per row.
func (r *VaultRepository) SaveSeizures(ctx context.Context, events []annotations.Event) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	seen := make(map[string]bool)
	for _, e := range events {
		if seen[e.PatientNum] {
			continue
		}
		seen[e.PatientNum] = true
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM seizures WHERE patient_num = $1`, e.PatientNum,
		); err != nil {
			return fmt.Errorf("failed to clear seizures of %s: %w", e.PatientNum, err)
		}
	}

	query := `
		INSERT INTO seizures (
			patient_num, seizure_id, seizure_type, seizure_date,
			electric_onset, clinical_onset, generalization, motor_onset, seizure_end
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, e := range events {
		if _, err := tx.ExecContext(ctx, query,
			e.PatientNum,
			e.SeizureID,
			e.Type,
			e.Date,
			e.ElectricOnset,
			e.ClinicalOnset,
			e.Generalization,
			e.MotorOnset,
			e.Offset,
		); err != nil {
			return fmt.Errorf("failed to insert seizure for %s: %w", e.PatientNum, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seizures: %w", err)
	}

	r.logger.Info("saved seizure table", zap.Int("seizures", len(events)))
	return nil
}
