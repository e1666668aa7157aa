package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/radflow-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.AllModels()...)
}

// EnsureImagingIndexes adds indexes and checks that struct tags cannot express.
func EnsureImagingIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_study_order_patient
		ON study (order_id, patient_id);
	`).Error; err != nil {
		return fmt.Errorf("create idx_study_order_patient: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_study_signature_signed_at
		ON study_signature (study_id, signed_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_study_signature_signed_at: %w", err)
	}

	if db.Dialector.Name() != DriverPostgres {
		return nil
	}

	// Counters never go negative; status stays within the known lifecycle.
	checks := []struct {
		name  string
		table string
		expr  string
	}{
		{"chk_study_number_of_series", "study", "number_of_series >= 0"},
		{"chk_series_number_of_instances", "series", "number_of_instances >= 0"},
		{"chk_series_number_positive", "series", "series_number >= 1"},
		{"chk_instance_number_positive", "instance", "instance_number >= 1"},
		{"chk_study_status", "study", "status IN ('SCANNED','TECHNICIAN_VERIFIED','PENDING_APPROVAL','READING','APPROVED','RESULT_PRINTED','REJECTED')"},
	}
	for _, c := range checks {
		stmt := fmt.Sprintf(`
			DO $$
			BEGIN
				IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
					ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s);
				END IF;
			END $$;
		`, c.name, c.table, c.name, c.expr)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create %s: %w", c.name, err)
		}
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureImagingIndexes(s.db); err != nil {
		s.log.Error("Imaging index migration failed", "error", err)
		return err
	}
	return nil
}
