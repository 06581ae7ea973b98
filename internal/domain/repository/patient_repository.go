package repository

import (
	"context"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	"github.com/google/uuid"
)

// PatientRepository is the patient directory
type PatientRepository interface {
	Create(ctx context.Context, patient *entity.Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Patient, error)
}

// LabTestRepository reads the test catalog
type LabTestRepository interface {
	// GetByIDs returns the active catalog items among ids; unknown ids are skipped
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.LabTest, error)
	List(ctx context.Context, category string) ([]entity.LabTest, error)
}

// DiscountRepository reads discount and coverage rates
type DiscountRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Discount, error)
	List(ctx context.Context, kind string) ([]entity.Discount, error)
}
