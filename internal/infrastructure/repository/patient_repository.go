package repository

import (
	"context"
	"errors"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	domainRepo "github.com/clinicpos/diagnostics-api/internal/domain/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type patientRepository struct {
	db *gorm.DB
}

// NewPatientRepository creates a new patient repository
func NewPatientRepository(db *gorm.DB) domainRepo.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Create(ctx context.Context, patient *entity.Patient) error {
	return dbFromContext(ctx, r.db).Create(patient).Error
}

func (r *patientRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Patient, error) {
	var patient entity.Patient
	err := dbFromContext(ctx, r.db).First(&patient, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &patient, err
}

type labTestRepository struct {
	db *gorm.DB
}

// NewLabTestRepository creates a new test catalog repository
func NewLabTestRepository(db *gorm.DB) domainRepo.LabTestRepository {
	return &labTestRepository{db: db}
}

func (r *labTestRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.LabTest, error) {
	var tests []entity.LabTest
	if len(ids) == 0 {
		return tests, nil
	}
	err := dbFromContext(ctx, r.db).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&tests).Error
	return tests, err
}

func (r *labTestRepository) List(ctx context.Context, category string) ([]entity.LabTest, error) {
	var tests []entity.LabTest
	query := dbFromContext(ctx, r.db).Where("is_active = ?", true)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	err := query.Order("category ASC, name ASC").Find(&tests).Error
	return tests, err
}

type discountRepository struct {
	db *gorm.DB
}

// NewDiscountRepository creates a new discount repository
func NewDiscountRepository(db *gorm.DB) domainRepo.DiscountRepository {
	return &discountRepository{db: db}
}

func (r *discountRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Discount, error) {
	var discount entity.Discount
	err := dbFromContext(ctx, r.db).First(&discount, "id = ? AND is_active = ?", id, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &discount, err
}

func (r *discountRepository) List(ctx context.Context, kind string) ([]entity.Discount, error) {
	var discounts []entity.Discount
	query := dbFromContext(ctx, r.db).Where("is_active = ?", true)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	err := query.Order("name ASC").Find(&discounts).Error
	return discounts, err
}
