package database

import (
	"context"
	"fmt"

	"github.com/clinicpos/diagnostics-api/internal/application/service"
	"github.com/clinicpos/diagnostics-api/internal/config"
	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	"github.com/clinicpos/diagnostics-api/pkg/apperror"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// defaultDiscounts are the statutory patient discounts every clinic honours
var defaultDiscounts = []entity.Discount{
	{Name: "Senior Citizen", Kind: entity.DiscountKindDiscount, Rate: decimal.NewFromInt(20), IsActive: true},
	{Name: "PWD", Kind: entity.DiscountKindDiscount, Rate: decimal.NewFromInt(20), IsActive: true},
}

// SeedDefaultData creates the staff roles, the statutory discounts and, when
// configured, the first administrator. It is safe to run repeatedly.
func SeedDefaultData(ctx context.Context, db *gorm.DB, auth *service.AuthService, admin config.AdminConfig, log *zap.Logger) error {
	log.Info("seeding default data")

	for _, name := range []string{entity.RoleAdmin, entity.RoleCashier, entity.RoleLab} {
		role := entity.Role{Name: name}
		if err := db.WithContext(ctx).Where(entity.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("failed to seed role %s: %w", name, err)
		}
	}

	for _, d := range defaultDiscounts {
		discount := d
		err := db.WithContext(ctx).
			Where("name = ? AND kind = ?", discount.Name, discount.Kind).
			FirstOrCreate(&discount).Error
		if err != nil {
			return fmt.Errorf("failed to seed discount %s: %w", d.Name, err)
		}
	}

	if admin.Email == "" || admin.Password == "" {
		log.Info("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping administrator")
	} else {
		_, err := auth.CreateStaff(ctx, &service.CreateStaffInput{
			FirstName: admin.FirstName,
			LastName:  admin.LastName,
			Email:     admin.Email,
			Password:  admin.Password,
			Roles:     []string{entity.RoleAdmin},
		})
		switch {
		case err == nil:
			log.Info("administrator created", zap.String("email", admin.Email))
		case apperror.HasReason(err, apperror.ReasonConflict):
			log.Info("administrator already exists", zap.String("email", admin.Email))
		default:
			return fmt.Errorf("failed to seed administrator: %w", err)
		}
	}

	log.Info("default data seeding completed")
	return nil
}
