package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"waste-fleet-monitor/internal/domain/company"
	"waste-fleet-monitor/internal/infrastructure/database/postgres/models"
)

type CompanyRepository struct {
	db *DB
}

func NewCompanyRepository(db *DB) company.Repository {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) List(ctx context.Context) ([]*company.Company, error) {
	var dbModels []models.CompanyModel
	if err := r.db.conn(ctx).Order("name").Find(&dbModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	companies := make([]*company.Company, len(dbModels))
	for i, m := range dbModels {
		companies[i] = &company.Company{ID: m.ID, Name: m.Name}
	}
	return companies, nil
}

func (r *CompanyRepository) LatestLicense(ctx context.Context, companyID uuid.UUID) (*company.License, error) {
	var dbModel models.LicenseModel
	err := r.db.conn(ctx).
		Where("company_id = ?", companyID).
		Order(`"end" DESC`).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, company.ErrLicenseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get license: %w", err)
	}

	return &company.License{
		ID:           dbModel.ID,
		CompanyID:    dbModel.CompanyID,
		Begin:        dbModel.Begin,
		End:          dbModel.End,
		UsageBalance: dbModel.UsageBalance,
	}, nil
}

func (r *CompanyRepository) AdjustUsageBalance(ctx context.Context, licenseID uuid.UUID, amount int64, comment string) error {
	return r.db.WithinTransaction(ctx, func(ctx context.Context) error {
		result := r.db.conn(ctx).
			Model(&models.LicenseModel{}).
			Where("id = ?", licenseID).
			Update("usage_balance", gorm.Expr("usage_balance + ?", amount))
		if result.Error != nil {
			return fmt.Errorf("failed to adjust usage balance: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return company.ErrLicenseNotFound
		}

		entry := &models.LicenseTransactionModel{
			ID:        uuid.New(),
			LicenseID: licenseID,
			Amount:    amount,
			Comment:   comment,
			CreatedAt: time.Now().UTC(),
		}
		if err := r.db.conn(ctx).Create(entry).Error; err != nil {
			return fmt.Errorf("failed to log license transaction: %w", err)
		}
		return nil
	})
}
