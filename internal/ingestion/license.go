package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"waste-fleet-monitor/internal/domain/company"
	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/logger"
	appErrors "waste-fleet-monitor/pkg/errors"
)

// UsageWithdrawalComment is written to the license log on each daily debit.
const UsageWithdrawalComment = "Automatic usage balance withdrawal"

// ErrLicenseInvalid is returned after a company's devices were disabled.
var ErrLicenseInvalid = appErrors.ErrLicenseInvalid

// LicenseService gates ingestion on a valid company license and charges
// daily sensor usage. The asset holder company owns unassigned stock and
// is never charged or blocked.
type LicenseService struct {
	companies   company.Repository
	sensors     device.SensorRepository
	trashbins   device.TrashbinRepository
	assetHolder uuid.UUID
}

func NewLicenseService(companies company.Repository, sensors device.SensorRepository, trashbins device.TrashbinRepository, assetHolder uuid.UUID) *LicenseService {
	return &LicenseService{
		companies:   companies,
		sensors:     sensors,
		trashbins:   trashbins,
		assetHolder: assetHolder,
	}
}

// IsAssetHolder reports whether companyID is the stock-holding company.
func (s *LicenseService) IsAssetHolder(companyID uuid.UUID) bool {
	return s.assetHolder != uuid.Nil && companyID == s.assetHolder
}

// Check returns ErrLicenseInvalid after disabling every device of a company
// whose latest license does not cover today.
func (s *LicenseService) Check(ctx context.Context, companyID uuid.UUID, now time.Time) error {
	if s.IsAssetHolder(companyID) {
		return nil
	}

	lic, err := s.companies.LatestLicense(ctx, companyID)
	if err != nil && !errors.Is(err, company.ErrLicenseNotFound) {
		return fmt.Errorf("failed to load license: %w", err)
	}
	if lic.IsValid(now) {
		return nil
	}

	sensors, err := s.sensors.DisableByCompany(ctx, companyID)
	if err != nil {
		return fmt.Errorf("failed to disable sensors: %w", err)
	}
	var bins int64
	if s.trashbins != nil {
		if bins, err = s.trashbins.DisableByCompany(ctx, companyID); err != nil {
			return fmt.Errorf("failed to disable trashbins: %w", err)
		}
	}

	logger.Warn("Company license invalid, devices disabled",
		zap.String("company_id", companyID.String()),
		zap.Int64("sensors", sensors),
		zap.Int64("trashbins", bins),
		zap.String("event", "license_invalid"),
	)
	return fmt.Errorf("%w: company %s", ErrLicenseInvalid, companyID)
}

// WithdrawDailyUsage debits one unit per active sensor from every company
// holding a valid license. It returns the number of companies charged.
func (s *LicenseService) WithdrawDailyUsage(ctx context.Context, now time.Time) (int, error) {
	counts, err := s.sensors.CountActiveByCompany(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count active sensors: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	charged := 0
	for _, id := range ids {
		active := counts[id]
		if active <= 0 || s.IsAssetHolder(id) {
			continue
		}

		lic, err := s.companies.LatestLicense(ctx, id)
		if errors.Is(err, company.ErrLicenseNotFound) {
			logger.Warn("Company has active sensors but no license", zap.String("company_id", id.String()))
			continue
		}
		if err != nil {
			return charged, fmt.Errorf("failed to load license for company %s: %w", id, err)
		}
		if !lic.IsValid(now) {
			continue
		}

		if err := s.companies.AdjustUsageBalance(ctx, lic.ID, -active, UsageWithdrawalComment); err != nil {
			return charged, fmt.Errorf("failed to withdraw usage for company %s: %w", id, err)
		}
		charged++

		logger.Info("Usage balance withdrawn",
			zap.String("company_id", id.String()),
			zap.Int64("sensors", active),
			zap.String("event", "usage_withdrawn"),
		)
	}

	return charged, nil
}
