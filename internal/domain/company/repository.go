package company

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for company and license persistence
type Repository interface {
	List(ctx context.Context) ([]*Company, error)
	// LatestLicense returns the license with the latest end date.
	LatestLicense(ctx context.Context, companyID uuid.UUID) (*License, error)
	// AdjustUsageBalance changes the balance and writes a transaction log row.
	AdjustUsageBalance(ctx context.Context, licenseID uuid.UUID, amount int64, comment string) error
}
