package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"waste-fleet-monitor/internal/domain"
	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/logger"
)

// InstallType is the side of the container lid a sensor is mounted on.
type InstallType string

const (
	InstallFront InstallType = "FRONT"
	InstallRear  InstallType = "REAR"
)

// NetworkType is the cellular technology of the sensor modem.
type NetworkType string

const (
	Network2G    NetworkType = "2G"
	NetworkNBIoT NetworkType = "NB_IOT"
)

const manufacturerCode = '0'

var (
	ErrUnknownInstallType = errors.New("unknown install type")
	ErrUnknownNetworkType = errors.New("unknown network type")
	ErrNoAssetHolder      = errors.New("asset holder company is not configured")
)

// SerialNumber builds BWS<install><network>-<manufacturer><yy><sequence>.
func SerialNumber(install InstallType, network NetworkType, year int, sequence int64) (string, error) {
	var i string
	switch install {
	case InstallFront:
		i = "F"
	case InstallRear:
		i = "R"
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownInstallType, install)
	}

	var n string
	switch network {
	case Network2G:
		n = "2G"
	case NetworkNBIoT:
		n = "NB"
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownNetworkType, network)
	}

	return fmt.Sprintf("BWS%s%s-%c%02d%05d", i, n, manufacturerCode, year%100, sequence), nil
}

// Onboarding turns a pending request into a sensor owned by the asset
// holder company.
type Onboarding struct {
	tx          domain.Transactor
	requests    device.OnboardingRepository
	sensors     device.SensorRepository
	assetHolder uuid.UUID
}

func NewOnboarding(tx domain.Transactor, requests device.OnboardingRepository, sensors device.SensorRepository, assetHolder uuid.UUID) *Onboarding {
	return &Onboarding{tx: tx, requests: requests, sensors: sensors, assetHolder: assetHolder}
}

// Approve creates the sensor and closes the request.
func (o *Onboarding) Approve(ctx context.Context, requestID uuid.UUID, install InstallType, network NetworkType, now time.Time) (*device.Sensor, error) {
	if o.assetHolder == uuid.Nil {
		return nil, ErrNoAssetHolder
	}

	req, err := o.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ApprovedAt != nil {
		return nil, device.ErrAlreadyApproved
	}

	serial, err := SerialNumber(install, network, now.Year(), req.Number)
	if err != nil {
		return nil, err
	}

	sensor := &device.Sensor{
		ID:               uuid.New(),
		CompanyID:        o.assetHolder,
		SerialNumber:     serial,
		HardwareIdentity: req.HardwareIdentity,
		MountType:        device.MountVertical,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = o.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := o.sensors.Create(ctx, sensor); err != nil {
			return err
		}
		return o.requests.MarkApproved(ctx, req.ID, sensor.ID)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Onboarding request approved",
		zap.String("request_id", req.ID.String()),
		zap.String("sensor_id", sensor.ID.String()),
		zap.String("serial_number", serial),
		zap.String("event", "sensor_onboarded"),
	)
	return sensor, nil
}
