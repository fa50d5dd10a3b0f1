package trashbin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"waste-fleet-monitor/internal/domain"
	"waste-fleet-monitor/internal/domain/company"
	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/domain/job"
	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/internal/metrics"
	"waste-fleet-monitor/internal/notification"
	appErrors "waste-fleet-monitor/pkg/errors"
	"waste-fleet-monitor/pkg/utils"
)

// RoleTrashbin is the token role of an authenticated bin.
const RoleTrashbin = "trashbin"

// StatusEvaluator raises status notifications for a device state.
type StatusEvaluator interface {
	Evaluate(ctx context.Context, s notification.DeviceStatus) (int, error)
}

// TokenConfig signs bin tokens.
type TokenConfig struct {
	Secret      string
	ExpiryHours int
}

// JobStatus is a bin's report on one job.
type JobStatus struct {
	ID          uuid.UUID `json:"id" validate:"required"`
	Status      string    `json:"status" validate:"required"`
	Description string    `json:"description"`
}

// Service implements the trashbin device API.
type Service struct {
	tx        domain.Transactor
	trashbins device.TrashbinRepository
	records   device.RecordRepository
	raw       device.RawMessageRepository
	jobs      job.Repository
	companies company.Repository
	policy    StatusEvaluator
	tokens    TokenConfig
	now       func() time.Time
}

func NewService(tx domain.Transactor, trashbins device.TrashbinRepository, records device.RecordRepository,
	raw device.RawMessageRepository, jobs job.Repository, companies company.Repository, policy StatusEvaluator, tokens TokenConfig) *Service {
	return &Service{
		tx:        tx,
		trashbins: trashbins,
		records:   records,
		raw:       raw,
		jobs:      jobs,
		companies: companies,
		policy:    policy,
		tokens:    tokens,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Authenticate exchanges a bin's serial and password for a token.
func (s *Service) Authenticate(ctx context.Context, serial, password string) (string, *device.Trashbin, error) {
	bin, err := s.trashbins.GetBySerial(ctx, serial)
	if errors.Is(err, device.ErrTrashbinNotFound) {
		return "", nil, appErrors.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if bin.PasswordHash == "" || !utils.CheckPassword(bin.PasswordHash, password) {
		return "", nil, appErrors.ErrInvalidCredentials
	}

	token, err := utils.GenerateToken(bin.ID, bin.CompanyID, bin.SerialNumber, RoleTrashbin, s.tokens.Secret, s.tokens.ExpiryHours)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return token, bin, nil
}

func (s *Service) checkLicense(ctx context.Context, bin *device.Trashbin) error {
	lic, err := s.companies.LatestLicense(ctx, bin.CompanyID)
	if err != nil && !errors.Is(err, company.ErrLicenseNotFound) {
		return fmt.Errorf("failed to load license: %w", err)
	}
	if !lic.IsValid(s.now()) {
		logger.Warn("Company has invalid or missing trashbins license",
			zap.String("company_id", bin.CompanyID.String()),
			zap.String("serial", bin.SerialNumber),
		)
		return appErrors.ErrLicenseInvalid
	}
	return nil
}

// Ingest validates and stores a data packet posted by binID.
func (s *Service) Ingest(ctx context.Context, binID uuid.UUID, body []byte) error {
	if len(body) > MaxBodySize {
		return appErrors.ErrPayloadTooLarge
	}
	packet, err := ParsePacket(body)
	if err != nil {
		return err
	}

	bin, err := s.trashbins.GetByID(ctx, binID)
	if err != nil {
		return err
	}
	if bin.SerialNumber != packet.Serial {
		return appErrors.ErrForeignPacket
	}
	if packet.RecordCount() > MaxRecords {
		return appErrors.ErrTooManyRecords
	}
	if err := s.checkLicense(ctx, bin); err != nil {
		return err
	}
	metrics.MessagesReceived.WithLabelValues("http").Inc()

	now := s.now()
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.raw.Store(ctx, &device.RawMessage{
			ID:         uuid.New(),
			DeviceKind: device.KindTrashbin,
			DeviceID:   bin.ID,
			Payload:    string(body),
			Data:       packet.raw,
			CreatedAt:  now,
		}); err != nil {
			return fmt.Errorf("failed to store packet: %w", err)
		}
		return s.applyPacket(ctx, bin, packet, now)
	})
	if err != nil {
		metrics.MessagesProcessed.WithLabelValues("failed").Inc()
		return err
	}
	metrics.MessagesProcessed.WithLabelValues("processed").Inc()

	s.evaluate(ctx, bin.ID)
	return nil
}

func (s *Service) applyPacket(ctx context.Context, master *device.Trashbin, packet *Packet, now time.Time) error {
	if err := s.applyRecords(ctx, master, packet.Data, now); err != nil {
		return err
	}
	if len(packet.Bins) == 0 {
		return nil
	}

	satellites, err := s.trashbins.Satellites(ctx, master.ID)
	if err != nil {
		return fmt.Errorf("failed to load satellites: %w", err)
	}
	bySerial := make(map[string]*device.Trashbin, len(satellites))
	for _, sat := range satellites {
		bySerial[sat.SerialNumber] = sat
	}

	for _, sub := range packet.Bins {
		sat, ok := bySerial[sub.Serial]
		if !ok {
			logger.Warn("Packet references an unknown satellite",
				zap.String("master", master.SerialNumber),
				zap.String("satellite", sub.Serial),
			)
			continue
		}
		if err := s.applyRecords(ctx, sat, sub.Data, now); err != nil {
			return err
		}
	}
	return nil
}

// applyRecords stores the records of one bin and saves its snapshot. A
// master's new location is copied onto its satellites.
func (s *Service) applyRecords(ctx context.Context, bin *device.Trashbin, data []map[string]any, now time.Time) error {
	log := logger.WithDevice(string(device.KindTrashbin), bin.SerialNumber)
	errorsReset := false
	locationChanged := false

	for _, rec := range data {
		readings, unknown := decodeRecord(rec, now)
		if len(unknown) > 0 {
			log.Debug("Ignoring unknown record fields", zap.Strings("fields", unknown))
		}

		for _, r := range readings {
			if r.metric == device.MetricLocation && !bin.IsMaster {
				log.Warn("Ignoring location reported for a satellite")
				continue
			}
			if r.metric == device.MetricError && !errorsReset {
				if err := s.records.ResetActual(ctx, device.KindTrashbin, bin.ID, device.MetricError); err != nil {
					return fmt.Errorf("failed to reset error records: %w", err)
				}
				errorsReset = true
			}

			record := &device.Record{
				ID:         uuid.New(),
				DeviceKind: device.KindTrashbin,
				DeviceID:   bin.ID,
				Metric:     r.metric,
				Value:      r.value,
				Actual:     true,
				CreatedAt:  r.at,
			}

			var err error
			switch r.metric {
			case device.MetricError:
				if int(r.value) == 0 {
					continue
				}
				err = s.records.Add(ctx, record)
			case device.MetricLocation:
				lat, lng := r.latitude, r.longitude
				record.Latitude, record.Longitude = &lat, &lng
				bin.Location = &device.Location{Latitude: lat, Longitude: lng}
				locationChanged = true
				err = s.records.Append(ctx, record)
			default:
				applySnapshot(bin, r)
				err = s.records.Append(ctx, record)
			}
			if err != nil {
				return fmt.Errorf("failed to store %s record: %w", r.metric, err)
			}
		}
	}

	bin.DataUpdatedAt = now
	if err := s.trashbins.Save(ctx, bin); err != nil {
		return fmt.Errorf("failed to save trashbin: %w", err)
	}
	if locationChanged {
		return s.propagateLocation(ctx, bin)
	}
	return nil
}

func applySnapshot(bin *device.Trashbin, r reading) {
	v := int(r.value)
	switch r.metric {
	case device.MetricFullness:
		bin.Fullness = max(0, min(100, v))
	case device.MetricBattery:
		bin.Battery = v
	case device.MetricTemperature:
		bin.Temperature = v
	case device.MetricPressure:
		bin.Pressure = v
	case device.MetricHumidity:
		bin.Humidity = v
	case device.MetricAirQuality:
		bin.AirQuality = v
	case device.MetricTraffic:
		bin.Traffic = v
	}
}

func (s *Service) propagateLocation(ctx context.Context, master *device.Trashbin) error {
	satellites, err := s.trashbins.Satellites(ctx, master.ID)
	if err != nil {
		return fmt.Errorf("failed to load satellites: %w", err)
	}
	for _, sat := range satellites {
		loc := *master.Location
		sat.Location = &loc
		if err := s.trashbins.Save(ctx, sat); err != nil {
			return fmt.Errorf("failed to move satellite: %w", err)
		}
	}
	return nil
}

// evaluate runs the status policy on the committed state.
func (s *Service) evaluate(ctx context.Context, binID uuid.UUID) {
	if s.policy == nil {
		return
	}
	bin, err := s.trashbins.GetByID(ctx, binID)
	if err != nil {
		logger.Warn("Failed to reload trashbin", zap.String("trashbin_id", binID.String()), zap.Error(err))
		return
	}
	codes, err := s.records.ActiveErrorCodes(ctx, device.KindTrashbin, bin.ID)
	if err != nil {
		logger.Warn("Failed to load active errors", zap.String("trashbin_id", binID.String()), zap.Error(err))
		return
	}
	var satellites []*device.Trashbin
	if bin.IsMaster {
		if satellites, err = s.trashbins.Satellites(ctx, bin.ID); err != nil {
			logger.Warn("Failed to load satellites", zap.String("trashbin_id", binID.String()), zap.Error(err))
			return
		}
	}
	if _, err := s.policy.Evaluate(ctx, notification.TrashbinStatus(bin, codes, satellites)); err != nil {
		logger.Error("Failed to evaluate trashbin status", zap.String("trashbin_id", binID.String()), zap.Error(err))
	}
}

// PendingJobs returns the jobs waiting for binID.
func (s *Service) PendingJobs(ctx context.Context, binID uuid.UUID) ([]*job.Job, error) {
	bin, err := s.trashbins.GetByID(ctx, binID)
	if err != nil {
		return nil, err
	}
	if err := s.checkLicense(ctx, bin); err != nil {
		return nil, err
	}
	return s.jobs.ListPending(ctx, device.KindTrashbin, bin.ID)
}

// CompleteJobs records the statuses a bin reported. Every status is checked
// before anything is written; jobs of other devices are ignored.
func (s *Service) CompleteJobs(ctx context.Context, binID uuid.UUID, reports []JobStatus) error {
	bin, err := s.trashbins.GetByID(ctx, binID)
	if err != nil {
		return err
	}
	if err := s.checkLicense(ctx, bin); err != nil {
		return err
	}

	statuses := make([]job.Status, len(reports))
	for i, r := range reports {
		st, err := job.ParseStatus(r.Status)
		if err != nil {
			return fmt.Errorf("%w: %q", appErrors.ErrInvalidJobStatus, r.Status)
		}
		statuses[i] = st
	}

	now := s.now()
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for i, r := range reports {
			j, err := s.jobs.GetByID(ctx, r.ID)
			if errors.Is(err, job.ErrJobNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if j.DeviceKind != device.KindTrashbin || j.DeviceID != bin.ID {
				continue
			}
			if _, err := s.jobs.Complete(ctx, j.ID, statuses[i], r.Description, now); err != nil {
				return fmt.Errorf("failed to complete job: %w", err)
			}
		}
		return nil
	})
}
