package device

import (
	"time"

	"github.com/google/uuid"

	domainDevice "waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/domain/job"
	"waste-fleet-monitor/internal/domain/profile"
)

type UpdateProfileRequest struct {
	Name   *string           `json:"name" validate:"omitempty,min=2,max=100"`
	Values map[string]string `json:"values" validate:"required,min=1"`
}

type EnqueueJobRequest struct {
	Type    string `json:"type" validate:"required,oneof=GET_LOCATION CALIBRATE ORIENT GET_SIM_BALANCE GET_PHONE_NUMBER UPDATE_FIRMWARE"`
	Payload string `json:"payload" validate:"omitempty,max=128"`
}

type FetchFieldsRequest struct {
	Fields []string `json:"fields" validate:"required,min=1,dive,required"`
}

type ApproveOnboardingRequest struct {
	InstallType string `json:"install_type" validate:"required,oneof=FRONT REAR"`
	NetworkType string `json:"network_type" validate:"required,oneof=2G NB_IOT"`
}

type ProfileResponse struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	Values    map[string]string `json:"values"`
	UpdatedAt time.Time         `json:"updated_at"`
	// Sensors is the number of sensors the change was sent to.
	Sensors int `json:"sensors"`
}

type JobResponse struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Payload   string    `json:"payload,omitempty"`
	Created   bool      `json:"created"`
	CreatedAt time.Time `json:"created_at"`
}

type SensorResponse struct {
	ID               uuid.UUID `json:"id"`
	CompanyID        uuid.UUID `json:"company_id"`
	SerialNumber     string    `json:"serial_number"`
	HardwareIdentity string    `json:"hardware_identity"`
	CreatedAt        time.Time `json:"created_at"`
}

func ToProfileResponse(p *profile.Profile, sensors int) *ProfileResponse {
	values := make(map[string]string, len(p.Values))
	for f, v := range p.Values {
		values[string(f)] = v
	}
	return &ProfileResponse{
		ID:        p.ID,
		Name:      p.Name,
		Values:    values,
		UpdatedAt: p.UpdatedAt,
		Sensors:   sensors,
	}
}

func ToJobResponse(j *job.Job, created bool) *JobResponse {
	status := string(j.Status)
	if j.IsPending() {
		status = "PENDING"
	}
	return &JobResponse{
		ID:        j.ID,
		Type:      string(j.Type),
		Status:    status,
		Payload:   j.Payload,
		Created:   created,
		CreatedAt: j.CreatedAt,
	}
}

func ToSensorResponse(s *domainDevice.Sensor) *SensorResponse {
	return &SensorResponse{
		ID:               s.ID,
		CompanyID:        s.CompanyID,
		SerialNumber:     s.SerialNumber,
		HardwareIdentity: s.HardwareIdentity,
		CreatedAt:        s.CreatedAt,
	}
}
