package job

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"waste-fleet-monitor/internal/domain/device"
)

type Type string

const (
	TypeUpdateConfig   Type = "UPDATE_CONFIG"
	TypeFetchConfig    Type = "FETCH_CONFIG"
	TypeGetLocation    Type = "GET_LOCATION"
	TypeUpdateFirmware Type = "UPDATE_FIRMWARE"
	TypeCalibrate      Type = "CALIBRATE"
	TypeOrient         Type = "ORIENT"
	TypeGetSimBalance  Type = "GET_SIM_BALANCE"
	TypeGetPhoneNumber Type = "GET_PHONE_NUMBER"

	TypePressControl     Type = "PRESS_CONTROL"
	TypeDownloadFirmware Type = "DOWNLOAD_FIRMWARE"
	TypeDownloadAd       Type = "DOWNLOAD_AD"
	TypeConnectToVPN     Type = "CONNECT_TO_VPN"
)

// Status of a job. The empty status means pending.
type Status string

const (
	StatusPending Status = ""
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// ParseStatus accepts the terminal statuses in upper or lower case.
func ParseStatus(s string) (Status, error) {
	switch s {
	case string(StatusSuccess), strings.ToLower(string(StatusSuccess)):
		return StatusSuccess, nil
	case string(StatusFailure), strings.ToLower(string(StatusFailure)):
		return StatusFailure, nil
	}
	return StatusPending, ErrInvalidStatus
}

// Job is one command unit delivered to a device.
type Job struct {
	ID          uuid.UUID
	DeviceKind  device.Kind
	DeviceID    uuid.UUID
	Type        Type
	Status      Status
	Payload     string
	Result      string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

func (j *Job) IsPending() bool {
	return j.Status == StatusPending
}
