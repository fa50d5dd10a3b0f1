package telemetry

import "waste-fleet-monitor/internal/domain/device"

// ErrorCode is one entry of the device fault table.
type ErrorCode struct {
	Code  int
	Title string
}

// NoError is reported by devices when nothing is wrong.
const NoError = 0

var sensorErrorCodes = map[int]ErrorCode{
	2: {Code: 2, Title: "Fire detected"},
}

var trashbinErrorCodes = map[int]ErrorCode{
	1:  {Code: 1, Title: "Door 1 is open"},
	2:  {Code: 2, Title: "Door 2 is open"},
	3:  {Code: 3, Title: "Door 3 is open"},
	4:  {Code: 4, Title: "Door 4 is open"},
	5:  {Code: 5, Title: "Door 5 is open"},
	6:  {Code: 6, Title: "Trash receiver is blocked"},
	8:  {Code: 8, Title: "Fire detected in the compartment"},
	9:  {Code: 9, Title: "Fire detected in the receiver"},
	18: {Code: 18, Title: "Low battery"},
	24: {Code: 24, Title: "Vandalism detected"},
}

// LookupErrorCode resolves a fault code for a device family.
func LookupErrorCode(kind device.Kind, code int) (ErrorCode, bool) {
	table := sensorErrorCodes
	if kind == device.KindTrashbin {
		table = trashbinErrorCodes
	}
	ec, ok := table[code]
	return ec, ok
}
