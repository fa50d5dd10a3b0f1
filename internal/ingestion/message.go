package ingestion

import (
	"regexp"
	"time"
)

// PowerOffPayload is what a sensor publishes right before it shuts down.
const PowerOffPayload = "Power off"

// MaxPayloadSize bounds a single inbound sensor message.
const MaxPayloadSize = 4096

var hardwareIdentityPattern = regexp.MustCompile(`sensors/([^/]+)/`)

// Message is one inbound MQTT publication.
type Message struct {
	Topic      string
	Payload    []byte
	ReceivedAt time.Time
}

// HardwareIdentity extracts the device identity from a data topic such as
// /sensors/<hwid>/data.
func HardwareIdentity(topic string) (string, bool) {
	m := hardwareIdentityPattern.FindStringSubmatch(topic)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}
