package events

import (
	"fmt"
	"strconv"
	"strings"
)

// Wire format for notification outbox records:
//
//	<EventName>:<id>
//	<EventName>:<id>#<secondary>
//
// e.g. "AppointmentBookedEvent:42" or "AppointmentCanceledEvent:7#AB12345".
// The secondary field carries context that survives the source record,
// such as the appointment number of a cancelled appointment.

// EncodeWire builds the outbox wire string for an event.
func EncodeWire(eventName string, id int64, secondary string) string {
	if secondary == "" {
		return fmt.Sprintf("%s:%d", eventName, id)
	}
	return fmt.Sprintf("%s:%d#%s", eventName, id, secondary)
}

// DecodedWire is the parsed form of an outbox wire string.
type DecodedWire struct {
	EventName string
	ID        int64
	Secondary string
}

// DecodeWire parses an outbox wire string produced by EncodeWire.
func DecodeWire(raw string) (DecodedWire, error) {
	name, rest, ok := strings.Cut(raw, ":")
	if !ok || name == "" || rest == "" {
		return DecodedWire{}, fmt.Errorf("malformed event string %q", raw)
	}

	idPart, secondary, _ := strings.Cut(rest, "#")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return DecodedWire{}, fmt.Errorf("malformed event id in %q: %w", raw, err)
	}

	return DecodedWire{EventName: name, ID: id, Secondary: secondary}, nil
}
