package wifi

import (
	"fmt"

	"github.com/webstation/webstation/core/eventloop"
)

// Event bases posted by wireless drivers.
const (
	EventBaseWiFi = "WIFI_EVENT"
	EventBaseIP   = "IP_EVENT"
)

// WIFI_EVENT ids.
const (
	EventStaStart        int32 = 2
	EventStaStop         int32 = 3
	EventStaConnected    int32 = 4
	EventStaDisconnected int32 = 5
)

// IP_EVENT ids.
const (
	EventStaGotIP  int32 = 0
	EventStaLostIP int32 = 1
)

// DisconnectReason explains a STA_DISCONNECTED event.
type DisconnectReason uint16

const (
	ReasonUnspecified      DisconnectReason = 1
	ReasonBeaconTimeout    DisconnectReason = 200
	ReasonNoAPFound        DisconnectReason = 201
	ReasonAuthFail         DisconnectReason = 202
	ReasonAssocFail        DisconnectReason = 203
	ReasonHandshakeTimeout DisconnectReason = 204
	ReasonConnectionFail   DisconnectReason = 205
)

func (r DisconnectReason) String() string {
	switch r {
	case ReasonUnspecified:
		return "unspecified"
	case ReasonBeaconTimeout:
		return "beacon timeout"
	case ReasonNoAPFound:
		return "access point not found"
	case ReasonAuthFail:
		return "authentication failed"
	case ReasonAssocFail:
		return "association failed"
	case ReasonHandshakeTimeout:
		return "handshake timeout"
	case ReasonConnectionFail:
		return "connection failed"
	default:
		return fmt.Sprintf("reason %d", uint16(r))
	}
}

// Disconnected is the payload of a STA_DISCONNECTED event.
type Disconnected struct {
	SSID   string
	Reason DisconnectReason
}

// StartedEvent reports that the driver finished starting.
func StartedEvent() eventloop.Event {
	return eventloop.Event{Base: EventBaseWiFi, ID: EventStaStart}
}

// ConnectedEvent reports a completed association.
func ConnectedEvent() eventloop.Event {
	return eventloop.Event{Base: EventBaseWiFi, ID: EventStaConnected}
}

// DisconnectedEvent reports a failed or dropped association.
func DisconnectedEvent(ssid string, reason DisconnectReason) eventloop.Event {
	return eventloop.Event{
		Base:    EventBaseWiFi,
		ID:      EventStaDisconnected,
		Payload: Disconnected{SSID: ssid, Reason: reason},
	}
}

// GotIPEvent reports an address assignment.
func GotIPEvent(info IPInfo) eventloop.Event {
	return eventloop.Event{Base: EventBaseIP, ID: EventStaGotIP, Payload: info}
}

func isWiFi(ev eventloop.Event, id int32) bool {
	return ev.Base == EventBaseWiFi && ev.ID == id
}

func disconnectReason(ev eventloop.Event) DisconnectReason {
	if d, ok := ev.Payload.(Disconnected); ok {
		return d.Reason
	}
	return ReasonUnspecified
}
