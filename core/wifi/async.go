package wifi

import (
	"context"
	"errors"
	"fmt"

	"github.com/webstation/webstation/core/eventloop"
)

// AsyncWifi pairs a Radio with an event subscription so that each request
// can be awaited until the driver reports its completion.
type AsyncWifi struct {
	radio Radio
	sub   *eventloop.Subscription
}

// Wrap subscribes to events before any request is issued, so completions
// posted by a fast driver cannot be missed.
func Wrap(radio Radio, events *eventloop.Loop) (*AsyncWifi, error) {
	if radio == nil {
		return nil, errors.New("radio is nil")
	}
	if events == nil {
		return nil, errors.New("event loop is nil")
	}
	sub, err := events.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to events: %w", err)
	}
	return &AsyncWifi{radio: radio, sub: sub}, nil
}

// Radio returns the wrapped driver.
func (w *AsyncWifi) Radio() Radio {
	return w.radio
}

// Release drops the event subscription. The wrapper must not be awaited
// afterwards.
func (w *AsyncWifi) Release() {
	w.sub.Close()
}

// SetConfiguration applies cfg synchronously.
func (w *AsyncWifi) SetConfiguration(cfg ClientConfig) error {
	return w.radio.SetConfiguration(cfg)
}

// Start requests the driver start and waits for STA_START.
func (w *AsyncWifi) Start(ctx context.Context) error {
	if err := w.radio.Start(); err != nil {
		return err
	}
	_, err := w.wait(ctx, func(ev eventloop.Event) (bool, error) {
		return isWiFi(ev, EventStaStart), nil
	})
	return err
}

// Connect requests association and waits for STA_CONNECTED. A
// STA_DISCONNECTED in the meantime is a failed attempt.
func (w *AsyncWifi) Connect(ctx context.Context) error {
	if err := w.radio.Connect(); err != nil {
		return err
	}
	_, err := w.wait(ctx, func(ev eventloop.Event) (bool, error) {
		switch {
		case isWiFi(ev, EventStaConnected):
			return true, nil
		case isWiFi(ev, EventStaDisconnected):
			return true, fmt.Errorf("disconnected: %s", disconnectReason(ev))
		}
		return false, nil
	})
	return err
}

// WaitNetifUp waits for an address assignment. Losing the link first fails.
func (w *AsyncWifi) WaitNetifUp(ctx context.Context) (IPInfo, error) {
	ev, err := w.wait(ctx, func(ev eventloop.Event) (bool, error) {
		switch {
		case ev.Base == EventBaseIP && ev.ID == EventStaGotIP:
			return true, nil
		case isWiFi(ev, EventStaDisconnected):
			return true, fmt.Errorf("link lost before address assignment: %s", disconnectReason(ev))
		}
		return false, nil
	})
	if err != nil {
		return IPInfo{}, err
	}

	info, ok := ev.Payload.(IPInfo)
	if !ok {
		return IPInfo{}, fmt.Errorf("address event carried %T, want IPInfo", ev.Payload)
	}
	if !info.IP.IsValid() || info.IP.IsUnspecified() {
		return IPInfo{}, errors.New("address event carried no address")
	}
	return info, nil
}

// wait consumes events until match reports done. Unrelated events are
// dropped.
func (w *AsyncWifi) wait(ctx context.Context, match func(eventloop.Event) (bool, error)) (eventloop.Event, error) {
	for {
		ev, err := w.sub.Next(ctx)
		if err != nil {
			return eventloop.Event{}, err
		}
		done, err := match(ev)
		if err != nil {
			return ev, err
		}
		if done {
			return ev, nil
		}
	}
}
