package wifi_test

import (
	"context"
	"errors"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/webstation/webstation/core/eventloop"
	"github.com/webstation/webstation/core/wifi"
	"github.com/webstation/webstation/mocks"
	"github.com/webstation/webstation/testutils"
)

var testCreds = wifi.Credentials{SSID: "HomeAP", Password: "correct horse"}

func TestBringUp_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	events := eventloop.New()
	radio := mocks.NewMockRadio(ctrl)
	store := mocks.NewMockStore(ctrl)
	pinger := mocks.NewMockPinger(ctrl)

	info := testutils.DefaultIPInfo

	gomock.InOrder(
		radio.EXPECT().SetConfiguration(wifi.ClientConfig{
			SSID:       "HomeAP",
			Password:   "correct horse",
			AuthMethod: wifi.AuthWPA2Personal,
		}).Return(nil),
		store.EXPECT().Set(wifi.StoreKeySSID, []byte("HomeAP")).Return(nil),
		store.EXPECT().Set(wifi.StoreKeyAuth, []byte("wpa2-personal")).Return(nil),
		radio.EXPECT().Start().DoAndReturn(func() error {
			return events.Post(wifi.StartedEvent())
		}),
		radio.EXPECT().Connect().DoAndReturn(func() error {
			go func() {
				_ = events.Post(wifi.ConnectedEvent())
				_ = events.Post(wifi.GotIPEvent(info))
			}()
			return nil
		}),
		pinger.EXPECT().Probe(gomock.Any(), info.Gateway).Return(nil),
	)

	conn, err := wifi.BringUp(context.Background(), testCreds, wifi.Options{
		Radio:  radio,
		Events: events,
		Store:  store,
		Pinger: pinger,
		Logger: testutils.NewTestLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, info, conn.IPInfo())
	assert.True(t, conn.IPInfo().IP.IsValid())
	assert.Equal(t, wifi.StageDone, conn.Stage())
	assert.Equal(t, "HomeAP", conn.Config().SSID)
	assert.NotNil(t, conn.Wifi())
}

// A failing gateway probe must not change the outcome.
func TestBringUp_ProbeFailureIsAdvisory(t *testing.T) {
	ctrl := gomock.NewController(t)
	events := eventloop.New()
	pinger := mocks.NewMockPinger(ctrl)
	pinger.EXPECT().Probe(gomock.Any(), testutils.DefaultIPInfo.Gateway).Return(testutils.ErrUnreachable)

	conn, err := wifi.BringUp(context.Background(), testCreds, wifi.Options{
		Radio:  testutils.NewFakeRadio(events),
		Events: events,
		Pinger: pinger,
		Logger: testutils.NewTestLogger(),
	})
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Equal(t, testutils.DefaultIPInfo, conn.IPInfo())
}

func TestBringUp_ProbeDerivesGatewayFromSubnet(t *testing.T) {
	events := eventloop.New()
	radio := testutils.NewFakeRadio(events)
	radio.Info.Gateway = netip.Addr{}

	var probed netip.Addr
	_, err := wifi.BringUp(context.Background(), testCreds, wifi.Options{
		Radio:  radio,
		Events: events,
		Pinger: testutils.ProbeFunc(func(addr netip.Addr) error {
			probed = addr
			return nil
		}),
		Logger: testutils.NewTestLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("192.168.4.1"), probed)
}

func TestBringUp_OversizedSSIDFailsBeforeRadio(t *testing.T) {
	ctrl := gomock.NewController(t)
	// No expectations: any radio or store call fails the test.
	radio := mocks.NewMockRadio(ctrl)
	store := mocks.NewMockStore(ctrl)

	creds := wifi.Credentials{SSID: strings.Repeat("s", 33), Password: "pw"}
	conn, err := wifi.BringUp(context.Background(), creds, wifi.Options{
		Radio:  radio,
		Events: eventloop.New(),
		Store:  store,
		Logger: testutils.NewTestLogger(),
	})
	assert.Nil(t, conn)
	assert.ErrorIs(t, err, wifi.ErrInvalidCredentials)

	var stageErr *wifi.StageError
	assert.False(t, errors.As(err, &stageErr))
}

func TestBringUp_StageFailures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *testutils.FakeRadio)
		stage    wifi.Stage
		sentinel error
		contains string
	}{
		{
			name:     "Config_Rejected",
			setup:    func(r *testutils.FakeRadio) { r.ConfigErr = errors.New("bad channel") },
			stage:    wifi.StageConfiguring,
			sentinel: wifi.ErrConfig,
			contains: "bad channel",
		},
		{
			name:     "Start_Failed",
			setup:    func(r *testutils.FakeRadio) { r.StartErr = errors.New("no modem") },
			stage:    wifi.StageStarting,
			sentinel: wifi.ErrStart,
			contains: "no modem",
		},
		{
			name:     "Auth_Failed",
			setup:    func(r *testutils.FakeRadio) { r.AssocFail = wifi.ReasonAuthFail },
			stage:    wifi.StageAssociating,
			sentinel: wifi.ErrAssoc,
			contains: "authentication failed",
		},
		{
			name:     "AP_Not_Found",
			setup:    func(r *testutils.FakeRadio) { r.AssocFail = wifi.ReasonNoAPFound },
			stage:    wifi.StageAssociating,
			sentinel: wifi.ErrAssoc,
			contains: "access point not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := eventloop.New()
			radio := testutils.NewFakeRadio(events)
			tt.setup(radio)

			conn, err := wifi.BringUp(context.Background(), testCreds, wifi.Options{
				Radio:  radio,
				Events: events,
				Pinger: testutils.ProbeFunc(func(netip.Addr) error {
					t.Error("probe must not run after a failed stage")
					return nil
				}),
				Logger: testutils.NewTestLogger(),
			})
			assert.Nil(t, conn)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Contains(t, err.Error(), tt.contains)

			var stageErr *wifi.StageError
			require.True(t, errors.As(err, &stageErr))
			assert.Equal(t, tt.stage, stageErr.Stage)
		})
	}
}

func TestBringUp_AddressTimeout(t *testing.T) {
	events := eventloop.New()
	radio := testutils.NewFakeRadio(events)
	radio.NoAddress = true

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := wifi.BringUp(ctx, testCreds, wifi.Options{
		Radio:  radio,
		Events: events,
		Logger: testutils.NewTestLogger(),
	})
	assert.ErrorIs(t, err, wifi.ErrAddress)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBringUp_LinkLostBeforeAddress(t *testing.T) {
	ctrl := gomock.NewController(t)
	events := eventloop.New()
	radio := mocks.NewMockRadio(ctrl)
	radio.EXPECT().SetConfiguration(gomock.Any()).Return(nil)
	radio.EXPECT().Start().DoAndReturn(func() error { return events.Post(wifi.StartedEvent()) })
	radio.EXPECT().Connect().DoAndReturn(func() error {
		_ = events.Post(wifi.ConnectedEvent())
		return events.Post(wifi.DisconnectedEvent("HomeAP", wifi.ReasonBeaconTimeout))
	})

	_, err := wifi.BringUp(context.Background(), testCreds, wifi.Options{
		Radio:  radio,
		Events: events,
		Logger: testutils.NewTestLogger(),
	})
	assert.ErrorIs(t, err, wifi.ErrAddress)
	assert.Contains(t, err.Error(), "beacon timeout")
}

func TestBringUp_InitFailure(t *testing.T) {
	closed := eventloop.New()
	closed.Close()

	_, err := wifi.BringUp(context.Background(), testCreds, wifi.Options{
		Radio:  testutils.NewFakeRadio(closed),
		Events: closed,
		Logger: testutils.NewTestLogger(),
	})
	assert.ErrorIs(t, err, wifi.ErrInit)
	assert.ErrorIs(t, err, eventloop.ErrClosed)
}

func TestBringUp_StoreFailureIsNotFatal(t *testing.T) {
	events := eventloop.New()
	store := testutils.NewMemStore()
	store.Err = errors.New("nvs full")

	conn, err := wifi.BringUp(context.Background(), testCreds, wifi.Options{
		Radio:  testutils.NewFakeRadio(events),
		Events: events,
		Store:  store,
		Logger: testutils.NewTestLogger(),
	})
	require.NoError(t, err)
	assert.NotNil(t, conn)
}

func TestBringUp_IssuesRequestsInOrder(t *testing.T) {
	events := eventloop.New()
	radio := testutils.NewFakeRadio(events)
	store := testutils.NewMemStore()

	_, err := wifi.BringUp(context.Background(), testCreds, wifi.Options{
		Radio:  radio,
		Events: events,
		Store:  store,
		Logger: testutils.NewTestLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"configure", "start", "connect"}, radio.Calls())

	ssid, ok := store.Get(wifi.StoreKeySSID)
	require.True(t, ok)
	assert.Equal(t, "HomeAP", string(ssid))
}
