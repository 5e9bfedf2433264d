package hidsvc

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/sstallion/go-hid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions(t.TempDir())
	opts.Logger = nil
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return New(zap.NewNop(), openTestDB(t), func() time.Time { return now })
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("046d:c52b:1")
	require.NoError(t, err)
	assert.Equal(t, Address{VendorID: 0x046d, ProductID: 0xc52b, Interface: 1}, addr)
	assert.Equal(t, "046d:c52b:1", addr.String())

	_, err = ParseAddress("nonsense")
	assert.Error(t, err)
}

func TestAddressTextRoundTrip(t *testing.T) {
	addr := Address{VendorID: 0x1234, ProductID: 0xabcd, Interface: 2}
	text, err := addr.MarshalText()
	require.NoError(t, err)
	var parsed Address
	require.NoError(t, parsed.UnmarshalText(text))
	assert.Equal(t, addr, parsed)
}

func TestGenerateName(t *testing.T) {
	assert.Equal(t, "Logitech USB Receiver", generateName(hid.DeviceInfo{
		MfrStr:     "Logitech",
		ProductStr: "USB Receiver",
	}))
	assert.Equal(t, "USB Receiver", generateName(hid.DeviceInfo{ProductStr: "USB Receiver"}))
	assert.Equal(t, "046d:c52b", generateName(hid.DeviceInfo{VendorID: 0x046d, ProductID: 0xc52b}))
}

func TestPersistAndListDevices(t *testing.T) {
	s := newTestService(t)
	addr := Address{VendorID: 0x046d, ProductID: 0xc52b, Interface: 1}
	info := hid.DeviceInfo{
		VendorID:     0x046d,
		ProductID:    0xc52b,
		InterfaceNbr: 1,
		ProductStr:   "USB Receiver",
		SerialNbr:    "abc123",
		UsagePage:    0x01,
		Usage:        0x06,
	}

	require.NoError(t, s.persistDevice(addr, info))

	// not connected: the live registry is empty
	devices, err := s.ListDevices(true)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, addr, devices[0].Address)
	assert.Equal(t, "USB Receiver", devices[0].Name)
	assert.Equal(t, "abc123", devices[0].Serial)
	assert.False(t, devices[0].Connected)
	assert.False(t, devices[0].FirstSeenAt.IsZero())
	assert.Equal(t, devices[0].FirstSeenAt, devices[0].LastSeenAt)

	// connected devices only
	devices, err = s.ListDevices(false)
	require.NoError(t, err)
	assert.Empty(t, devices)

	s.devices.Store(addr, info)
	devices, err = s.ListDevices(false)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.True(t, devices[0].Connected)

	devices, err = s.ListDevices(true)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.True(t, devices[0].Connected)
}

func TestPersistDeviceKeepsFirstSeen(t *testing.T) {
	s := newTestService(t)
	addr := Address{VendorID: 1, ProductID: 2, Interface: 0}
	info := hid.DeviceInfo{VendorID: 1, ProductID: 2}

	require.NoError(t, s.persistDevice(addr, info))
	first, err := s.ListDevices(true)
	require.NoError(t, err)
	require.Len(t, first, 1)

	s.now = func() time.Time { return first[0].FirstSeenAt.Add(time.Hour) }
	require.NoError(t, s.persistDevice(addr, info))
	second, err := s.ListDevices(true)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].FirstSeenAt, second[0].FirstSeenAt)
	assert.Equal(t, first[0].FirstSeenAt.Add(time.Hour), second[0].LastSeenAt)
}

func TestSubscribePublish(t *testing.T) {
	s := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Subscribe(ctx)
	ev := Event{Type: DeviceConnected, Address: Address{VendorID: 1}, Name: "dev"}
	s.publish(ctx, ev)

	select {
	case got := <-ch:
		assert.Equal(t, ev, got)
	case <-time.After(time.Second):
		t.Fatal("expected event")
	}

	// slow subscribers are dropped, not blocked on
	for i := 0; i < 32; i++ {
		s.publish(ctx, ev)
	}
}
