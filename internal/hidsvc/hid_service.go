// Package hidsvc discovers HID devices and fetches their report
// descriptors. It wraps the hidapi hidraw backend and udev, keeps a
// persistent registry of every device it has seen, and publishes hotplug
// events while running.
package hidsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/fsnotify/fsnotify"
	"github.com/jochenvg/go-udev"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sstallion/go-hid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrDeviceNotFound = errors.New("device not found")

var defaultServiceOptions = serviceOptions{
	pollInterval: 1 * time.Second,
}

type serviceOptions struct {
	pollInterval time.Duration
}

type Option func(*serviceOptions)

func WithPollInterval(d time.Duration) Option {
	return func(o *serviceOptions) {
		o.pollInterval = d
	}
}

// Address identifies a HID interface by vendor ID, product ID and USB
// interface number.
type Address struct {
	VendorID  uint16
	ProductID uint16
	Interface int
}

func (a Address) String() string {
	return fmt.Sprintf("%04x:%04x:%d", a.VendorID, a.ProductID, a.Interface)
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(b []byte) error {
	parsed, err := ParseAddress(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func ParseAddress(s string) (Address, error) {
	var addr Address
	_, err := fmt.Sscanf(s, "%04x:%04x:%d", &addr.VendorID, &addr.ProductID, &addr.Interface)
	if err != nil {
		return Address{}, fmt.Errorf("invalid device address %q: %w", s, err)
	}
	return addr, nil
}

// DeviceInfo is the persisted registry entry for a device. Connected is
// derived from the live enumeration, not stored.
type DeviceInfo struct {
	Address     Address   `json:"address"`
	Name        string    `json:"name"`
	Serial      string    `json:"serial,omitempty"`
	UsagePage   uint16    `json:"usagePage"`
	Usage       uint16    `json:"usage"`
	FirstSeenAt time.Time `json:"firstSeenAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
	Connected   bool      `json:"connected"`
}

type EventType uint8

const (
	DeviceConnected EventType = iota
	DeviceDisconnected
)

type Event struct {
	Type    EventType
	Address Address
	Name    string
}

// Service tracks connected HID devices. One-shot consumers call Refresh
// and then ListDevices or Open; long-running consumers call Start, which
// keeps the registry fresh via a /dev watch and a poll ticker.
type Service struct {
	log     *zap.Logger
	db      *badger.DB
	options serviceOptions
	now     func() time.Time

	udev        *udev.Udev
	devices     *xsync.MapOf[Address, hid.DeviceInfo]
	subscribers *xsync.MapOf[chan Event, struct{}]

	ready chan struct{}
}

func New(log *zap.Logger, db *badger.DB, now func() time.Time, opts ...Option) *Service {
	options := defaultServiceOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Service{
		log:         log,
		db:          db,
		options:     options,
		now:         now,
		udev:        &udev.Udev{},
		devices:     xsync.NewMapOf[Address, hid.DeviceInfo](),
		subscribers: xsync.NewMapOf[chan Event, struct{}](),
		ready:       make(chan struct{}),
	}
}

func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Refresh synchronizes the registry with the devices currently present.
func (s *Service) Refresh(ctx context.Context) error {
	if err := initHidapi(); err != nil {
		return fmt.Errorf("failed to initialize hidapi: %w", err)
	}
	newDevices, err := enumerateDevices()
	if err != nil {
		return err
	}
	var events []Event
	s.devices.Range(func(addr Address, dev hid.DeviceInfo) bool {
		if _, ok := newDevices[addr]; !ok {
			s.devices.Delete(addr)
			events = append(events, Event{Type: DeviceDisconnected, Address: addr, Name: generateName(dev)})
		} else {
			delete(newDevices, addr)
		}
		return true
	})
	for addr, dev := range newDevices {
		s.devices.Store(addr, dev)
		if err := s.persistDevice(addr, dev); err != nil {
			s.log.Error("failed to persist device", zap.Stringer("addr", addr), zap.Error(err))
		}
		events = append(events, Event{Type: DeviceConnected, Address: addr, Name: generateName(dev)})
	}
	for _, ev := range events {
		s.publish(ctx, ev)
	}
	return nil
}

// Start runs the hotplug loop until the context is canceled. The registry
// is refreshed on hidraw node churn in /dev and on a poll ticker as a
// fallback for events the watch misses.
func (s *Service) Start(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		return fmt.Errorf("initial device scan failed: %w", err)
	}
	close(s.ready)
	s.log.Info("HID service started", zap.Duration("pollInterval", s.options.pollInterval))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.watchDevNodes(ctx)
	})
	g.Go(func() error {
		return s.pollDevices(ctx)
	})
	return g.Wait()
}

func (s *Service) watchDevNodes(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add("/dev"); err != nil {
		return fmt.Errorf("failed to watch /dev: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(filepath.Base(event.Name), "hidraw") {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
				continue
			}
			s.log.Debug("hidraw node changed", zap.String("node", event.Name), zap.Stringer("op", event.Op))
			if err := s.Refresh(ctx); err != nil {
				s.log.Error("failed to refresh devices", zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Error("watcher error", zap.Error(err))
		}
	}
}

func (s *Service) pollDevices(ctx context.Context) error {
	ticker := time.NewTicker(s.options.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.log.Error("failed to refresh devices", zap.Error(err))
			}
		}
	}
}

// Subscribe registers for hotplug events until the context is canceled.
func (s *Service) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)
	s.subscribers.Store(ch, struct{}{})
	go func() {
		<-ctx.Done()
		s.subscribers.Delete(ch)
	}()
	return ch
}

func (s *Service) publish(ctx context.Context, ev Event) {
	s.subscribers.Range(func(ch chan Event, _ struct{}) bool {
		select {
		case ch <- ev:
		case <-ctx.Done():
			return false
		default:
			// slow subscriber, drop rather than stall the refresh loop
		}
		return true
	})
}

func deviceKey(addr Address) []byte {
	return []byte(fmt.Sprintf("hid/devices/%s", addr))
}

func (s *Service) persistDevice(addr Address, info hid.DeviceInfo) error {
	now := s.now()
	return s.db.Update(func(txn *badger.Txn) error {
		key := deviceKey(addr)
		var dev DeviceInfo
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			err = item.Value(func(val []byte) error {
				return json.Unmarshal(val, &dev)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal device: %w", err)
			}
		}
		dev.Address = addr
		dev.Name = generateName(info)
		dev.Serial = info.SerialNbr
		dev.UsagePage = info.UsagePage
		dev.Usage = info.Usage
		if dev.FirstSeenAt.IsZero() {
			dev.FirstSeenAt = now
		}
		dev.LastSeenAt = now
		b, err := json.Marshal(dev)
		if err != nil {
			return fmt.Errorf("failed to marshal device: %w", err)
		}
		return txn.Set(key, b)
	})
}

// ListDevices returns the connected devices, or with all set the whole
// persisted registry including devices seen in earlier runs.
func (s *Service) ListDevices(all bool) ([]DeviceInfo, error) {
	var devices []DeviceInfo
	if all {
		err := s.db.View(func(txn *badger.Txn) error {
			iter := txn.NewIterator(badger.DefaultIteratorOptions)
			defer iter.Close()
			prefix := []byte("hid/devices/")
			for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
				var dev DeviceInfo
				err := iter.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &dev)
				})
				if err != nil {
					return err
				}
				_, dev.Connected = s.devices.Load(dev.Address)
				devices = append(devices, dev)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list devices: %w", err)
		}
	} else {
		s.devices.Range(func(addr Address, info hid.DeviceInfo) bool {
			devices = append(devices, DeviceInfo{
				Address:   addr,
				Name:      generateName(info),
				Serial:    info.SerialNbr,
				UsagePage: info.UsagePage,
				Usage:     info.Usage,
				Connected: true,
			})
			return true
		})
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Address.String() < devices[j].Address.String()
	})
	return devices, nil
}

func generateName(info hid.DeviceInfo) string {
	var parts []string
	if info.MfrStr != "" {
		parts = append(parts, info.MfrStr)
	}
	if info.ProductStr != "" {
		parts = append(parts, info.ProductStr)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%04x:%04x", info.VendorID, info.ProductID)
	}
	return strings.Join(parts, " ")
}

func enumerateDevices() (map[Address]hid.DeviceInfo, error) {
	devices := make(map[Address]hid.DeviceInfo)
	err := hid.Enumerate(hid.VendorIDAny, hid.ProductIDAny, func(info *hid.DeviceInfo) error {
		addr := Address{
			VendorID:  info.VendorID,
			ProductID: info.ProductID,
			Interface: info.InterfaceNbr,
		}
		devices[addr] = *info
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	return devices, nil
}
