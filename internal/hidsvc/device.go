package hidsvc

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/jochenvg/go-udev"
	"github.com/sstallion/go-hid"
	"go.uber.org/zap"

	"github.com/hidtoolkit/hidprobe/hiddesc"
)

// descriptor fetches are capped at the hidraw descriptor size limit
const maxDescriptorSize = 4096

var hidInit sync.Once

func initHidapi() error {
	var err error
	hidInit.Do(func() {
		err = hid.Init()
	})
	return err
}

// Device is an opened HID device handle.
type Device struct {
	svc  *Service
	log  *zap.Logger
	info hid.DeviceInfo
	dev  *hid.Device
}

// Open opens the device at the given address. The address must belong to a
// device present in the last Refresh.
func (s *Service) Open(addr Address) (*Device, error) {
	if err := initHidapi(); err != nil {
		return nil, fmt.Errorf("failed to initialize hidapi: %w", err)
	}
	info, ok := s.devices.Load(addr)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, addr)
	}
	dev, err := hid.OpenPath(info.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", info.Path, err)
	}
	return &Device{
		svc:  s,
		log:  s.log.Named("device"),
		info: info,
		dev:  dev,
	}, nil
}

func (d *Device) Close() error {
	return d.dev.Close()
}

func (d *Device) Info() hid.DeviceInfo {
	return d.info
}

// ReportDescriptor fetches the raw report descriptor bytes.
func (d *Device) ReportDescriptor() ([]byte, error) {
	buf := make([]byte, maxDescriptorSize)
	n, err := d.dev.GetReportDescriptor(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to get report descriptor: %w", err)
	}
	return buf[:n], nil
}

// Decode fetches and parses the report descriptor in one step.
func (d *Device) Decode() (*hiddesc.ReportDescriptor, error) {
	raw, err := d.ReportDescriptor()
	if err != nil {
		return nil, err
	}
	return hiddesc.Parse(raw), nil
}

// FeatureReport reads the feature report with the given ID. The buffer is
// sized from the descriptor: one byte per field rounded up, summed across
// the report's feature fields, plus the leading report ID byte.
func (d *Device) FeatureReport(desc *hiddesc.ReportDescriptor, id uint8) ([]byte, error) {
	size := desc.ReportSize(id, hiddesc.FieldFeature)
	if size == 0 {
		return nil, fmt.Errorf("no feature fields under report ID %d", id)
	}
	buf := make([]byte, size+1)
	buf[0] = id
	n, err := d.dev.GetFeatureReport(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to get feature report %d: %w", id, err)
	}
	return buf[:n], nil
}

// RawName reports the kernel HID device name, the same string the hidraw
// HIDIOCGRAWNAME ioctl returns. Resolved through udev from the hidraw node
// backing the device; falls back to the hidapi product string.
func (d *Device) RawName() string {
	if dev := d.hidParent(); dev != nil {
		if name := dev.PropertyValue("HID_NAME"); name != "" {
			return name
		}
	}
	return d.info.ProductStr
}

// RawInfo reports the kernel bus type, vendor and product IDs in the
// HID_ID property format (bus:vendor:product).
func (d *Device) RawInfo() string {
	if dev := d.hidParent(); dev != nil {
		if id := dev.PropertyValue("HID_ID"); id != "" {
			return id
		}
	}
	return fmt.Sprintf("%04X:%04X", d.info.VendorID, d.info.ProductID)
}

func (d *Device) hidParent() *udev.Device {
	hidrawDev := d.svc.udev.NewDeviceFromSubsystemSysname("hidraw", filepath.Base(d.info.Path))
	if hidrawDev == nil {
		d.log.Debug("hidraw device not found in udev", zap.String("path", d.info.Path))
		return nil
	}
	return hidrawDev.Parent()
}
