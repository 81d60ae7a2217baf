package stub

import (
	"fmt"
	"sync"

	"github.com/yifeimfd/usbip-win/pkg"
	"github.com/yifeimfd/usbip-win/stub/devconf"
)

// Device is the stub side of one exported USB device. It owns the registry
// of the active configuration and serializes configuration changes against
// the lookups issued while dispatching I/O.
type Device struct {
	BusID string

	mutex   sync.RWMutex
	devconf *devconf.Devconf
	pool    devconf.Pool
}

// DeviceOption configures a Device.
type DeviceOption func(*Device)

// WithPool charges configuration registries to p.
func WithPool(p devconf.Pool) DeviceOption {
	return func(d *Device) {
		d.pool = p
	}
}

// NewDevice returns an unconfigured stub device.
func NewDevice(busID string, opts ...DeviceOption) *Device {
	d := &Device{BusID: busID, pool: devconf.HeapPool{}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SelectConfiguration handles a completed SELECT_CONFIGURATION. descData is
// the configuration descriptor returned by the device and infos the packed
// interface-info blocks the transport filled in.
//
// Any previous configuration is torn down first, so a failure leaves the
// device unconfigured.
func (d *Device) SelectConfiguration(descData []byte, handle devconf.ConfigurationHandle, infos []byte) error {
	var desc devconf.ConfigurationDescriptor
	if err := devconf.ParseConfigurationDescriptor(descData, &desc); err != nil {
		pkg.LogError(pkg.ComponentStub, "select configuration: bad descriptor",
			"busid", d.BusID,
			"error", err)
		return fmt.Errorf("configuration descriptor: %w", err)
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.devconf.Destroy()
	d.devconf = nil

	dc, err := devconf.Create(&desc, handle, infos, devconf.WithPool(d.pool))
	if err != nil {
		pkg.LogError(pkg.ComponentStub, "select configuration failed",
			"busid", d.BusID,
			"config", desc.ConfigurationValue,
			"error", err)
		return err
	}
	d.devconf = dc

	pkg.LogInfo(pkg.ComponentStub, "configuration selected",
		"busid", d.BusID,
		"id", dc.ID,
		"config", dc.ConfigurationValue,
		"interfaces", dc.NumInterfaces())
	return nil
}

// SelectInterface handles a completed SELECT_INTERFACE carrying one packed
// interface-info block.
func (d *Device) SelectInterface(block []byte) error {
	var info devconf.InterfaceInfo
	if err := devconf.ParseInterfaceInfo(block, &info); err != nil {
		pkg.LogError(pkg.ComponentStub, "select interface: bad interface info",
			"busid", d.BusID,
			"error", err)
		return err
	}
	return d.UpdateInterface(&info)
}

// UpdateInterface replaces the stored alternate setting of
// info.InterfaceNumber.
func (d *Device) UpdateInterface(info *devconf.InterfaceInfo) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.devconf == nil {
		return pkg.ErrNotConfigured
	}
	if err := d.devconf.Update(info); err != nil {
		return err
	}
	pkg.LogInfo(pkg.ComponentStub, "interface selected",
		"busid", d.BusID,
		"interface", info.InterfaceNumber,
		"alt", info.AlternateSetting)
	return nil
}

// Deconfigure tears down the active configuration, if any.
func (d *Device) Deconfigure() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.devconf == nil {
		return
	}
	pkg.LogInfo(pkg.ComponentStub, "configuration released",
		"busid", d.BusID,
		"id", d.devconf.ID,
		"config", d.devconf.ConfigurationValue)
	d.devconf.Destroy()
	d.devconf = nil
}

// Configured reports whether a configuration is active.
func (d *Device) Configured() bool {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.devconf != nil
}

// ConfigurationValue returns the active configuration value.
func (d *Device) ConfigurationValue() (uint8, bool) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	if d.devconf == nil {
		return 0, false
	}
	return d.devconf.ConfigurationValue, true
}

// ConfigurationHandle returns the transport handle of the active
// configuration.
func (d *Device) ConfigurationHandle() (devconf.ConfigurationHandle, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	if d.devconf == nil {
		return 0, pkg.ErrNotConfigured
	}
	return d.devconf.Handle, nil
}

// Interface returns a copy of the active alternate setting of interface num.
func (d *Device) Interface(num uint8) (*devconf.InterfaceInfo, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	if d.devconf == nil {
		return nil, pkg.ErrNotConfigured
	}
	info := d.devconf.FindInterface(num)
	if info == nil {
		return nil, fmt.Errorf("interface %d: %w", num, pkg.ErrNotFound)
	}
	return info.Clone(), nil
}

// Pipe returns a copy of the pipe with the given endpoint address. It is the
// lookup used to route a transfer request to its pipe handle.
func (d *Device) Pipe(epaddr uint8) (devconf.PipeInfo, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	if d.devconf == nil {
		return devconf.PipeInfo{}, pkg.ErrNotConfigured
	}
	pipe := d.devconf.FindPipe(epaddr)
	if pipe == nil {
		pkg.LogWarn(pkg.ComponentStub, "no pipe for endpoint",
			"busid", d.BusID,
			"epaddr", fmt.Sprintf("0x%02X", epaddr))
		return devconf.PipeInfo{}, fmt.Errorf("endpoint 0x%02X: %w", epaddr, pkg.ErrInvalidEndpoint)
	}
	return *pipe, nil
}

// Interfaces returns copies of every interface of the active configuration.
func (d *Device) Interfaces() ([]*devconf.InterfaceInfo, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	if d.devconf == nil {
		return nil, pkg.ErrNotConfigured
	}
	stored := d.devconf.Interfaces()
	out := make([]*devconf.InterfaceInfo, len(stored))
	for i, info := range stored {
		out[i] = info.Clone()
	}
	return out, nil
}

// View runs fn with the active registry while holding the read lock. fn may
// use borrowed lookup results but must not retain them or call back into d.
func (d *Device) View(fn func(dc *devconf.Devconf)) error {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	if d.devconf == nil {
		return pkg.ErrNotConfigured
	}
	fn(d.devconf)
	return nil
}
