// Package fixture describes a device configuration in YAML and renders it
// into the descriptor and packed interface-info buffers the transport would
// hand the stub driver.
package fixture

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yifeimfd/usbip-win/pkg"
	"github.com/yifeimfd/usbip-win/stub/devconf"
)

// Fixture is one device configuration plus any extra alternate settings
// that can later be selected.
type Fixture struct {
	Value      uint8       `yaml:"value"`
	Handle     uint64      `yaml:"handle"`
	Attributes uint8       `yaml:"attributes"`
	MaxPower   uint8       `yaml:"max_power"`
	Interfaces []Interface `yaml:"interfaces"`
	Alternates []Interface `yaml:"alternates"`
}

// Interface is one alternate setting of one interface.
type Interface struct {
	Number    uint8  `yaml:"number"`
	Alternate uint8  `yaml:"alternate"`
	Class     uint8  `yaml:"class"`
	SubClass  uint8  `yaml:"subclass"`
	Protocol  uint8  `yaml:"protocol"`
	Handle    uint64 `yaml:"handle"`
	Pipes     []Pipe `yaml:"pipes"`
}

// Pipe is one endpoint of an interface.
type Pipe struct {
	Endpoint    uint8  `yaml:"endpoint"`
	Type        string `yaml:"type"`
	MaxPacket   uint16 `yaml:"max_packet"`
	Interval    uint8  `yaml:"interval"`
	Handle      uint64 `yaml:"handle"`
	MaxTransfer uint32 `yaml:"max_transfer"`
	Flags       uint32 `yaml:"flags"`
}

var pipeTypes = map[string]devconf.PipeType{
	"control":     devconf.PipeTypeControl,
	"isochronous": devconf.PipeTypeIsochronous,
	"iso":         devconf.PipeTypeIsochronous,
	"bulk":        devconf.PipeTypeBulk,
	"interrupt":   devconf.PipeTypeInterrupt,
	"int":         devconf.PipeTypeInterrupt,
}

// Parse decodes a fixture document.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if len(f.Interfaces) > 0xFF {
		return nil, fmt.Errorf("%d interfaces: %w", len(f.Interfaces), pkg.ErrInvalidParameter)
	}
	for _, list := range [][]Interface{f.Interfaces, f.Alternates} {
		for _, intf := range list {
			for _, p := range intf.Pipes {
				if _, err := p.pipeType(); err != nil {
					return nil, fmt.Errorf("interface %d alt %d: %w", intf.Number, intf.Alternate, err)
				}
			}
		}
	}
	return &f, nil
}

// Load reads and parses the fixture at path.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func (p Pipe) pipeType() (devconf.PipeType, error) {
	if p.Type == "" {
		return devconf.PipeTypeBulk, nil
	}
	t, ok := pipeTypes[strings.ToLower(p.Type)]
	if !ok {
		return 0, fmt.Errorf("pipe 0x%02X type %q: %w", p.Endpoint, p.Type, pkg.ErrInvalidParameter)
	}
	return t, nil
}

// Info converts the interface into a registry record.
func (i Interface) Info() *devconf.InterfaceInfo {
	info := &devconf.InterfaceInfo{
		InterfaceNumber:  i.Number,
		AlternateSetting: i.Alternate,
		Class:            i.Class,
		SubClass:         i.SubClass,
		Protocol:         i.Protocol,
		Handle:           devconf.InterfaceHandle(i.Handle),
		Pipes:            make([]devconf.PipeInfo, len(i.Pipes)),
	}
	info.Length = uint16(info.Size())
	for n, p := range i.Pipes {
		typ, _ := p.pipeType()
		info.Pipes[n] = devconf.PipeInfo{
			MaximumPacketSize:   p.MaxPacket,
			EndpointAddress:     p.Endpoint,
			Interval:            p.Interval,
			PipeType:            typ,
			Handle:              devconf.PipeHandle(p.Handle),
			MaximumTransferSize: p.MaxTransfer,
			PipeFlags:           p.Flags,
		}
	}
	return info
}

// Descriptor returns the configuration descriptor header in wire form.
func (f *Fixture) Descriptor() []byte {
	desc := devconf.ConfigurationDescriptor{
		TotalLength:        devconf.ConfigurationDescriptorSize,
		NumInterfaces:      uint8(len(f.Interfaces)),
		ConfigurationValue: f.Value,
		Attributes:         f.Attributes,
		MaxPower:           f.MaxPower,
	}
	buf := make([]byte, devconf.ConfigurationDescriptorSize)
	desc.MarshalTo(buf)
	return buf
}

// InterfaceInfos packs the default alternate setting of every interface.
func (f *Fixture) InterfaceInfos() []byte {
	var buf []byte
	for _, intf := range f.Interfaces {
		buf = devconf.AppendInterfaceInfos(buf, intf.Info())
	}
	return buf
}

// Alternate returns the packed block for interface num at alternate setting
// alt, searching Interfaces then Alternates.
func (f *Fixture) Alternate(num, alt uint8) ([]byte, error) {
	for _, list := range [][]Interface{f.Interfaces, f.Alternates} {
		for _, intf := range list {
			if intf.Number == num && intf.Alternate == alt {
				return devconf.AppendInterfaceInfos(nil, intf.Info()), nil
			}
		}
	}
	return nil, fmt.Errorf("interface %d alt %d: %w", num, alt, pkg.ErrNotFound)
}
