package devconf

import (
	"fmt"
	"sync"

	"github.com/yifeimfd/usbip-win/pkg"
)

func newInfo(num, alt uint8, pipes ...PipeInfo) *InterfaceInfo {
	if pipes == nil {
		pipes = []PipeInfo{}
	}
	return &InterfaceInfo{
		Length:           uint16(InterfaceInfoSize(len(pipes))),
		InterfaceNumber:  num,
		AlternateSetting: alt,
		Class:            0xFF,
		Handle:           InterfaceHandle(0x1000 + uint64(num)<<8 + uint64(alt)),
		Pipes:            pipes,
	}
}

func newPipe(epaddr uint8, typ PipeType) PipeInfo {
	return PipeInfo{
		MaximumPacketSize:   512,
		EndpointAddress:     epaddr,
		PipeType:            typ,
		Handle:              PipeHandle(0xABCD0000 + uint64(epaddr)),
		MaximumTransferSize: 4096,
	}
}

func configDesc(value uint8, infos []*InterfaceInfo) *ConfigurationDescriptor {
	return &ConfigurationDescriptor{
		Length:             ConfigurationDescriptorSize,
		DescriptorType:     DescriptorTypeConfiguration,
		NumInterfaces:      uint8(len(infos)),
		ConfigurationValue: value,
	}
}

// scenarioInfos is a two-interface configuration: interface 0 with an IN
// pipe at 0x81 and interface 1 with an OUT pipe at 0x02.
func scenarioInfos() []*InterfaceInfo {
	return []*InterfaceInfo{
		newInfo(0, 0, newPipe(0x81, PipeTypeBulk)),
		newInfo(1, 0, newPipe(0x02, PipeTypeBulk)),
	}
}

type poolEvent struct {
	op   string
	size int
}

func (e poolEvent) String() string { return fmt.Sprintf("%s(%d)", e.op, e.size) }

// trackingPool records every Alloc and Free and refuses the Alloc whose
// zero-based ordinal equals failAt.
type trackingPool struct {
	mu       sync.Mutex
	failAt   int
	allocs   int
	inUse    int
	events   []poolEvent
	underrun bool
}

func newTrackingPool(failAt int) *trackingPool {
	return &trackingPool{failAt: failAt}
}

func (p *trackingPool) Alloc(size int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.allocs
	p.allocs++
	if n == p.failAt {
		p.events = append(p.events, poolEvent{"fail", size})
		return pkg.ErrNoMemory
	}
	p.inUse += size
	p.events = append(p.events, poolEvent{"alloc", size})
	return nil
}

func (p *trackingPool) Free(size int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inUse -= size
	if p.inUse < 0 {
		p.underrun = true
	}
	p.events = append(p.events, poolEvent{"free", size})
}

func (p *trackingPool) snapshot() []poolEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]poolEvent(nil), p.events...)
}
