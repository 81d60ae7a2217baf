package devconf

import (
	"encoding/binary"
	"fmt"

	"github.com/yifeimfd/usbip-win/pkg"
)

// Packed interface-info layout. All multi-byte fields are little-endian and
// there is no padding between fields, pipes, or consecutive blocks.
//
//	interface header (20 bytes)
//	  0  Length               uint16
//	  2  InterfaceNumber      uint8
//	  3  AlternateSetting     uint8
//	  4  Class                uint8
//	  5  SubClass             uint8
//	  6  Protocol             uint8
//	  7  Reserved             uint8
//	  8  InterfaceHandle      uint64
//	  16 NumberOfPipes        uint32
//	pipe (24 bytes, NumberOfPipes times)
//	  0  MaximumPacketSize    uint16
//	  2  EndpointAddress      uint8
//	  3  Interval             uint8
//	  4  PipeType             uint32
//	  8  PipeHandle           uint64
//	  16 MaximumTransferSize  uint32
//	  20 PipeFlags            uint32
const (
	InterfaceInfoHeaderSize = 20
	PipeInfoSize            = 24
)

// InterfaceHandle is the transport's opaque handle for a selected interface.
type InterfaceHandle uint64

// PipeHandle is the transport's opaque handle for an open pipe.
type PipeHandle uint64

// PipeType is the transfer type the transport reports for a pipe.
type PipeType uint32

// Pipe types as reported by the transport.
const (
	PipeTypeControl     PipeType = 0
	PipeTypeIsochronous PipeType = 1
	PipeTypeBulk        PipeType = 2
	PipeTypeInterrupt   PipeType = 3
)

// PipeInfo describes one endpoint of a selected interface. Everything other
// than EndpointAddress is opaque to the registry and stored verbatim.
type PipeInfo struct {
	MaximumPacketSize   uint16
	EndpointAddress     uint8
	Interval            uint8
	PipeType            PipeType
	Handle              PipeHandle
	MaximumTransferSize uint32
	PipeFlags           uint32
}

// InterfaceInfo describes one alternate setting of one interface together
// with its pipes.
type InterfaceInfo struct {
	Length           uint16 // Block length as reported by the transport
	InterfaceNumber  uint8
	AlternateSetting uint8
	Class            uint8
	SubClass         uint8
	Protocol         uint8
	Reserved         uint8
	Handle           InterfaceHandle
	Pipes            []PipeInfo
}

// InterfaceInfoSize returns the packed size of a block carrying n pipes.
func InterfaceInfoSize(n int) int {
	return InterfaceInfoHeaderSize + n*PipeInfoSize
}

// Size returns the packed size of info. It is derived from the pipe count,
// not from the Length field.
func (info *InterfaceInfo) Size() int {
	return InterfaceInfoSize(len(info.Pipes))
}

// NumPipes returns the number of pipes of the interface.
func (info *InterfaceInfo) NumPipes() int {
	return len(info.Pipes)
}

// Clone returns a deep copy of info sharing no memory with it.
func (info *InterfaceInfo) Clone() *InterfaceInfo {
	dup := *info
	if info.Pipes != nil {
		dup.Pipes = make([]PipeInfo, len(info.Pipes))
		copy(dup.Pipes, info.Pipes)
	}
	return &dup
}

// FindPipe returns the pipe of info with the given endpoint address, or nil
// if there is none. A nil info yields nil.
//
// The result points into info and is valid as long as info is.
func (info *InterfaceInfo) FindPipe(epaddr uint8) *PipeInfo {
	if info == nil {
		return nil
	}
	for i := range info.Pipes {
		if info.Pipes[i].EndpointAddress == epaddr {
			return &info.Pipes[i]
		}
	}
	return nil
}

// MarshalTo serializes info to buf in packed form.
// Returns the number of bytes written, or 0 if buf is too small.
func (info *InterfaceInfo) MarshalTo(buf []byte) int {
	size := info.Size()
	if len(buf) < size {
		return 0
	}
	binary.LittleEndian.PutUint16(buf[0:2], info.Length)
	buf[2] = info.InterfaceNumber
	buf[3] = info.AlternateSetting
	buf[4] = info.Class
	buf[5] = info.SubClass
	buf[6] = info.Protocol
	buf[7] = info.Reserved
	binary.LittleEndian.PutUint64(buf[8:16], uint64(info.Handle))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(info.Pipes)))
	off := InterfaceInfoHeaderSize
	for i := range info.Pipes {
		info.Pipes[i].marshalTo(buf[off : off+PipeInfoSize])
		off += PipeInfoSize
	}
	return size
}

func (p *PipeInfo) marshalTo(buf []byte) {
	binary.LittleEndian.PutUint16(buf[0:2], p.MaximumPacketSize)
	buf[2] = p.EndpointAddress
	buf[3] = p.Interval
	binary.LittleEndian.PutUint32(buf[4:8], uint32(p.PipeType))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(p.Handle))
	binary.LittleEndian.PutUint32(buf[16:20], p.MaximumTransferSize)
	binary.LittleEndian.PutUint32(buf[20:24], p.PipeFlags)
}

func (p *PipeInfo) parse(data []byte) {
	p.MaximumPacketSize = binary.LittleEndian.Uint16(data[0:2])
	p.EndpointAddress = data[2]
	p.Interval = data[3]
	p.PipeType = PipeType(binary.LittleEndian.Uint32(data[4:8]))
	p.Handle = PipeHandle(binary.LittleEndian.Uint64(data[8:16]))
	p.MaximumTransferSize = binary.LittleEndian.Uint32(data[16:20])
	p.PipeFlags = binary.LittleEndian.Uint32(data[20:24])
}

// blockSize reads the pipe count of the block at the start of data and
// returns the block's packed size.
func blockSize(data []byte) (int, error) {
	if len(data) < InterfaceInfoHeaderSize {
		return 0, pkg.ErrDescriptorTooShort
	}
	n := binary.LittleEndian.Uint32(data[16:20])
	if uint64(n) > uint64(len(data)-InterfaceInfoHeaderSize)/PipeInfoSize {
		return 0, pkg.ErrDescriptorTooShort
	}
	return InterfaceInfoSize(int(n)), nil
}

// ParseInterfaceInfo decodes the packed block at the start of data into out.
// Pipes are copied into a freshly allocated slice, so out never references
// data. Bytes past the block are ignored.
func ParseInterfaceInfo(data []byte, out *InterfaceInfo) error {
	size, err := blockSize(data)
	if err != nil {
		return err
	}
	out.Length = binary.LittleEndian.Uint16(data[0:2])
	out.InterfaceNumber = data[2]
	out.AlternateSetting = data[3]
	out.Class = data[4]
	out.SubClass = data[5]
	out.Protocol = data[6]
	out.Reserved = data[7]
	out.Handle = InterfaceHandle(binary.LittleEndian.Uint64(data[8:16]))

	n := (size - InterfaceInfoHeaderSize) / PipeInfoSize
	out.Pipes = make([]PipeInfo, n)
	off := InterfaceInfoHeaderSize
	for i := range out.Pipes {
		out.Pipes[i].parse(data[off : off+PipeInfoSize])
		off += PipeInfoSize
	}
	return nil
}

// AppendInterfaceInfos packs infos contiguously onto buf and returns the
// extended slice. A zero Length field is filled in with the block size.
func AppendInterfaceInfos(buf []byte, infos ...*InterfaceInfo) []byte {
	for _, info := range infos {
		start := len(buf)
		size := info.Size()
		buf = append(buf, make([]byte, size)...)
		info.MarshalTo(buf[start:])
		if info.Length == 0 {
			binary.LittleEndian.PutUint16(buf[start:start+2], uint16(size))
		}
	}
	return buf
}

// InterfaceInfoIter walks a buffer of packed interface-info blocks. Each
// block's pipe count locates the start of the next one.
//
//	it := NewInterfaceInfoIter(buf)
//	for it.Next() {
//	    block := it.Block()
//	}
//	if err := it.Err(); err != nil {
//	    ...
//	}
type InterfaceInfoIter struct {
	data  []byte
	off   int
	index int
	block []byte
	err   error
}

// NewInterfaceInfoIter returns an iterator positioned before the first block
// of data.
func NewInterfaceInfoIter(data []byte) *InterfaceInfoIter {
	return &InterfaceInfoIter{data: data, index: -1}
}

// Next advances to the following block. It returns false at the end of the
// buffer or when the next block is truncated, in which case Err reports why.
func (it *InterfaceInfoIter) Next() bool {
	if it.err != nil {
		return false
	}
	it.block = nil
	if it.off >= len(it.data) {
		return false
	}
	size, err := blockSize(it.data[it.off:])
	if err != nil {
		it.err = fmt.Errorf("interface info %d at offset %d: %w", it.index+1, it.off, err)
		return false
	}
	it.index++
	it.block = it.data[it.off : it.off+size]
	it.off += size
	return true
}

// Block returns the current block. It aliases the iterated buffer.
func (it *InterfaceInfoIter) Block() []byte {
	return it.block
}

// Index returns the zero-based position of the current block.
func (it *InterfaceInfoIter) Index() int {
	return it.index
}

// Offset returns the byte offset just past the current block.
func (it *InterfaceInfoIter) Offset() int {
	return it.off
}

// Err returns the error that stopped iteration, if any.
func (it *InterfaceInfoIter) Err() error {
	return it.err
}
