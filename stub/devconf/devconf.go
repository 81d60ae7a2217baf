package devconf

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/yifeimfd/usbip-win/pkg"
)

// ErrNoSuchInterface is returned by Update when no stored interface carries
// the requested interface number.
var ErrNoSuchInterface = fmt.Errorf("no such interface: %w", pkg.ErrNotFound)

// ConfigurationHandle is the transport's opaque handle for a selected
// configuration.
type ConfigurationHandle uint64

// Charge of a Devconf's own storage: fixed header plus one slot per
// interface.
const (
	devconfHeaderSize = 16
	devconfSlotSize   = 8
)

// Devconf is the registry of one active device configuration. It owns an
// independent copy of every interface and pipe the transport reported.
//
// A Devconf has no internal locking. Create, Update and Destroy must not run
// concurrently with each other or with lookups; lookups may run concurrently
// with each other.
type Devconf struct {
	ID                 uuid.UUID
	ConfigurationValue uint8
	Handle             ConfigurationHandle

	numInterfaces uint8
	interfaces    []*InterfaceInfo
	pool          Pool
}

// Option configures Create.
type Option func(*Devconf)

// WithPool charges the registry's storage to p instead of the Go heap.
func WithPool(p Pool) Option {
	return func(dc *Devconf) {
		if p != nil {
			dc.pool = p
		}
	}
}

// Create builds the registry for a configuration that has just been applied.
// infos holds desc.NumInterfaces packed interface-info blocks back to back;
// bytes after the last block are ignored. Every block is copied, so the
// caller may reuse infos as soon as Create returns.
//
// On failure nothing stays allocated and the returned error wraps
// pkg.ErrNoMemory or pkg.ErrDescriptorTooShort.
func Create(desc *ConfigurationDescriptor, handle ConfigurationHandle, infos []byte, opts ...Option) (*Devconf, error) {
	if desc == nil {
		return nil, pkg.ErrInvalidParameter
	}

	dc := &Devconf{
		ID:                 uuid.New(),
		ConfigurationValue: desc.ConfigurationValue,
		Handle:             handle,
		numInterfaces:      desc.NumInterfaces,
		pool:               HeapPool{},
	}
	for _, opt := range opts {
		opt(dc)
	}

	if err := dc.pool.Alloc(dc.storageSize()); err != nil {
		pkg.LogError(pkg.ComponentDevconf, "create: out of memory",
			"config", dc.ConfigurationValue,
			"interfaces", dc.numInterfaces)
		return nil, err
	}
	dc.interfaces = make([]*InterfaceInfo, 0, dc.numInterfaces)

	if err := dc.build(infos); err != nil {
		dc.Destroy()
		return nil, err
	}

	pkg.LogDebug(pkg.ComponentDevconf, "configuration created",
		"id", dc.ID,
		"config", dc.ConfigurationValue,
		"interfaces", len(dc.interfaces))
	return dc, nil
}

// build duplicates numInterfaces blocks from infos, appending each to
// dc.interfaces. On error dc.interfaces holds exactly the blocks duplicated
// so far.
func (dc *Devconf) build(infos []byte) error {
	it := NewInterfaceInfoIter(infos)
	for len(dc.interfaces) < int(dc.numInterfaces) {
		if !it.Next() {
			err := it.Err()
			if err == nil {
				err = fmt.Errorf("interface info %d of %d: %w",
					len(dc.interfaces), dc.numInterfaces, pkg.ErrDescriptorTooShort)
			}
			pkg.LogError(pkg.ComponentDevconf, "create: truncated interface infos",
				"id", dc.ID,
				"error", err)
			return err
		}
		info, err := dc.dupBlock(it.Block())
		if err != nil {
			pkg.LogError(pkg.ComponentDevconf, "create: out of memory",
				"id", dc.ID,
				"index", it.Index())
			return err
		}
		dc.interfaces = append(dc.interfaces, info)
	}
	return nil
}

// dupBlock charges the pool for one packed block and decodes it into an
// owned record.
func (dc *Devconf) dupBlock(block []byte) (*InterfaceInfo, error) {
	if err := dc.pool.Alloc(len(block)); err != nil {
		return nil, err
	}
	info := new(InterfaceInfo)
	if err := ParseInterfaceInfo(block, info); err != nil {
		dc.pool.Free(len(block))
		return nil, err
	}
	return info, nil
}

// dup charges the pool for info and returns an owned deep copy.
func (dc *Devconf) dup(info *InterfaceInfo) (*InterfaceInfo, error) {
	if err := dc.pool.Alloc(info.Size()); err != nil {
		return nil, err
	}
	return info.Clone(), nil
}

func (dc *Devconf) storageSize() int {
	return devconfHeaderSize + int(dc.numInterfaces)*devconfSlotSize
}

// Destroy releases every interface record in order and then the registry's
// own storage. A nil Devconf is a no-op. Destroy is also the rollback path
// of a failed Create, where only a prefix of the interfaces exists.
//
// Pointers previously returned by lookups must not be used afterwards.
// Destroying the same Devconf twice is a caller error.
func (dc *Devconf) Destroy() {
	if dc == nil || dc.pool == nil {
		return
	}
	for i, info := range dc.interfaces {
		dc.pool.Free(info.Size())
		dc.interfaces[i] = nil
	}
	dc.interfaces = nil
	dc.pool.Free(dc.storageSize())
	dc.pool = nil

	pkg.LogDebug(pkg.ComponentDevconf, "configuration destroyed",
		"id", dc.ID,
		"config", dc.ConfigurationValue)
}

// Update replaces the stored interface whose number matches
// info.InterfaceNumber with a copy of info, typically after the host selected
// another alternate setting. All other interfaces are left untouched.
//
// If the copy cannot be allocated the stored interface is kept and the error
// wraps pkg.ErrNoMemory. If no interface matches, ErrNoSuchInterface is
// returned and nothing changes. After a successful Update, pointers obtained
// from lookups into the replaced interface are stale.
func (dc *Devconf) Update(info *InterfaceInfo) error {
	if dc == nil || info == nil {
		return pkg.ErrInvalidParameter
	}
	for i, existing := range dc.interfaces {
		if existing.InterfaceNumber != info.InterfaceNumber {
			continue
		}
		replacement, err := dc.dup(info)
		if err != nil {
			pkg.LogError(pkg.ComponentDevconf, "update: out of memory",
				"id", dc.ID,
				"info", DescribeInterface(info))
			return err
		}
		dc.pool.Free(existing.Size())
		dc.interfaces[i] = replacement

		pkg.LogDebug(pkg.ComponentDevconf, "interface updated",
			"id", dc.ID,
			"interface", info.InterfaceNumber,
			"alt", info.AlternateSetting,
			"pipes", len(info.Pipes))
		return nil
	}

	pkg.LogWarn(pkg.ComponentDevconf, "update: non-existent interface info",
		"id", dc.ID,
		"interface", info.InterfaceNumber,
		"info", DescribeInterface(info))
	return ErrNoSuchInterface
}

// IsNoSuchInterface reports whether err came from updating an unknown
// interface.
func IsNoSuchInterface(err error) bool {
	return errors.Is(err, ErrNoSuchInterface)
}

// NumInterfaces returns the interface count declared by the configuration
// descriptor.
func (dc *Devconf) NumInterfaces() int {
	if dc == nil {
		return 0
	}
	return int(dc.numInterfaces)
}

// Interfaces returns the stored interfaces in descriptor order. The slice is
// a copy; the records it points to are borrowed from dc.
func (dc *Devconf) Interfaces() []*InterfaceInfo {
	if dc == nil {
		return nil
	}
	out := make([]*InterfaceInfo, len(dc.interfaces))
	copy(out, dc.interfaces)
	return out
}

// FindInterface returns the stored interface with the given number, or nil.
// A nil Devconf yields nil.
//
// The result is borrowed from dc: it stays valid until the next Update of
// the same interface or Destroy.
func (dc *Devconf) FindInterface(num uint8) *InterfaceInfo {
	if dc == nil {
		return nil
	}
	for _, info := range dc.interfaces {
		if info.InterfaceNumber == num {
			return info
		}
	}
	return nil
}

// FindPipe returns the first pipe in any interface with the given endpoint
// address, or nil. A nil Devconf yields nil.
//
// The result is borrowed from dc: it stays valid until the next Update of
// its interface or Destroy.
func (dc *Devconf) FindPipe(epaddr uint8) *PipeInfo {
	if dc == nil {
		return nil
	}
	for _, info := range dc.interfaces {
		if pipe := info.FindPipe(epaddr); pipe != nil {
			return pipe
		}
	}
	return nil
}

// FindPipeInterface is like FindPipe but also returns the interface that
// owns the pipe.
func (dc *Devconf) FindPipeInterface(epaddr uint8) (*InterfaceInfo, *PipeInfo) {
	if dc == nil {
		return nil, nil
	}
	for _, info := range dc.interfaces {
		if pipe := info.FindPipe(epaddr); pipe != nil {
			return info, pipe
		}
	}
	return nil, nil
}
