// Package devconf holds the registry of a stub device's active USB
// configuration.
//
// When the host applies a configuration, the transport hands the stub a
// configuration descriptor, an opaque configuration handle, and a buffer of
// packed interface-info blocks. [Create] copies every block into a
// [Devconf], which then answers the lookups I/O dispatch needs:
//
//	dc, err := devconf.Create(&desc, handle, infos)
//	if err != nil {
//	    return err // pkg.ErrNoMemory or pkg.ErrDescriptorTooShort
//	}
//	defer dc.Destroy()
//
//	pipe := dc.FindPipe(0x81)
//
// # Packed Interface Info
//
// Blocks are self-describing: a 20-byte header whose NumberOfPipes field
// gives the count of 24-byte pipe entries that follow. There is no offset
// table; [InterfaceInfoIter] walks the buffer once at construction time and
// the registry never looks at it again.
//
// # Ownership
//
// A Devconf exclusively owns its [InterfaceInfo] and [PipeInfo] records.
// Lookups return borrowed pointers valid until the next [Devconf.Update] of
// the same interface or [Devconf.Destroy]. Memory is charged to a [Pool];
// a [QuotaPool] makes allocation failure observable, and a failed Create or
// Update leaves the pool exactly as it found it.
//
// # Diagnostics
//
// [DescribeInterface], [DescribePipe] and [DescribeDevconf] render short
// strings for log records. They are compiled in with the "dbg" build tag:
//
//	go build -tags dbg
//
// Without it they return the empty string.
package devconf
